package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/payments"
	"github.com/desertthunder/recap/internal/shared"
)

var errNotActiveYet = errors.New("subscription not active yet")

// Policy controls how long a fresh subscription is polled before the
// reconciler settles for whatever the backend reports.
//
// A zero MaxWait performs exactly one re-fetch.
type Policy struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

// EntitlementView is what the UI renders.
//
// IsActive always comes from the last authoritative snapshot. ExpiresAt is
// the locally predicted end of the period right after a subscribe, and the
// backend's current_period_end otherwise.
type EntitlementView struct {
	Status    models.SubscriptionStatus
	Loaded    bool
	IsActive  bool
	ExpiresAt *time.Time
	Predicted bool
}

// Entitlements reconciles the premium signal against the backend and the
// payment processor.
type Entitlements struct {
	api       BillingAPI
	processor payments.Processor
	policy    Policy
	logger    *log.Logger
	now       func() time.Time

	mu        sync.Mutex
	status    *models.SubscriptionStatus
	predicted *time.Time
}

// NewEntitlements creates a reconciler. processor may be nil when only
// Load and Cancel are needed.
func NewEntitlements(api BillingAPI, processor payments.Processor, policy Policy, logger *log.Logger) *Entitlements {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Entitlements{
		api:       api,
		processor: processor,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
	}
}

// Load fetches the authoritative status and drops any prediction.
func (e *Entitlements) Load(ctx context.Context) (models.SubscriptionStatus, error) {
	res, err := e.api.SubscriptionStatus(ctx)
	if err != nil {
		return models.SubscriptionStatus{}, err
	}
	e.store(res.Data, nil)
	return res.Data, nil
}

// View returns the current snapshot.
func (e *Entitlements) View() EntitlementView {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == nil {
		return EntitlementView{}
	}
	v := EntitlementView{
		Status:    *e.status,
		Loaded:    true,
		IsActive:  e.status.IsActive,
		ExpiresAt: e.status.CurrentPeriodEnd,
	}
	if e.predicted != nil {
		v.ExpiresAt = e.predicted
		v.Predicted = true
	}
	return v
}

// IsActive reports the authoritative is_active flag. It is false before the first Load.
func (e *Entitlements) IsActive() bool {
	return e.View().IsActive
}

// Subscribe runs the full purchase flow: tokenize the card, create the
// subscription, confirm the payment when the backend hands back a client
// secret, then re-fetch the status. A failure at any step returns the error
// and leaves the previous snapshot in place. A payment method created before
// a later failure is not cleaned up.
func (e *Entitlements) Subscribe(ctx context.Context, progress chan<- ProgressUpdate, card payments.Card, billing payments.BillingDetails) (models.SubscriptionStatus, error) {
	if e.processor == nil {
		return models.SubscriptionStatus{}, fmt.Errorf("%w: payment processor not configured", shared.ErrInvalidConfig)
	}
	if err := card.Validate(e.now()); err != nil {
		return models.SubscriptionStatus{}, err
	}

	sendProgress(progress, tokenizeUpdate(card.Last4()))
	pm, err := e.processor.CreatePaymentMethod(ctx, card, billing)
	if err != nil {
		return e.abort(Tokenize, err)
	}

	sendProgress(progress, createSubscriptionUpdate())
	res, err := e.api.CreateSubscription(ctx, pm)
	if err != nil {
		e.logger.Warn("payment method left without subscription", "payment_method", pm)
		return e.abort(CreateSubscription, err)
	}

	if secret := res.Data.ClientSecret; secret != "" {
		sendProgress(progress, confirmPaymentUpdate())
		if _, err := e.processor.ConfirmCardPayment(ctx, secret); err != nil {
			return e.abort(ConfirmPayment, err)
		}
	}

	status, err := e.refresh(ctx, progress)
	if err != nil {
		return e.abort(RefreshStatus, err)
	}

	predicted := e.now().AddDate(0, 1, 0)
	e.store(status, &predicted)
	subscribeTotal.WithLabelValues("ok").Inc()
	e.logger.Info("subscription created", "status", status.Status, "active", status.IsActive)
	return status, nil
}

// Cancel schedules end-of-period cancellation and re-fetches the status.
// is_active is never flipped locally.
func (e *Entitlements) Cancel(ctx context.Context) (models.SubscriptionStatus, error) {
	if _, err := e.api.CancelSubscription(ctx); err != nil {
		return models.SubscriptionStatus{}, err
	}
	return e.Load(ctx)
}

// AddCard tokenizes card and stores it as a payment method.
func (e *Entitlements) AddCard(ctx context.Context, card payments.Card, billing payments.BillingDetails) (string, error) {
	if e.processor == nil {
		return "", fmt.Errorf("%w: payment processor not configured", shared.ErrInvalidConfig)
	}
	if err := card.Validate(e.now()); err != nil {
		return "", err
	}

	pm, err := e.processor.CreatePaymentMethod(ctx, card, billing)
	if err != nil {
		return "", err
	}
	if _, err := e.api.AddPaymentMethod(ctx, pm); err != nil {
		return "", err
	}
	return pm, nil
}

// Cards lists stored payment methods.
func (e *Entitlements) Cards(ctx context.Context) ([]models.PaymentMethod, error) {
	res, err := e.api.PaymentMethods(ctx)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// refresh re-fetches the status once, or polls with exponential backoff
// until is_active or the policy's MaxWait elapses. A status that is still
// inactive when the wait runs out is returned without error.
func (e *Entitlements) refresh(ctx context.Context, progress chan<- ProgressUpdate) (models.SubscriptionStatus, error) {
	if e.policy.MaxWait <= 0 {
		sendProgress(progress, refreshStatusUpdate(1, nil))
		res, err := e.api.SubscriptionStatus(ctx)
		return res.Data, err
	}

	b := backoff.NewExponentialBackOff()
	if e.policy.PollInterval > 0 {
		b.InitialInterval = e.policy.PollInterval
		b.MaxInterval = 4 * e.policy.PollInterval
	}
	b.MaxElapsedTime = e.policy.MaxWait

	var latest models.SubscriptionStatus
	attempt := 0
	op := func() error {
		attempt++
		if attempt == 1 {
			sendProgress(progress, refreshStatusUpdate(attempt, nil))
		} else {
			last := latest
			sendProgress(progress, refreshStatusUpdate(attempt, &last))
		}

		res, err := e.api.SubscriptionStatus(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		latest = res.Data
		if !latest.IsActive {
			return errNotActiveYet
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if errors.Is(err, errNotActiveYet) {
		e.logger.Warn("subscription still inactive after waiting", "attempts", attempt, "max_wait", e.policy.MaxWait)
		return latest, nil
	}
	return latest, err
}

func (e *Entitlements) abort(phase Phase, err error) (models.SubscriptionStatus, error) {
	subscribeTotal.WithLabelValues(phase.String()).Inc()
	e.logger.Error("subscribe failed", "phase", phase, "error", err)
	return models.SubscriptionStatus{}, err
}

func (e *Entitlements) store(status models.SubscriptionStatus, predicted *time.Time) {
	e.mu.Lock()
	e.status = &status
	e.predicted = predicted
	e.mu.Unlock()
}
