package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/recap/internal/shared"
)

const defaultStripeURL = "https://api.stripe.com"

// StripeProcessor implements [Processor] against the Stripe REST API with a
// publishable key, the same calls Stripe.js makes in a browser.
type StripeProcessor struct {
	key        string
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
}

// NewStripeProcessor creates a processor. baseURL defaults to the live API and
// client to [http.DefaultClient]. Secret keys are refused.
func NewStripeProcessor(publishableKey, baseURL string, client *http.Client, logger *log.Logger) (*StripeProcessor, error) {
	if !strings.HasPrefix(publishableKey, "pk_") {
		return nil, fmt.Errorf("%w: a Stripe publishable key (pk_...) is required", shared.ErrInvalidConfig)
	}
	if baseURL == "" {
		baseURL = defaultStripeURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &StripeProcessor{
		key:        publishableKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
		now:        time.Now,
	}, nil
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

type intentResponse struct {
	PaymentIntent
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (s *StripeProcessor) CreatePaymentMethod(ctx context.Context, card Card, billing BillingDetails) (string, error) {
	if err := card.Validate(s.now()); err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("type", "card")
	form.Set("card[number]", digits(card.Number))
	form.Set("card[exp_month]", strconv.Itoa(card.ExpMonth))
	form.Set("card[exp_year]", strconv.Itoa(card.ExpYear))
	form.Set("card[cvc]", strings.TrimSpace(card.CVC))
	if billing.Name != "" {
		form.Set("billing_details[name]", billing.Name)
	}
	if billing.Email != "" {
		form.Set("billing_details[email]", billing.Email)
	}
	if billing.PostalCode != "" {
		form.Set("billing_details[address][postal_code]", billing.PostalCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := s.post(ctx, "/v1/payment_methods", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: processor returned no payment method id", shared.ErrPaymentFailed)
	}
	s.logger.Debug("payment method created", "last4", card.Last4())
	return out.ID, nil
}

func (s *StripeProcessor) ConfirmCardPayment(ctx context.Context, clientSecret string) (*PaymentIntent, error) {
	id, err := IntentID(clientSecret)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("client_secret", clientSecret)

	var out intentResponse
	if err := s.post(ctx, "/v1/payment_intents/"+url.PathEscape(id)+"/confirm", form, &out); err != nil {
		return nil, err
	}

	switch out.Status {
	case "succeeded", "processing":
		return &out.PaymentIntent, nil
	case "requires_action":
		return nil, fmt.Errorf("%w: the bank requires additional authentication; complete the payment in a browser", shared.ErrPaymentFailed)
	default:
		msg := "payment " + out.Status
		if out.LastPaymentError != nil && out.LastPaymentError.Message != "" {
			msg = out.LastPaymentError.Message
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrPaymentFailed, msg)
	}
}

func (s *StripeProcessor) post(ctx context.Context, path string, form url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", shared.GenerateID())
	(&oauth2.Token{AccessToken: s.key, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", shared.ErrPaymentFailed, shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w: %w", shared.ErrPaymentFailed, shared.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var se stripeError
		if err := json.Unmarshal(body, &se); err == nil && se.Error.Message != "" {
			return fmt.Errorf("%w: %s", shared.ErrPaymentFailed, se.Error.Message)
		}
		return fmt.Errorf("%w: processor error (status %d)", shared.ErrPaymentFailed, resp.StatusCode)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrPaymentFailed, err)
	}
	return nil
}
