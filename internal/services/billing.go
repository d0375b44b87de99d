package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/desertthunder/recap/internal/models"
)

var (
	epCreateSubscription = endpoint{name: "create_subscription", method: http.MethodPost, path: "api/users/create-subscription/", auth: authRequired, fallback: "Failed to create subscription"}
	epSubscriptionStatus = endpoint{name: "subscription_status", method: http.MethodGet, path: "api/users/subscription-status/", auth: authRequired, fallback: "Failed to load subscription status"}
	epCancelSubscription = endpoint{name: "cancel_subscription", method: http.MethodPost, path: "api/users/cancel-subscription/", auth: authRequired, fallback: "Failed to cancel subscription"}
	epAddPaymentMethod   = endpoint{name: "add_payment_method", method: http.MethodPost, path: "api/users/add-payment-method/", auth: authRequired, fallback: "Failed to add payment method"}
	epPaymentMethods     = endpoint{name: "payment_methods", method: http.MethodGet, path: "api/users/payment-methods/", auth: authRequired, fallback: "Failed to load payment methods"}
)

type paymentMethodBody struct {
	PaymentMethodID string `json:"payment_method_id"`
}

// CreateSubscription starts a subscription with a tokenized payment method.
// A non-empty ClientSecret in the result means the payment still needs confirming.
func (a *APIService) CreateSubscription(ctx context.Context, paymentMethodID string) (Result[models.SubscriptionResult], error) {
	if err := required(epCreateSubscription.name, "payment method id", paymentMethodID); err != nil {
		return reject[models.SubscriptionResult](err)
	}
	return call[models.SubscriptionResult](ctx, a, epCreateSubscription, paymentMethodBody{strings.TrimSpace(paymentMethodID)})
}

// SubscriptionStatus fetches the authoritative billing snapshot.
func (a *APIService) SubscriptionStatus(ctx context.Context) (Result[models.SubscriptionStatus], error) {
	return call[models.SubscriptionStatus](ctx, a, epSubscriptionStatus, nil)
}

// CancelSubscription schedules cancellation at the end of the current period.
func (a *APIService) CancelSubscription(ctx context.Context) (Result[models.Message], error) {
	return call[models.Message](ctx, a, epCancelSubscription, nil)
}

// AddPaymentMethod attaches a tokenized card to the caller's customer record.
func (a *APIService) AddPaymentMethod(ctx context.Context, paymentMethodID string) (Result[models.Message], error) {
	if err := required(epAddPaymentMethod.name, "payment method id", paymentMethodID); err != nil {
		return reject[models.Message](err)
	}
	return call[models.Message](ctx, a, epAddPaymentMethod, paymentMethodBody{strings.TrimSpace(paymentMethodID)})
}

// PaymentMethods lists stored cards.
func (a *APIService) PaymentMethods(ctx context.Context) (Result[[]models.PaymentMethod], error) {
	return call[[]models.PaymentMethod](ctx, a, epPaymentMethods, nil)
}
