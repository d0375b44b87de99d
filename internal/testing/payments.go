package testing

import (
	"context"
	"sync"

	"github.com/desertthunder/recap/internal/payments"
)

// FakeProcessor is an in-memory [payments.Processor].
type FakeProcessor struct {
	mu sync.Mutex

	PaymentMethodID string
	CreateErr       error
	ConfirmErr      error
	ConfirmStatus   string

	Cards    []payments.Card
	Confirms []string
}

func (f *FakeProcessor) CreatePaymentMethod(ctx context.Context, card payments.Card, billing payments.BillingDetails) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Cards = append(f.Cards, card)
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	if f.PaymentMethodID == "" {
		return "pm_test", nil
	}
	return f.PaymentMethodID, nil
}

func (f *FakeProcessor) ConfirmCardPayment(ctx context.Context, clientSecret string) (*payments.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Confirms = append(f.Confirms, clientSecret)
	if f.ConfirmErr != nil {
		return nil, f.ConfirmErr
	}
	status := f.ConfirmStatus
	if status == "" {
		status = "succeeded"
	}
	id, _ := payments.IntentID(clientSecret)
	return &payments.PaymentIntent{ID: id, Status: status}, nil
}
