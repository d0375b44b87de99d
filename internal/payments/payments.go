// Package payments tokenizes cards and confirms payments with the payment
// processor on the client side, using only a publishable key. Card data
// never reaches the recap backend; the backend only sees payment method ids.
package payments

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/recap/internal/shared"
)

// Processor is the client-side half of the payment processor.
type Processor interface {
	// CreatePaymentMethod tokenizes card and returns the payment method id (pm_...).
	CreatePaymentMethod(ctx context.Context, card Card, billing BillingDetails) (string, error)
	// ConfirmCardPayment completes a payment that the backend left pending.
	ConfirmCardPayment(ctx context.Context, clientSecret string) (*PaymentIntent, error)
}

// Card holds raw card details. It is never logged or persisted.
type Card struct {
	Number   string
	ExpMonth int
	ExpYear  int
	CVC      string
}

// BillingDetails is optional cardholder information.
type BillingDetails struct {
	Name       string
	Email      string
	PostalCode string
}

// PaymentIntent is the confirmed state of a payment.
type PaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Last4 returns the last four digits of the normalized card number.
func (c Card) Last4() string {
	n := digits(c.Number)
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}

// Validate checks the card before anything is sent to the processor.
func (c Card) Validate(now time.Time) error {
	number := digits(c.Number)
	switch {
	case len(number) < 12 || len(number) > 19:
		return fmt.Errorf("%w: card number must have 12 to 19 digits", shared.ErrInvalidInput)
	case !luhn(number):
		return fmt.Errorf("%w: card number is not valid", shared.ErrInvalidInput)
	case c.ExpMonth < 1 || c.ExpMonth > 12:
		return fmt.Errorf("%w: expiry month must be between 1 and 12", shared.ErrInvalidInput)
	case c.ExpYear < 1000 || c.ExpYear > 9999:
		return fmt.Errorf("%w: expiry year must have four digits", shared.ErrInvalidInput)
	case c.ExpYear < now.Year() || (c.ExpYear == now.Year() && c.ExpMonth < int(now.Month())):
		return fmt.Errorf("%w: card has expired", shared.ErrInvalidInput)
	}

	cvc := digits(c.CVC)
	if len(cvc) != len(strings.TrimSpace(c.CVC)) || len(cvc) < 3 || len(cvc) > 4 {
		return fmt.Errorf("%w: CVC must have 3 or 4 digits", shared.ErrInvalidInput)
	}
	return nil
}

// ParseExpiry reads "MM/YY" or "MM/YYYY".
func ParseExpiry(s string) (month, year int, err error) {
	mm, yy, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: expiry must look like MM/YY", shared.ErrInvalidInput)
	}

	month, err = strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad expiry month %q", shared.ErrInvalidInput, mm)
	}
	yy = strings.TrimSpace(yy)
	year, err = strconv.Atoi(yy)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad expiry year %q", shared.ErrInvalidInput, yy)
	}
	if len(yy) == 2 {
		year += 2000
	}
	return month, year, nil
}

// IntentID extracts the payment intent id from a client secret ("pi_123_secret_abc" -> "pi_123").
func IntentID(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || !strings.HasPrefix(id, "pi_") {
		return "", fmt.Errorf("%w: malformed client secret", shared.ErrInvalidInput)
	}
	return id, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhn(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
