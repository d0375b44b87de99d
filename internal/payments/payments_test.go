package payments

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/recap/internal/shared"
)

var fixedNow = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func validCard() Card {
	return Card{Number: "4242 4242 4242 4242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
}

func TestCardValidate(t *testing.T) {
	tc := []struct {
		name   string
		mutate func(*Card)
		ok     bool
	}{
		{name: "valid", mutate: func(*Card) {}, ok: true},
		{name: "dashes allowed", mutate: func(c *Card) { c.Number = "4242-4242-4242-4242" }, ok: true},
		{name: "too short", mutate: func(c *Card) { c.Number = "4242" }},
		{name: "bad checksum", mutate: func(c *Card) { c.Number = "4242424242424241" }},
		{name: "month zero", mutate: func(c *Card) { c.ExpMonth = 0 }},
		{name: "two digit year", mutate: func(c *Card) { c.ExpYear = 30 }},
		{name: "expired", mutate: func(c *Card) { c.ExpYear, c.ExpMonth = 2025, 5 }},
		{name: "this month is fine", mutate: func(c *Card) { c.ExpYear, c.ExpMonth = 2025, 6 }, ok: true},
		{name: "short cvc", mutate: func(c *Card) { c.CVC = "12" }},
		{name: "letters in cvc", mutate: func(c *Card) { c.CVC = "12a" }},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.mutate(&card)
			err := card.Validate(fixedNow)
			if tt.ok && err != nil {
				t.Errorf("expected valid card, got %v", err)
			}
			if !tt.ok && !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if validCard().Last4() != "4242" {
		t.Errorf("unexpected last4 %s", validCard().Last4())
	}
}

func TestParseExpiry(t *testing.T) {
	m, y, err := ParseExpiry("04/29")
	if err != nil || m != 4 || y != 2029 {
		t.Errorf("ParseExpiry(04/29) = %d, %d, %v", m, y, err)
	}
	m, y, err = ParseExpiry(" 11 / 2031 ")
	if err != nil || m != 11 || y != 2031 {
		t.Errorf("ParseExpiry(11/2031) = %d, %d, %v", m, y, err)
	}
	for _, bad := range []string{"0429", "aa/29", "04/bb"} {
		if _, _, err := ParseExpiry(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestIntentID(t *testing.T) {
	id, err := IntentID("pi_3Nabc_secret_xyz")
	if err != nil || id != "pi_3Nabc" {
		t.Errorf("IntentID() = %q, %v", id, err)
	}
	if _, err := IntentID("seti_123_secret_x"); err == nil {
		t.Error("setup intent secrets are not payment intents")
	}
	if _, err := IntentID("garbage"); err == nil {
		t.Error("expected error for malformed secret")
	}
}

func newProcessor(t *testing.T, h http.HandlerFunc) *StripeProcessor {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	p, err := NewStripeProcessor("pk_test_123", server.URL, nil, nil)
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestStripeProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses secret keys", func(t *testing.T) {
		if _, err := NewStripeProcessor("sk_live_123", "", nil, nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("CreatePaymentMethod", func(t *testing.T) {
		var form url.Values
		var auth string
		p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/payment_methods" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			auth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			form, _ = url.ParseQuery(string(body))
			w.Write([]byte(`{"id": "pm_123", "object": "payment_method"}`))
		})

		id, err := p.CreatePaymentMethod(ctx, validCard(), BillingDetails{Name: "Ada", PostalCode: "12345"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "pm_123" {
			t.Errorf("expected pm_123, got %s", id)
		}
		if auth != "Bearer pk_test_123" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if form.Get("card[number]") != "4242424242424242" || form.Get("type") != "card" {
			t.Errorf("unexpected form %v", form)
		}
		if form.Get("billing_details[address][postal_code]") != "12345" || form.Has("billing_details[email]") {
			t.Errorf("unexpected billing fields %v", form)
		}
	})

	t.Run("invalid card is not sent", func(t *testing.T) {
		called := false
		p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) { called = true })

		card := validCard()
		card.CVC = ""
		if _, err := p.CreatePaymentMethod(ctx, card, BillingDetails{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if called {
			t.Error("processor should not be called")
		}
	})

	t.Run("card declined", func(t *testing.T) {
		p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			w.Write([]byte(`{"error": {"message": "Your card was declined.", "type": "card_error"}}`))
		})

		_, err := p.CreatePaymentMethod(ctx, validCard(), BillingDetails{})
		if !errors.Is(err, shared.ErrPaymentFailed) || !strings.Contains(err.Error(), "Your card was declined.") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("ConfirmCardPayment", func(t *testing.T) {
		tc := []struct {
			name    string
			body    string
			wantErr string
		}{
			{name: "succeeded", body: `{"id": "pi_1", "status": "succeeded"}`},
			{name: "processing", body: `{"id": "pi_1", "status": "processing"}`},
			{name: "requires action", body: `{"id": "pi_1", "status": "requires_action"}`, wantErr: "additional authentication"},
			{name: "declined", body: `{"id": "pi_1", "status": "requires_payment_method", "last_payment_error": {"message": "Insufficient funds."}}`, wantErr: "Insufficient funds."},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) {
					if r.URL.Path != "/v1/payment_intents/pi_1/confirm" {
						t.Errorf("unexpected path %s", r.URL.Path)
					}
					r.ParseForm()
					if r.PostForm.Get("client_secret") != "pi_1_secret_abc" {
						t.Errorf("expected client secret in form")
					}
					w.Write([]byte(tt.body))
				})

				intent, err := p.ConfirmCardPayment(ctx, "pi_1_secret_abc")
				if tt.wantErr == "" {
					if err != nil || intent.ID != "pi_1" {
						t.Errorf("unexpected result %+v, %v", intent, err)
					}
					return
				}
				if !errors.Is(err, shared.ErrPaymentFailed) || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected %q error, got %v", tt.wantErr, err)
				}
			})
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		p, _ := NewStripeProcessor("pk_test_123", "http://127.0.0.1:1", nil, nil)
		_, err := p.ConfirmCardPayment(ctx, "pi_1_secret_abc")
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected transport error, got %v", err)
		}
	})
}
