package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/recap/internal/models"
	"github.com/desertthunder/recap/internal/payments"
)

// BillingStatus prints the authoritative subscription status.
func (r *Runner) BillingStatus(ctx context.Context, cmd *cli.Command) error {
	ent, err := r.entitlements()
	if err != nil {
		return err
	}

	status, err := ent.Load(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}
	r.writeStatus(status, nil)
	return nil
}

// BillingSubscribe tokenizes the card, creates the subscription and
// re-fetches the status.
func (r *Runner) BillingSubscribe(ctx context.Context, cmd *cli.Command) error {
	ent, err := r.entitlements()
	if err != nil {
		return err
	}
	card, billing, err := cardFromFlags(cmd)
	if err != nil {
		return err
	}

	progress, wait := r.printProgress(true)
	status, err := ent.Subscribe(ctx, progress, card, billing)
	wait()
	if err != nil {
		return err
	}

	view := ent.View()
	if !status.IsActive {
		r.writePlainln("Payment accepted; the subscription is not active yet.")
		r.writePlain("Run `recap billing status` in a moment to check again.\n")
		return nil
	}
	r.writePlainln("✓ Welcome to premium")
	r.writeStatus(status, view.ExpiresAt)
	return nil
}

// BillingCancel cancels the subscription at period end.
func (r *Runner) BillingCancel(ctx context.Context, cmd *cli.Command) error {
	ent, err := r.entitlements()
	if err != nil {
		return err
	}

	status, err := ent.Cancel(ctx)
	if err != nil {
		return err
	}
	r.writePlain("✓ Subscription canceled\n")
	r.writeStatus(status, nil)
	return nil
}

// BillingCards lists stored cards.
func (r *Runner) BillingCards(ctx context.Context, cmd *cli.Command) error {
	ent, err := r.entitlements()
	if err != nil {
		return err
	}

	cards, err := ent.Cards(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(cards, cmd.Bool("pretty"))
	}
	if len(cards) == 0 {
		return r.writePlain("No stored cards.\n")
	}
	for _, c := range cards {
		def := ""
		if c.IsDefault {
			def = " (default)"
		}
		r.writePlain("%-10s •••• %s  %02d/%d%s\n", orDefault(c.CardBrand, "card"), c.Last4, c.ExpMonth, c.ExpYear, def)
	}
	return nil
}

// BillingAddCard tokenizes a card and stores it.
func (r *Runner) BillingAddCard(ctx context.Context, cmd *cli.Command) error {
	ent, err := r.entitlements()
	if err != nil {
		return err
	}
	card, billing, err := cardFromFlags(cmd)
	if err != nil {
		return err
	}

	pm, err := ent.AddCard(ctx, card, billing)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Card ending in %s added (%s)\n", card.Last4(), pm)
}

func (r *Runner) writeStatus(status models.SubscriptionStatus, expires *time.Time) {
	state := "inactive"
	switch {
	case status.CancelPending():
		state = "active (canceled, ends at period end)"
	case status.IsActive:
		state = "active"
	}
	r.writePlain("Plan:   %s\n", state)
	r.writePlain("Status: %s\n", orDefault(status.Status, "inactive"))

	if expires == nil {
		expires = status.CurrentPeriodEnd
	}
	if status.IsActive && expires != nil {
		r.writePlain("Until:  %s\n", expires.Local().Format("2006-01-02"))
	}
}

func cardFromFlags(cmd *cli.Command) (payments.Card, payments.BillingDetails, error) {
	month, year, err := payments.ParseExpiry(cmd.String("exp"))
	if err != nil {
		return payments.Card{}, payments.BillingDetails{}, err
	}
	card := payments.Card{
		Number:   cmd.String("card"),
		ExpMonth: month,
		ExpYear:  year,
		CVC:      cmd.String("cvc"),
	}
	billing := payments.BillingDetails{
		Name:       cmd.String("name"),
		Email:      cmd.String("email"),
		PostalCode: cmd.String("postal-code"),
	}
	return card, billing, nil
}
