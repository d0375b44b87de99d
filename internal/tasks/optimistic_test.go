package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/recap/internal/shared"
)

func TestOptimistic(t *testing.T) {
	t.Run("commit keeps the applied value", func(t *testing.T) {
		o := NewOptimistic[string]()
		value := 1

		state, err := o.Do(context.Background(), "k", Op{
			Apply:  func() { value = 2 },
			Revert: func() { value = 1 },
			Call:   func(context.Context) error { return nil },
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != Committed {
			t.Errorf("expected committed, got %v", state)
		}
		if value != 2 {
			t.Errorf("expected applied value 2, got %d", value)
		}
		if o.InFlight("k") {
			t.Error("key should be released")
		}
	})

	t.Run("failure reverts to the pre-action value", func(t *testing.T) {
		o := NewOptimistic[string]()
		value := 1
		committed := false
		callErr := errors.New("boom")

		state, err := o.Do(context.Background(), "k", Op{
			Apply:  func() { value = 2 },
			Revert: func() { value = 1 },
			Call:   func(context.Context) error { return callErr },
			Commit: func() { committed = true },
		})
		if !errors.Is(err, callErr) {
			t.Fatalf("expected call error, got %v", err)
		}
		if state != RolledBack {
			t.Errorf("expected rolled back, got %v", state)
		}
		if value != 1 || committed {
			t.Errorf("expected value 1 and no commit, got %d, %v", value, committed)
		}
	})

	t.Run("second begin while pending is rejected", func(t *testing.T) {
		o := NewOptimistic[int]()
		applied := 0

		op := Op{
			Apply: func() { applied++ },
			Call:  func(context.Context) error { return nil },
		}

		first, err := o.Begin(1, op)
		if err != nil {
			t.Fatalf("first begin failed: %v", err)
		}
		if !o.InFlight(1) {
			t.Fatal("key should be in flight")
		}

		if _, err := o.Begin(1, op); !errors.Is(err, shared.ErrActionPending) {
			t.Fatalf("expected ErrActionPending, got %v", err)
		}
		if applied != 1 {
			t.Errorf("duplicate must not apply, applied %d times", applied)
		}

		if _, err := o.Begin(2, op); err != nil {
			t.Errorf("a different key must not be blocked: %v", err)
		}

		if _, err := first.Resolve(context.Background()); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if _, err := o.Begin(1, op); err != nil {
			t.Errorf("key should be free after resolve: %v", err)
		}
	})

	t.Run("resolve runs the call once", func(t *testing.T) {
		o := NewOptimistic[string]()
		calls := 0

		p, err := o.Begin("k", Op{Call: func(context.Context) error {
			calls++
			return nil
		}})
		if err != nil {
			t.Fatal(err)
		}
		p.Resolve(context.Background())
		state, _ := p.Resolve(context.Background())

		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
		if state != Committed {
			t.Errorf("second resolve should report the first outcome, got %v", state)
		}
	})

	t.Run("op without call", func(t *testing.T) {
		o := NewOptimistic[string]()
		if _, err := o.Begin("k", Op{}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if o.InFlight("k") {
			t.Error("rejected op must not hold the key")
		}
	})
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Idle:       "idle",
		Pending:    "pending",
		Committed:  "committed",
		RolledBack: "rolled_back",
		State(99):  "",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
