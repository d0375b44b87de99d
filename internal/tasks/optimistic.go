package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/recap/internal/shared"
)

// State is the lifecycle of one optimistic action.
type State int

const (
	Idle State = iota
	Pending
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return ""
	}
}

// Op describes one optimistic action.
//
// Apply runs synchronously inside Begin and must not block. Call performs
// the request. Exactly one of Commit or Revert runs afterwards, depending on
// whether Call returned an error. Commit and Revert may be nil.
type Op struct {
	Apply  func()
	Revert func()
	Call   func(ctx context.Context) error
	Commit func()
}

// Optimistic guarantees at most one in-flight action per key.
type Optimistic[K comparable] struct {
	mu       sync.Mutex
	inflight map[K]struct{}
}

func NewOptimistic[K comparable]() *Optimistic[K] {
	return &Optimistic[K]{inflight: make(map[K]struct{})}
}

// Begin applies op and marks key as in flight.
//
// When an action for key is already pending, Begin returns
// [shared.ErrActionPending] and neither applies nor calls anything.
func (o *Optimistic[K]) Begin(key K, op Op) (*PendingAction[K], error) {
	if op.Call == nil {
		return nil, fmt.Errorf("%w: optimistic op without a call", shared.ErrInvalidInput)
	}

	o.mu.Lock()
	if _, busy := o.inflight[key]; busy {
		o.mu.Unlock()
		return nil, shared.ErrActionPending
	}
	o.inflight[key] = struct{}{}
	o.mu.Unlock()

	if op.Apply != nil {
		op.Apply()
	}
	return &PendingAction[K]{owner: o, key: key, op: op}, nil
}

// Do is Begin followed by Resolve.
func (o *Optimistic[K]) Do(ctx context.Context, key K, op Op) (State, error) {
	p, err := o.Begin(key, op)
	if err != nil {
		return Idle, err
	}
	return p.Resolve(ctx)
}

// InFlight reports whether an action for key is pending.
func (o *Optimistic[K]) InFlight(key K) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.inflight[key]
	return ok
}

func (o *Optimistic[K]) release(key K) {
	o.mu.Lock()
	delete(o.inflight, key)
	o.mu.Unlock()
}

// PendingAction is an applied but unconfirmed action returned by [Optimistic.Begin].
type PendingAction[K comparable] struct {
	owner *Optimistic[K]
	key   K
	op    Op

	once  sync.Once
	state State
	err   error
}

// Key returns the key the action holds.
func (p *PendingAction[K]) Key() K { return p.key }

// Resolve runs the call and then commits or reverts. The key is released
// before Resolve returns. Later calls return the first outcome.
func (p *PendingAction[K]) Resolve(ctx context.Context) (State, error) {
	p.once.Do(func() {
		defer p.owner.release(p.key)

		if err := p.op.Call(ctx); err != nil {
			if p.op.Revert != nil {
				p.op.Revert()
			}
			p.state, p.err = RolledBack, err
			return
		}
		if p.op.Commit != nil {
			p.op.Commit()
		}
		p.state = Committed
	})
	return p.state, p.err
}
