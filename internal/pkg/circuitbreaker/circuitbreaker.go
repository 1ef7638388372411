// Package circuitbreaker stops calling a failing dependency for a cool-down
// period, then lets a limited number of probe calls through.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker rejects calls
var ErrOpen = errors.New("circuit breaker is open")

// State is the breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Config holds breaker settings
type Config struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures int
	// Cooldown is how long the breaker stays open before probing
	Cooldown time.Duration
	// Probes is the number of calls admitted while half-open
	Probes int
	// OnStateChange is invoked synchronously, outside the breaker lock
	OnStateChange func(name string, from, to State)
	// IsFailure decides which errors count against the breaker. Context
	// cancellation never counts.
	IsFailure func(err error) bool
	// Now overrides the clock
	Now func() time.Time
}

// Breaker guards calls to one dependency
type Breaker struct {
	cfg Config

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int
	probesOK int
}

// New creates a closed breaker
func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{cfg: cfg}
}

// Do runs fn when the breaker admits the call and records its outcome
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := b.admit(); err != nil {
		return zero, err
	}
	result, err := fn(ctx)
	b.record(err)
	return result, err
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Name returns the configured name
func (b *Breaker) Name() string {
	return b.cfg.Name
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	var change func()
	defer func() {
		b.mu.Unlock()
		if change != nil {
			change()
		}
	}()

	switch b.state {
	case StateOpen:
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrOpen
		}
		change = b.setLocked(StateHalfOpen)
		b.inFlight++
	case StateHalfOpen:
		if b.inFlight >= b.cfg.Probes {
			return ErrOpen
		}
		b.inFlight++
	}
	return nil
}

func (b *Breaker) record(err error) {
	failed := err != nil && !errors.Is(err, context.Canceled) && b.cfg.IsFailure(err)

	b.mu.Lock()
	var change func()
	switch b.state {
	case StateClosed:
		if failed {
			b.failures++
			if b.failures >= b.cfg.MaxFailures {
				change = b.setLocked(StateOpen)
			}
		} else {
			b.failures = 0
		}
	case StateHalfOpen:
		b.inFlight--
		if failed {
			change = b.setLocked(StateOpen)
		} else {
			b.probesOK++
			if b.probesOK >= b.cfg.Probes {
				change = b.setLocked(StateClosed)
			}
		}
	}
	b.mu.Unlock()

	if change != nil {
		change()
	}
}

// setLocked moves to next and returns the notification to run after unlocking
func (b *Breaker) setLocked(next State) func() {
	prev := b.state
	b.state = next
	b.failures = 0
	b.inFlight = 0
	b.probesOK = 0
	if next == StateOpen {
		b.openedAt = b.cfg.Now()
	}
	if b.cfg.OnStateChange == nil || prev == next {
		return nil
	}
	name := b.cfg.Name
	return func() { b.cfg.OnStateChange(name, prev, next) }
}
