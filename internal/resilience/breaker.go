package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without attempting it.
var ErrOpen = errors.New("resilience: circuit open")

// State is the breaker's position in the closed/open/half-open cycle.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// BreakerConfig sets the failure threshold and recovery behavior.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that opens the circuit.
	MaxFailures int
	// Cooldown is how long the circuit stays open before probing resumes.
	Cooldown time.Duration
	// Probes is the number of half-open calls admitted; all of them must
	// succeed for the circuit to close again.
	Probes int
}

// DefaultBreakerConfig returns the thresholds used for the recognition
// service.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
		Probes:      2,
	}
}

// Breaker is a consecutive-failure circuit breaker. It needs no steady
// traffic to stay accurate: the call sites it protects see one call per
// anonymize request, so rolling-window failure rates would starve between
// requests.
type Breaker struct {
	mu        sync.Mutex
	config    BreakerConfig
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time

	now func() time.Time
}

// NewBreaker returns a closed Breaker with the given thresholds.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig().Cooldown
	}
	if config.Probes <= 0 {
		config.Probes = 1
	}
	return &Breaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Do runs fn under the breaker. While the circuit is open fn is not called
// and ErrOpen is returned. Outcomes observed after ctx ended are not
// counted: a caller giving up is not evidence against the service.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.observe(err, ctx.Err() == nil)
	return err
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
	}
	if b.state == StateHalfOpen {
		if b.probes >= b.config.Probes {
			return ErrOpen
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) observe(err error, counted bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !counted {
		// Return the probe slot so an abandoned call cannot wedge the
		// half-open state.
		if b.state == StateHalfOpen && b.probes > 0 {
			b.probes--
		}
		return
	}

	switch b.state {
	case StateHalfOpen:
		if err != nil {
			b.transition(StateOpen)
			return
		}
		b.successes++
		if b.successes >= b.config.Probes {
			b.transition(StateClosed)
		}
	case StateClosed:
		if err != nil {
			b.failures++
			if b.failures >= b.config.MaxFailures {
				b.transition(StateOpen)
			}
			return
		}
		b.failures = 0
	}
}

func (b *Breaker) transition(next State) {
	b.state = next
	b.failures = 0
	b.successes = 0
	b.probes = 0
	if next == StateOpen {
		b.openedAt = b.now()
	}
}
