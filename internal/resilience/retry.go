package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// transientError marks an error as worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. Retryers only re-attempt calls whose
// error carries the mark; everything else fails fast.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err carries the retryable mark.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// RetryConfig defines retry behavior for upstream calls.
type RetryConfig struct {
	// MaxRetries is the number of re-attempts after the first call.
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// Multiplier is the factor by which the backoff grows per attempt.
	Multiplier float64
	// Jitter adds up to 25% randomness to each delay so synchronized
	// callers do not retry in lockstep.
	Jitter bool
}

// DefaultRetryConfig returns the retry behavior used for the recognition
// service.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}
}

// Retryer re-runs transient failures with exponential backoff.
type Retryer struct {
	config RetryConfig
}

// NewRetryer returns a Retryer with the given behavior.
func NewRetryer(config RetryConfig) *Retryer {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.MaxBackoff > 0 && config.InitialBackoff > config.MaxBackoff {
		config.InitialBackoff = config.MaxBackoff
	}
	return &Retryer{config: config}
}

// Do runs fn, re-running it while it returns transient errors, until it
// succeeds, fails permanently, or attempts run out. Backoff waits honor ctx
// cancellation, and the last error is returned as-is.
func (r *Retryer) Do(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil || !IsTransient(err) || attempt >= r.config.MaxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}
}

func (r *Retryer) backoff(attempt int) time.Duration {
	d := time.Duration(float64(r.config.InitialBackoff) * math.Pow(r.config.Multiplier, float64(attempt)))
	if r.config.MaxBackoff > 0 && d > r.config.MaxBackoff {
		d = r.config.MaxBackoff
	}
	if r.config.Jitter && d > 0 {
		d += time.Duration(rand.Int63n(int64(d)/4 + 1))
	}
	return d
}
