package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail(context.Context) error { return errBoom }
func ok(context.Context) error   { return nil }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 3, Cooldown: time.Minute, Probes: 1})

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, b.Do(context.Background(), fail), errBoom)
		require.Equal(t, StateClosed, b.State())
	}
	require.ErrorIs(t, b.Do(context.Background(), fail), errBoom)
	assert.Equal(t, StateOpen, b.State())

	calls := 0
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Zero(t, calls)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 2, Cooldown: time.Minute, Probes: 1})

	require.Error(t, b.Do(context.Background(), fail))
	require.NoError(t, b.Do(context.Background(), ok))
	require.Error(t, b.Do(context.Background(), fail))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerRecoversThroughProbes(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, Probes: 2})
	now := time.Now()
	b.now = func() time.Time { return now }

	require.Error(t, b.Do(context.Background(), fail))
	require.Equal(t, StateOpen, b.State())

	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Do(context.Background(), ok))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Do(context.Background(), ok))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, Probes: 2})
	now := time.Now()
	b.now = func() time.Time { return now }

	require.Error(t, b.Do(context.Background(), fail))
	now = now.Add(2 * time.Minute)

	require.ErrorIs(t, b.Do(context.Background(), fail), errBoom)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Do(context.Background(), ok), ErrOpen)
}

func TestBreakerLimitsConcurrentProbes(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, Probes: 1})
	now := time.Now()
	b.now = func() time.Time { return now }

	require.Error(t, b.Do(context.Background(), fail))
	now = now.Add(2 * time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, b.Do(context.Background(), ok), ErrOpen)
	close(release)
	<-done
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerIgnoresAbandonedOutcome(t *testing.T) {
	b := NewBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, Probes: 1})

	ctx, cancel := context.WithCancel(context.Background())
	err := b.Do(ctx, func(context.Context) error {
		cancel()
		return errBoom
	})
	require.Error(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerPropagatesCancellation(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := b.Do(ctx, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}
