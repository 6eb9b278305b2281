package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("dial tcp: connection refused")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func fail(context.Context) error { return errDown }

func succeed(context.Context) error { return nil }

func newBreaker(clock *fakeClock, opts ...Option) *CircuitBreaker {
	return New("test", append([]Option{
		WithFailureThreshold(2),
		WithSuccessThreshold(1),
		WithTimeout(10 * time.Second),
		WithClock(clock.Now),
	}, opts...)...)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	cb := newBreaker(clock)

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRejected(err))
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	var transitions []string
	cb := newBreaker(clock, WithOnStateChange(func(_ string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(10 * time.Second)
	require.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	cb := newBreaker(clock)

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	clock.Advance(11 * time.Second)

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(context.Background(), succeed), ErrCircuitOpen)
}

func TestCircuitBreaker_IgnoresNonFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	errMiss := errors.New("cache miss")
	cb := newBreaker(clock, WithIsFailure(func(err error) bool { return !errors.Is(err, errMiss) }))

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return errMiss }), errMiss)
	}
	assert.Equal(t, StateClosed, cb.State())

	counts := cb.Counts()
	assert.Equal(t, 5, counts.Requests)
	assert.Equal(t, 5, counts.TotalSuccesses)
	assert.Zero(t, counts.TotalFailures)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)}
	cb := newBreaker(clock)

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	cb.Reset()

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
	assert.Equal(t, "test", cb.Name())
}
