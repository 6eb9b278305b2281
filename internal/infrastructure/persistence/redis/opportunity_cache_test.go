package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/pkg/circuitbreaker"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheFromClient(client)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "opportunity:42", OpportunityKey(42))
}

func TestConfigFromURL(t *testing.T) {
	cfg, err := ConfigFromURL("redis://:secret@cache.internal:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 2, cfg.DB)

	_, err = ConfigFromURL("http://nope")
	assert.Error(t, err)
}

func TestOpportunityCache_RoundTripAndInvalidate(t *testing.T) {
	cache := newTestCache(t)
	oc := NewOpportunityCache(cache, time.Minute)
	ctx := context.Background()

	_, err := oc.Get(ctx, 7)
	assert.True(t, IsMiss(err))

	deadline := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	o := &opportunity.Opportunity{
		ID: 7, OfficeID: 1, Title: "Analyst", Company: "Acme", Vacancy: 2,
		MinCGPA: shared.MustCGPA(7.5), PostedOn: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Deadline: &deadline, ApplicationsCount: 3,
	}
	require.NoError(t, oc.Set(ctx, o))

	got, err := oc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, o.MinCGPA, got.MinCGPA)
	assert.Zero(t, got.ApplicationsCount, "counter is never cached")
	assert.Equal(t, 3, o.ApplicationsCount)
	require.NotNil(t, got.Deadline)
	assert.True(t, deadline.Equal(*got.Deadline))

	require.NoError(t, oc.Invalidate(ctx, 7))

	_, err = oc.Get(ctx, 7)
	assert.True(t, IsMiss(err))
}

func TestOpportunityCache_BreakerOpensOnOutage(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	breaker := circuitbreaker.CacheBreaker(IsOutage, nil)
	oc := NewOpportunityCache(NewCacheFromClient(client), time.Minute, WithBreaker(breaker))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := oc.Get(ctx, 7)
		require.Error(t, err)
		assert.False(t, IsMiss(err))
	}
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, err := oc.Get(ctx, 7)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.ErrorIs(t, oc.Set(ctx, &opportunity.Opportunity{ID: 7}), circuitbreaker.ErrCircuitOpen)

	// Invalidation bypasses the breaker and reaches the dead server.
	err = oc.Invalidate(ctx, 7)
	require.Error(t, err)
	assert.False(t, circuitbreaker.IsRejected(err))
}

func TestIsOutage(t *testing.T) {
	assert.False(t, IsOutage(nil))
	assert.False(t, IsOutage(ErrCacheMiss))
	assert.True(t, IsOutage(ErrCacheConnection))
}
