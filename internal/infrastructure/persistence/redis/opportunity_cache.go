package redis

import (
	"context"
	"errors"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/pkg/circuitbreaker"
)

// OpportunityCache stores the catalog fields of opportunities. The applicant
// counter moves with every committed create and delete, so it is never
// cached: entries are written with a zero count and callers fill in the live
// value from the store.
type OpportunityCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// OpportunityCacheOption configures an OpportunityCache.
type OpportunityCacheOption func(*OpportunityCache)

// WithBreaker routes reads and writes through cb. Invalidation always goes
// to Redis directly.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) OpportunityCacheOption {
	return func(c *OpportunityCache) {
		c.breaker = cb
	}
}

// NewOpportunityCache creates a new OpportunityCache. A non-positive ttl
// selects TTLOpportunityCache.
func NewOpportunityCache(cache *Cache, ttl time.Duration, opts ...OpportunityCacheOption) *OpportunityCache {
	if ttl <= 0 {
		ttl = TTLOpportunityCache
	}
	c := &OpportunityCache{
		cache: cache,
		ttl:   ttl,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpportunityCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.Execute(ctx, fn)
}

// Get returns the cached opportunity, with a zero counter, or ErrCacheMiss.
func (c *OpportunityCache) Get(ctx context.Context, id int64) (*opportunity.Opportunity, error) {
	var o opportunity.Opportunity
	err := c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Get(ctx, OpportunityKey(id), &o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Set caches the catalog fields of an opportunity.
func (c *OpportunityCache) Set(ctx context.Context, o *opportunity.Opportunity) error {
	if o == nil {
		return nil
	}
	entry := *o
	entry.ApplicationsCount = 0
	return c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, OpportunityKey(entry.ID), &entry, c.ttl)
	})
}

// Invalidate drops the cached entries for the given opportunities.
func (c *OpportunityCache) Invalidate(ctx context.Context, ids ...int64) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, OpportunityKey(id))
	}
	return c.cache.Delete(ctx, keys...)
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// IsOutage reports whether err should count against the cache breaker.
// Misses are normal traffic.
func IsOutage(err error) bool {
	return err != nil && !IsMiss(err)
}
