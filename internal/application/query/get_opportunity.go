// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"

	"github.com/placement-hub/placement-portal/internal/domain/opportunity"
	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/internal/domain/store"
	"github.com/placement-hub/placement-portal/pkg/logger"
)

// OpportunityCache is the read-through cache of opportunity catalog fields.
// It never holds the applicant counter. Any error from Get is treated as a
// miss.
type OpportunityCache interface {
	Get(ctx context.Context, id int64) (*opportunity.Opportunity, error)
	Set(ctx context.Context, o *opportunity.Opportunity) error
	Invalidate(ctx context.Context, ids ...int64) error
}

// ══════════════════════════════════════════════════════════════════════════════
// GET OPPORTUNITY QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetOpportunityQuery asks for one opportunity.
type GetOpportunityQuery struct {
	OpportunityID int64

	// SkipCache forces a store read.
	SkipCache bool
}

// Validate validates the query.
func (q GetOpportunityQuery) Validate() error {
	return shared.ValidateID("opportunity_id", q.OpportunityID)
}

// OpportunityHandler serves opportunity reads and their stats.
type OpportunityHandler struct {
	uow   store.UnitOfWork
	cache OpportunityCache
	log   *logger.Logger
}

// NewOpportunityHandler creates a new OpportunityHandler. cache may be nil.
func NewOpportunityHandler(uow store.UnitOfWork, cache OpportunityCache, log *logger.Logger) *OpportunityHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OpportunityHandler{
		uow:   uow,
		cache: cache,
		log:   log.With(logger.Component("opportunity_query")),
	}
}

// Get returns the opportunity. Catalog fields may come from the cache;
// applications_count is always read from the store, so it reflects every
// write committed before the call.
func (h *OpportunityHandler) Get(ctx context.Context, q GetOpportunityQuery) (*opportunity.Opportunity, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_opportunity: validation failed: %w", err)
	}

	if h.cache != nil && !q.SkipCache {
		if cached, err := h.cache.Get(ctx, q.OpportunityID); err == nil && cached != nil {
			return h.withLiveCounter(ctx, cached)
		}
	}

	var o *opportunity.Opportunity
	err := h.uow.WithinReadTx(ctx, func(tx store.Tx) error {
		var err error
		o, err = tx.Opportunities().GetByID(ctx, q.OpportunityID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, o); err != nil {
			h.log.Warn("failed to cache opportunity", logger.OpportunityID(o.ID), logger.Err(err))
		}
	}
	return o, nil
}

// withLiveCounter fills a cached entry's counter from the store. A cached
// opportunity that no longer exists is evicted and reported as not found.
func (h *OpportunityHandler) withLiveCounter(ctx context.Context, cached *opportunity.Opportunity) (*opportunity.Opportunity, error) {
	var count int
	err := h.uow.WithinReadTx(ctx, func(tx store.Tx) error {
		var err error
		count, err = tx.Opportunities().ApplicationsCount(ctx, cached.ID)
		return err
	})
	if shared.IsNotFound(err) {
		if err := h.cache.Invalidate(ctx, cached.ID); err != nil {
			h.log.Warn("failed to evict deleted opportunity", logger.OpportunityID(cached.ID), logger.Err(err))
		}
		return nil, shared.ErrOpportunityNotFound
	}
	if err != nil {
		return nil, err
	}
	cached.ApplicationsCount = count
	return cached, nil
}

// Stats returns applicant statistics for the opportunity. Stats move with
// every application write and are always read from the store.
func (h *OpportunityHandler) Stats(ctx context.Context, q GetOpportunityQuery) (*opportunity.Stats, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_opportunity_stats: validation failed: %w", err)
	}

	var st *opportunity.Stats
	err := h.uow.WithinReadTx(ctx, func(tx store.Tx) error {
		var err error
		st, err = tx.Opportunities().Stats(ctx, q.OpportunityID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
