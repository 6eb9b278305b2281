package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/placement-hub/placement-portal/internal/domain/shared"
	"github.com/placement-hub/placement-portal/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON OPPORTUNITY CHANGED HANDLER
// Drops cached catalog entries of deleted opportunities. The applicant
// counter is never cached, so application writes need no invalidation.
// ═══════════════════════════════════════════════════════════════════════════

// CacheInvalidator removes cached entries for the given opportunities.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, opportunityIDs ...int64) error
}

// OnOpportunityChangedHandler invalidates the opportunity cache.
type OnOpportunityChangedHandler struct {
	cache   CacheInvalidator
	log     *logger.Logger
	timeout time.Duration
}

// NewOnOpportunityChangedHandler creates a new OnOpportunityChangedHandler.
func NewOnOpportunityChangedHandler(cache CacheInvalidator, log *logger.Logger, timeout time.Duration) *OnOpportunityChangedHandler {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &OnOpportunityChangedHandler{
		cache:   cache,
		log:     log.With(logger.Component("cache_invalidation")),
		timeout: timeout,
	}
}

// EventTypes returns the events that change an opportunity's cached view.
func (h *OnOpportunityChangedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventOpportunityDeleted}
}

// Handle processes the event.
func (h *OnOpportunityChangedHandler) Handle(event shared.Event) error {
	e, ok := event.(shared.EntityChangedEvent)
	if !ok || e.EventType() != shared.EventOpportunityDeleted {
		return nil
	}
	id := e.ID

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.cache.Invalidate(ctx, id); err != nil {
		h.log.Warn("failed to invalidate opportunity cache", logger.OpportunityID(id), logger.Err(err))
		return fmt.Errorf("invalidate opportunity %d: %w", id, err)
	}
	return nil
}
