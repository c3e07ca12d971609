package event

import (
	"context"
	"sync/atomic"

	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const deliveredKeyPrefix = "event:"

// DeliveryStats counts what an IdempotentHandler did with the events it saw.
type DeliveryStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler runs the wrapped handler at most once per event id by
// claiming the id in an idempotency store before handling it.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// NewIdempotentHandler wraps handler. A disabled config passes every event through.
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, cfg shared.IdempotencyConfig, l *zap.Logger) *IdempotentHandler {
	return &IdempotentHandler{handler: handler, store: store, config: cfg, logger: l}
}

func (h *IdempotentHandler) EventTypes() []string { return h.handler.EventTypes() }

// Handle claims the event id and delegates. When the store is unreachable
// the event is handled anyway; a duplicate side effect beats a lost one.
func (h *IdempotentHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	if h.config.Enabled {
		id := ev.EventID().String()
		fresh, err := h.store.Remember(ctx, deliveredKeyPrefix+id, ev.EventType(), h.config.TTL)
		switch {
		case err != nil:
			logger.With(ctx, h.logger).Warn("event dedup unavailable, handling anyway",
				zap.String("event_id", id), zap.Error(err))
		case !fresh:
			h.duplicate.Add(1)
			logger.With(ctx, h.logger).Debug("duplicate event skipped",
				zap.String("event_id", id), zap.String("event_type", ev.EventType()))
			return nil
		}
	}

	if err := h.handler.Handle(ctx, ev); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns a snapshot of the delivery counters.
func (h *IdempotentHandler) Stats() DeliveryStats {
	return DeliveryStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
