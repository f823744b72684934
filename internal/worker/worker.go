package worker

import (
	"context"
	"time"

	"enrollment-portal/internal/broker"
	"enrollment-portal/internal/invalidation"
	"enrollment-portal/internal/models"
	"enrollment-portal/internal/querycache"
	"enrollment-portal/internal/util"

	"go.uber.org/zap"
)

// invalidateTimeout bounds the local refetch triggered by a peer's event
const invalidateTimeout = 10 * time.Second

// SyncWorker replays peers' invalidations on the local cache, so a mutation
// made through another instance refreshes views mounted on this one.
type SyncWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	coordinator  *invalidation.Coordinator
	origin       string
	logger       *zap.Logger
}

// NewSyncWorker creates a worker ignoring events published under origin
func NewSyncWorker(consumer *broker.Consumer, coordinator *invalidation.Coordinator, origin string) *SyncWorker {
	w := &SyncWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		coordinator:  coordinator,
		origin:       origin,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnMutationSucceeded(w.handleSucceeded)
	w.eventHandler.OnMutationFailed(w.handleFailed)
	return w
}

// Start starts the worker
func (w *SyncWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cache sync worker", zap.String("origin", w.origin))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SyncWorker) Stop() error {
	w.logger.Info("Stopping cache sync worker")
	return w.consumer.Close()
}

func (w *SyncWorker) handleSucceeded(ctx context.Context, event *models.MutationEvent) error {
	if event.Origin == w.origin {
		util.SyncEventsTotal.WithLabelValues("self").Inc()
		return nil
	}
	if len(event.InvalidatedKeys) == 0 {
		util.SyncEventsTotal.WithLabelValues("empty").Inc()
		return nil
	}

	keys := make([]querycache.Key, 0, len(event.InvalidatedKeys))
	for _, k := range event.InvalidatedKeys {
		keys = append(keys, querycache.Key(k))
	}

	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	marked, err := w.coordinator.ApplyKeys(ctx, keys...)
	if err != nil {
		// the keys are marked; only the refetch was cut short
		util.SyncEventsTotal.WithLabelValues("partial").Inc()
		w.logger.Warn("Peer invalidation refetch interrupted",
			zap.String("event_id", event.EventID),
			zap.Error(err))
		return nil
	}

	util.SyncEventsTotal.WithLabelValues("applied").Inc()
	w.logger.Debug("Applied peer invalidation",
		zap.String("event_id", event.EventID),
		zap.String("origin", event.Origin),
		zap.String("operation", event.Operation),
		zap.Int("marked", len(marked)))
	return nil
}

func (w *SyncWorker) handleFailed(ctx context.Context, event *models.MutationEvent) error {
	util.SyncEventsTotal.WithLabelValues("failure_event").Inc()
	w.logger.Debug("Peer mutation failed",
		zap.String("origin", event.Origin),
		zap.String("operation", event.Operation),
		zap.String("entity_id", event.EntityID))
	return nil
}
