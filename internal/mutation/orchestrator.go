package mutation

import (
	"context"
	"time"

	"enrollment-portal/internal/clock"
	"enrollment-portal/internal/invalidation"
	"enrollment-portal/internal/models"
	"enrollment-portal/internal/querycache"
	"enrollment-portal/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier surfaces mutation outcomes to the user as toasts
type Notifier interface {
	Success(message string)
	Error(message string)
}

// EventPublisher receives resolved mutation events
type EventPublisher interface {
	PublishMutation(ctx context.Context, event *models.MutationEvent) error
}

// Orchestrator holds what every optimistic mutation shares: the cache, the
// invalidation coordinator, the notifier and the per-entity lock.
type Orchestrator struct {
	store       *querycache.Store
	coordinator *invalidation.Coordinator
	notifier    Notifier
	locker      Locker
	publisher   EventPublisher
	clock       clock.Clock
	origin      string
	logger      *zap.Logger
}

type Option func(*Orchestrator)

// WithLocker replaces the default in-process KeyedMutex
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) {
		o.locker = l
	}
}

// WithPublisher publishes an event after every resolved mutation
func WithPublisher(p EventPublisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithOrigin tags published events with the instance id
func WithOrigin(origin string) Option {
	return func(o *Orchestrator) {
		o.origin = origin
	}
}

// NewOrchestrator creates an orchestrator over store
func NewOrchestrator(store *querycache.Store, notifier Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		coordinator: invalidation.NewCoordinator(store),
		notifier:    notifier,
		locker:      NewKeyedMutex(),
		clock:       clock.Real(),
		logger:      util.GetLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Store returns the cache the orchestrator writes to
func (o *Orchestrator) Store() *querycache.Store {
	return o.store
}

// Coordinator returns the invalidation coordinator over Store
func (o *Orchestrator) Coordinator() *invalidation.Coordinator {
	return o.coordinator
}

// Now reads the orchestrator's clock
func (o *Orchestrator) Now() time.Time {
	return o.clock.Now()
}

func (o *Orchestrator) acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return func() {}, nil
	}
	start := time.Now()
	release, err := o.locker.Acquire(ctx, key)
	util.MutationLockWait.Observe(time.Since(start).Seconds())
	return release, err
}

func (o *Orchestrator) publish(ctx context.Context, eventType, operation, entityID, message string, keys []querycache.Key) {
	if o.publisher == nil {
		return
	}

	invalidated := make([]string, 0, len(keys))
	for _, k := range keys {
		invalidated = append(invalidated, string(k))
	}

	event := &models.MutationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: o.clock.Now(),
			Origin:    o.origin,
		},
		Operation:       operation,
		EntityID:        entityID,
		Message:         message,
		InvalidatedKeys: invalidated,
	}

	if err := o.publisher.PublishMutation(ctx, event); err != nil {
		o.logger.Error("Failed to publish mutation event",
			zap.String("event_type", eventType),
			zap.String("operation", operation),
			zap.Error(err))
	}
}
