package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"enrollment-portal/internal/models"
	"enrollment-portal/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes resolved mutations to the enrollment topic
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishMutation publishes a mutation event keyed by the mutated entity, so
// events for one entity stay ordered within a partition.
func (ep *EventPublisher) PublishMutation(ctx context.Context, event *models.MutationEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event), event)
}

func eventKey(event *models.MutationEvent) string {
	if event.EntityID != "" {
		return "enrollment-" + event.EntityID
	}
	return "mutation-" + event.Operation
}

// EventHandler routes incoming mutation events
type EventHandler struct {
	onSucceeded func(context.Context, *models.MutationEvent) error
	onFailed    func(context.Context, *models.MutationEvent) error
	logger      *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnMutationSucceeded registers a handler for successful mutations of any type
func (eh *EventHandler) OnMutationSucceeded(handler func(context.Context, *models.MutationEvent) error) {
	eh.onSucceeded = handler
}

// OnMutationFailed registers a handler for MUTATION_FAILED events
func (eh *EventHandler) OnMutationFailed(handler func(context.Context, *models.MutationEvent) error) {
	eh.onFailed = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID),
		zap.String("origin", baseEvent.Origin))

	var handler func(context.Context, *models.MutationEvent) error
	switch baseEvent.EventType {
	case models.EventTypeEnrollmentCreated,
		models.EventTypeEnrollmentCancelled,
		models.EventTypeEnrollmentPaused,
		models.EventTypeEnrollmentResumed,
		models.EventTypeEnrollmentTransferred,
		models.EventTypeBadgeAwarded,
		models.EventTypeBadgeRevoked:
		handler = eh.onSucceeded
	case models.EventTypeMutationFailed:
		handler = eh.onFailed
	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
		return nil
	}
	if handler == nil {
		return nil
	}

	var event models.MutationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
	}
	return handler(ctx, &event)
}
