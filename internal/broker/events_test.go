package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"enrollment-portal/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func mutationEvent(eventType, entityID string) *models.MutationEvent {
	return &models.MutationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "ev-1",
			EventType: eventType,
			Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Origin:    "portal-a",
		},
		Operation:       "cancel",
		EntityID:        entityID,
		InvalidatedKeys: []string{"enrollments:list", "enrollments:detail:" + entityID},
	}
}

func TestPublishMutationKeysByEntity(t *testing.T) {
	w := &fakeWriter{}
	pub := NewEventPublisher(newProducer(w))

	require.NoError(t, pub.PublishMutation(context.Background(), mutationEvent(models.EventTypeEnrollmentCancelled, "e1")))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "enrollment-e1", string(w.msgs[0].Key))

	var decoded models.MutationEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventTypeEnrollmentCancelled, decoded.EventType)
	assert.Equal(t, "portal-a", decoded.Origin)
	assert.Equal(t, []string{"enrollments:list", "enrollments:detail:e1"}, decoded.InvalidatedKeys)
}

func TestPublishMutationWrapsWriterError(t *testing.T) {
	boom := errors.New("broker unavailable")
	pub := NewEventPublisher(newProducer(&fakeWriter{err: boom}))

	err := pub.PublishMutation(context.Background(), mutationEvent(models.EventTypeMutationFailed, ""))

	assert.ErrorIs(t, err, boom)
}

func TestHandleMessageRoutesByType(t *testing.T) {
	h := NewEventHandler()
	var succeeded, failed []string
	h.OnMutationSucceeded(func(ctx context.Context, ev *models.MutationEvent) error {
		succeeded = append(succeeded, ev.EventType)
		return nil
	})
	h.OnMutationFailed(func(ctx context.Context, ev *models.MutationEvent) error {
		failed = append(failed, ev.EntityID)
		return nil
	})

	for _, ev := range []*models.MutationEvent{
		mutationEvent(models.EventTypeEnrollmentPaused, "e1"),
		mutationEvent(models.EventTypeBadgeAwarded, "a1"),
		mutationEvent(models.EventTypeMutationFailed, "e2"),
		mutationEvent("ORDER_CREATED", "o1"),
	} {
		value, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: value}))
	}

	assert.Equal(t, []string{models.EventTypeEnrollmentPaused, models.EventTypeBadgeAwarded}, succeeded)
	assert.Equal(t, []string{"e2"}, failed)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	h := NewEventHandler()

	err := h.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})

	assert.Error(t, err)
}
