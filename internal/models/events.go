package models

import "time"

// Event types
const (
	EventTypeEnrollmentCreated     = "ENROLLMENT_CREATED"
	EventTypeEnrollmentCancelled   = "ENROLLMENT_CANCELLED"
	EventTypeEnrollmentPaused      = "ENROLLMENT_PAUSED"
	EventTypeEnrollmentResumed     = "ENROLLMENT_RESUMED"
	EventTypeEnrollmentTransferred = "ENROLLMENT_TRANSFERRED"
	EventTypeBadgeAwarded          = "BADGE_AWARDED"
	EventTypeBadgeRevoked          = "BADGE_REVOKED"
	EventTypeMutationFailed        = "MUTATION_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin"`
}

// MutationEvent is published after a mutation resolves. Successful events
// carry the cache keys the origin invalidated so peers can do the same.
type MutationEvent struct {
	BaseEvent
	Operation       string   `json:"operation"`
	EntityID        string   `json:"entity_id,omitempty"`
	Message         string   `json:"message,omitempty"`
	InvalidatedKeys []string `json:"invalidated_keys,omitempty"`
}
