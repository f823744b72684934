package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

// Enrollment statuses
const (
	EnrollmentStatusPending     EnrollmentStatus = "PENDING"
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusPaused      EnrollmentStatus = "PAUSED"
	EnrollmentStatusCompleted   EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled   EnrollmentStatus = "CANCELLED"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
)

// PlaceholderPrefix marks client-generated ids awaiting server confirmation.
const PlaceholderPrefix = "temp-"

var transitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusPending: {EnrollmentStatusActive, EnrollmentStatusCancelled},
	EnrollmentStatusActive: {
		EnrollmentStatusPaused,
		EnrollmentStatusCompleted,
		EnrollmentStatusCancelled,
		EnrollmentStatusTransferred,
	},
	EnrollmentStatusPaused: {EnrollmentStatusActive},
}

// IsTerminal reports whether no further transition is permitted.
func (s EnrollmentStatus) IsTerminal() bool {
	switch s {
	case EnrollmentStatusCompleted, EnrollmentStatusCancelled, EnrollmentStatusTransferred:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to EnrollmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Enrollment represents one child's participation in one class
type Enrollment struct {
	ID               string           `json:"id"`
	ChildID          string           `json:"child_id"`
	ClassID          string           `json:"class_id"`
	UserID           string           `json:"user_id,omitempty"`
	Status           EnrollmentStatus `json:"status"`
	BasePrice        decimal.Decimal  `json:"base_price"`
	DiscountAmount   decimal.Decimal  `json:"discount_amount"`
	FinalPrice       decimal.Decimal  `json:"final_price"`
	EnrollmentDate   time.Time        `json:"enrollment_date"`
	PaymentCompleted bool             `json:"payment_completed"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// SetPricing replaces the pricing inputs and recomputes the final price.
func (e *Enrollment) SetPricing(base, discount decimal.Decimal) {
	e.BasePrice = base
	e.DiscountAmount = discount
	e.FinalPrice = FinalPrice(base, discount)
}

// IsPlaceholder reports whether the enrollment carries a client-generated id.
func (e Enrollment) IsPlaceholder() bool {
	return IsPlaceholderID(e.ID)
}

// PlaceholderID returns the temporary id used between optimistic insert and confirmation.
func PlaceholderID(now time.Time) string {
	return fmt.Sprintf("%s%d", PlaceholderPrefix, now.UnixMilli())
}

// IsPlaceholderID reports whether id was generated client-side.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// NewPlaceholderEnrollment builds the synthetic entry appended by an optimistic create.
func NewPlaceholderEnrollment(childID, classID string, now time.Time) Enrollment {
	e := Enrollment{
		ID:               PlaceholderID(now),
		ChildID:          childID,
		ClassID:          classID,
		Status:           EnrollmentStatusPending,
		EnrollmentDate:   now,
		PaymentCompleted: false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	e.SetPricing(decimal.Zero, decimal.Zero)
	return e
}
