package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Class is a scheduled offering of a program at a school
type Class struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	ProgramID     string          `json:"program_id,omitempty"`
	SchoolID      string          `json:"school_id,omitempty"`
	Capacity      int             `json:"capacity"`
	EnrolledCount int             `json:"enrolled_count"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	Price         decimal.Decimal `json:"price"`
}

// Order represents a billing order for an enrollment
type Order struct {
	ID             string          `json:"id"`
	EnrollmentID   string          `json:"enrollment_id,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	Status         string          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BadgeAward links a badge template to a student
type BadgeAward struct {
	ID           string    `json:"id"`
	BadgeID      string    `json:"badge_id"`
	ChildID      string    `json:"child_id"`
	EnrollmentID string    `json:"enrollment_id,omitempty"`
	AwardedAt    time.Time `json:"awarded_at"`
	Notes        string    `json:"notes,omitempty"`
	AwardedBy    string    `json:"awarded_by,omitempty"`
}
