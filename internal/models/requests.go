package models

import "github.com/shopspring/decimal"

// CreateEnrollmentRequest is the body of POST /enrollments
type CreateEnrollmentRequest struct {
	ChildID   string `json:"child_id"`
	ClassID   string `json:"class_id"`
	PromoCode string `json:"promo_code,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// CancelEnrollmentRequest targets POST /enrollments/{id}/cancel
type CancelEnrollmentRequest struct {
	EnrollmentID string `json:"-"`
	Reason       string `json:"reason,omitempty"`
}

// PauseEnrollmentRequest targets POST /enrollments/{id}/pause
type PauseEnrollmentRequest struct {
	EnrollmentID string `json:"-"`
	Reason       string `json:"reason,omitempty"`
}

// ResumeEnrollmentRequest targets POST /enrollments/{id}/resume
type ResumeEnrollmentRequest struct {
	EnrollmentID string `json:"-"`
}

// TransferEnrollmentRequest targets POST /enrollments/{id}/transfer
type TransferEnrollmentRequest struct {
	EnrollmentID string `json:"-"`
	NewClassID   string `json:"new_class_id"`
	Reason       string `json:"reason,omitempty"`
}

// CancelResult is the server response to a cancellation
type CancelResult struct {
	Message      string           `json:"message"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
}

// HasRefund reports whether the server granted a non-zero refund.
func (r CancelResult) HasRefund() bool {
	return r.RefundAmount != nil && !r.RefundAmount.IsZero()
}

// EnrollmentFilter narrows GET /enrollments
type EnrollmentFilter struct {
	ChildID string
	ClassID string
	Status  EnrollmentStatus
}

// AwardBadgeRequest is the body of POST /badges/award
type AwardBadgeRequest struct {
	BadgeID      string `json:"badge_id"`
	ChildID      string `json:"child_id"`
	EnrollmentID string `json:"enrollment_id,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// RevokeBadgeRequest targets POST /badges/awards/{id}/revoke
type RevokeBadgeRequest struct {
	AwardID string `json:"-"`
	ChildID string `json:"-"`
	Reason  string `json:"reason,omitempty"`
}

// MessageResponse is a bare acknowledgement from the backend
type MessageResponse struct {
	Message string `json:"message"`
}
