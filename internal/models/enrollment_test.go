package models

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalStatuses(t *testing.T) {
	terminal := []EnrollmentStatus{EnrollmentStatusCompleted, EnrollmentStatusCancelled, EnrollmentStatusTransferred}
	open := []EnrollmentStatus{EnrollmentStatusPending, EnrollmentStatusActive, EnrollmentStatusPaused}

	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
		for _, to := range append(open, terminal...) {
			assert.False(t, CanTransition(s, to), "%s -> %s", s, to)
		}
	}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(EnrollmentStatusPending, EnrollmentStatusActive))
	assert.True(t, CanTransition(EnrollmentStatusPending, EnrollmentStatusCancelled))
	assert.True(t, CanTransition(EnrollmentStatusActive, EnrollmentStatusPaused))
	assert.True(t, CanTransition(EnrollmentStatusActive, EnrollmentStatusTransferred))
	assert.True(t, CanTransition(EnrollmentStatusPaused, EnrollmentStatusActive))

	assert.False(t, CanTransition(EnrollmentStatusPending, EnrollmentStatusPaused))
	assert.False(t, CanTransition(EnrollmentStatusPaused, EnrollmentStatusPaused))
}

func TestNewPlaceholderEnrollment(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	e := NewPlaceholderEnrollment("c1", "cl1", now)

	assert.Regexp(t, regexp.MustCompile(`^temp-\d+$`), e.ID)
	assert.Equal(t, "temp-1767607200000", e.ID)
	assert.True(t, e.IsPlaceholder())
	assert.Equal(t, EnrollmentStatusPending, e.Status)
	assert.True(t, e.BasePrice.IsZero())
	assert.True(t, e.DiscountAmount.IsZero())
	assert.True(t, e.FinalPrice.IsZero())
	assert.False(t, e.PaymentCompleted)
	assert.Equal(t, now, e.CreatedAt)
	assert.Equal(t, now, e.UpdatedAt)
	assert.Equal(t, now, e.EnrollmentDate)
}

func TestEnrollmentDecodesNumericMoney(t *testing.T) {
	raw := `{"id":"e1","child_id":"c1","class_id":"cl2","status":"ACTIVE","base_price":150,"discount_amount":30.5,"final_price":119.5}`

	var e Enrollment
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	assert.Equal(t, "cl2", e.ClassID)
	assert.Equal(t, EnrollmentStatusActive, e.Status)
	assert.Equal(t, "119.5", e.FinalPrice.String())
}

func TestCancelResultHasRefund(t *testing.T) {
	var withRefund, zeroRefund, noRefund CancelResult
	require.NoError(t, json.Unmarshal([]byte(`{"message":"ok","refund_amount":50}`), &withRefund))
	require.NoError(t, json.Unmarshal([]byte(`{"message":"ok","refund_amount":0}`), &zeroRefund))
	require.NoError(t, json.Unmarshal([]byte(`{"message":"ok"}`), &noRefund))

	assert.True(t, withRefund.HasRefund())
	assert.False(t, zeroRefund.HasRefund())
	assert.False(t, noRefund.HasRefund())
}
