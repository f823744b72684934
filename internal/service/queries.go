package service

import (
	"context"
	"time"

	"enrollment-portal/internal/invalidation"
	"enrollment-portal/internal/models"
	"enrollment-portal/internal/querycache"

	"github.com/shopspring/decimal"
)

// RefundEstimate is the advisory refund shown before a cancellation
type RefundEstimate struct {
	EnrollmentID string          `json:"enrollment_id"`
	Paid         decimal.Decimal `json:"paid"`
	Percent      int64           `json:"percent"`
	Amount       decimal.Decimal `json:"amount"`
	ClassStart   time.Time       `json:"class_start"`
}

// EnrollmentsQuery reads the enrollment list. Filtered lists live under the
// list key so list invalidation reaches them.
func (s *EnrollmentService) EnrollmentsQuery(filter models.EnrollmentFilter) *querycache.Query[[]models.Enrollment] {
	return querycache.NewQuery(s.store, EnrollmentListKey(filter), func(ctx context.Context) ([]models.Enrollment, error) {
		return s.backend.ListEnrollments(ctx, filter)
	})
}

// EnrollmentQuery reads one enrollment
func (s *EnrollmentService) EnrollmentQuery(id string) *querycache.Query[models.Enrollment] {
	return querycache.NewQuery(s.store, invalidation.EnrollmentDetailKey(id), func(ctx context.Context) (models.Enrollment, error) {
		return s.backend.GetEnrollment(ctx, id)
	})
}

// ChildEnrollmentsQuery reads the enrollments of one child
func (s *EnrollmentService) ChildEnrollmentsQuery(childID string) *querycache.Query[[]models.Enrollment] {
	return querycache.NewQuery(s.store, invalidation.ChildEnrollmentsKey(childID), func(ctx context.Context) ([]models.Enrollment, error) {
		return s.backend.ListEnrollments(ctx, models.EnrollmentFilter{ChildID: childID})
	})
}

func (s *EnrollmentService) ClassQuery(id string) *querycache.Query[models.Class] {
	return querycache.NewQuery(s.store, invalidation.ClassDetailKey(id), func(ctx context.Context) (models.Class, error) {
		return s.backend.GetClass(ctx, id)
	})
}

func (s *EnrollmentService) OrdersQuery() *querycache.Query[[]models.Order] {
	return querycache.NewQuery(s.store, invalidation.OrderListKey(), func(ctx context.Context) ([]models.Order, error) {
		return s.backend.ListOrders(ctx)
	})
}

// EnrollmentListKey is the cache key of a filtered enrollment list. The
// unfiltered list is the bare list key.
func EnrollmentListKey(filter models.EnrollmentFilter) querycache.Key {
	parts := []string{string(invalidation.EnrollmentListKey())}
	if filter.ChildID != "" {
		parts = append(parts, "child="+filter.ChildID)
	}
	if filter.ClassID != "" {
		parts = append(parts, "class="+filter.ClassID)
	}
	if filter.Status != "" {
		parts = append(parts, "status="+string(filter.Status))
	}
	return querycache.NewKey(parts...)
}
