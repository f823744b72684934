package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"enrollment-portal/internal/invalidation"
	"enrollment-portal/internal/models"
	"enrollment-portal/internal/mutation"
	"enrollment-portal/internal/querycache"
	"enrollment-portal/internal/util"

	"go.uber.org/zap"
)

// EnrollmentService exposes the enrollment mutations and reads
type EnrollmentService struct {
	backend Backend
	orch    *mutation.Orchestrator
	store   *querycache.Store
	logger  *zap.Logger

	Create   *mutation.Mutation[models.CreateEnrollmentRequest, models.Enrollment]
	Cancel   *mutation.Mutation[models.CancelEnrollmentRequest, models.CancelResult]
	Pause    *mutation.Mutation[models.PauseEnrollmentRequest, models.Enrollment]
	Resume   *mutation.Mutation[models.ResumeEnrollmentRequest, models.Enrollment]
	Transfer *mutation.Mutation[models.TransferEnrollmentRequest, models.Enrollment]
}

// NewEnrollmentService builds the five enrollment mutations over orch
func NewEnrollmentService(backend Backend, orch *mutation.Orchestrator) *EnrollmentService {
	s := &EnrollmentService{
		backend: backend,
		orch:    orch,
		store:   orch.Store(),
		logger:  util.GetLogger(),
	}
	s.Create = mutation.New(orch, s.createCommand())
	s.Cancel = mutation.New(orch, s.cancelCommand())
	s.Pause = mutation.New(orch, s.pauseCommand())
	s.Resume = mutation.New(orch, s.resumeCommand())
	s.Transfer = mutation.New(orch, s.transferCommand())
	return s
}

func (s *EnrollmentService) createCommand() mutation.Command[models.CreateEnrollmentRequest, models.Enrollment] {
	return mutation.Command[models.CreateEnrollmentRequest, models.Enrollment]{
		Name:           invalidation.OpCreate,
		EventType:      models.EventTypeEnrollmentCreated,
		FailureMessage: "Failed to create enrollment",
		Validate: func(in models.CreateEnrollmentRequest) error {
			if strings.TrimSpace(in.ChildID) == "" {
				return mutation.Reject(mutation.ErrValidation, "child_id is required")
			}
			if strings.TrimSpace(in.ClassID) == "" {
				return mutation.Reject(mutation.ErrValidation, "class_id is required")
			}
			return nil
		},
		// every create writes the shared list, so creates queue on it
		LockKey: func(models.CreateEnrollmentRequest) string {
			return string(invalidation.EnrollmentListKey())
		},
		Target: func(models.CreateEnrollmentRequest) querycache.Key {
			return invalidation.EnrollmentListKey()
		},
		Optimistic: func(in models.CreateEnrollmentRequest, current any, present bool, now time.Time) (any, bool, error) {
			var list []models.Enrollment
			if present {
				existing, ok := current.([]models.Enrollment)
				if !ok {
					return nil, false, nil
				}
				list = make([]models.Enrollment, 0, len(existing)+1)
				list = append(list, existing...)
			}
			list = append(list, models.NewPlaceholderEnrollment(in.ChildID, in.ClassID, now))
			return list, true, nil
		},
		Call: func(ctx context.Context, in models.CreateEnrollmentRequest) (models.Enrollment, error) {
			return s.backend.CreateEnrollment(ctx, in)
		},
		Affected: func(in models.CreateEnrollmentRequest, out models.Enrollment, _ querycache.Snapshot) invalidation.Affected {
			return invalidation.Affected{
				EnrollmentID: out.ID,
				ChildID:      firstNonEmpty(out.ChildID, in.ChildID),
				ClassID:      firstNonEmpty(out.ClassID, in.ClassID),
			}
		},
		SuccessMessage: func(models.CreateEnrollmentRequest, models.Enrollment) string {
			return "Enrollment created successfully"
		},
		EntityID: func(_ models.CreateEnrollmentRequest, out models.Enrollment) string {
			return out.ID
		},
	}
}

func (s *EnrollmentService) cancelCommand() mutation.Command[models.CancelEnrollmentRequest, models.CancelResult] {
	return mutation.Command[models.CancelEnrollmentRequest, models.CancelResult]{
		Name:           invalidation.OpCancel,
		EventType:      models.EventTypeEnrollmentCancelled,
		FailureMessage: "Failed to cancel enrollment",
		Validate: func(in models.CancelEnrollmentRequest) error {
			return requireEnrollmentID(in.EnrollmentID)
		},
		LockKey: func(in models.CancelEnrollmentRequest) string { return lockKey(in.EnrollmentID) },
		Target:  func(in models.CancelEnrollmentRequest) querycache.Key { return invalidation.EnrollmentDetailKey(in.EnrollmentID) },
		Optimistic: func(_ models.CancelEnrollmentRequest, current any, present bool, _ time.Time) (any, bool, error) {
			return transformDetail(current, present, func(e *models.Enrollment) {
				e.Status = models.EnrollmentStatusCancelled
			})
		},
		Call: func(ctx context.Context, in models.CancelEnrollmentRequest) (models.CancelResult, error) {
			return s.backend.CancelEnrollment(ctx, in)
		},
		Affected: func(in models.CancelEnrollmentRequest, _ models.CancelResult, _ querycache.Snapshot) invalidation.Affected {
			return invalidation.Affected{EnrollmentID: in.EnrollmentID}
		},
		SuccessMessage: func(_ models.CancelEnrollmentRequest, out models.CancelResult) string {
			if out.HasRefund() {
				return fmt.Sprintf("Enrollment cancelled. Refund of $%s will be processed.", models.FormatAmount(*out.RefundAmount))
			}
			return "Enrollment cancelled successfully"
		},
		EntityID: func(in models.CancelEnrollmentRequest, _ models.CancelResult) string { return in.EnrollmentID },
	}
}

func (s *EnrollmentService) pauseCommand() mutation.Command[models.PauseEnrollmentRequest, models.Enrollment] {
	return mutation.Command[models.PauseEnrollmentRequest, models.Enrollment]{
		Name:           invalidation.OpPause,
		EventType:      models.EventTypeEnrollmentPaused,
		FailureMessage: "Failed to pause enrollment",
		Validate: func(in models.PauseEnrollmentRequest) error {
			return requireEnrollmentID(in.EnrollmentID)
		},
		LockKey: func(in models.PauseEnrollmentRequest) string { return lockKey(in.EnrollmentID) },
		Target:  func(in models.PauseEnrollmentRequest) querycache.Key { return invalidation.EnrollmentDetailKey(in.EnrollmentID) },
		Optimistic: func(_ models.PauseEnrollmentRequest, current any, present bool, _ time.Time) (any, bool, error) {
			return transformDetail(current, present, func(e *models.Enrollment) {
				e.Status = models.EnrollmentStatusPaused
			})
		},
		Call: func(ctx context.Context, in models.PauseEnrollmentRequest) (models.Enrollment, error) {
			return s.backend.PauseEnrollment(ctx, in)
		},
		Affected: func(in models.PauseEnrollmentRequest, _ models.Enrollment, _ querycache.Snapshot) invalidation.Affected {
			return invalidation.Affected{EnrollmentID: in.EnrollmentID}
		},
		SuccessMessage: func(models.PauseEnrollmentRequest, models.Enrollment) string {
			return "Enrollment paused successfully"
		},
		EntityID: func(in models.PauseEnrollmentRequest, _ models.Enrollment) string { return in.EnrollmentID },
	}
}

func (s *EnrollmentService) resumeCommand() mutation.Command[models.ResumeEnrollmentRequest, models.Enrollment] {
	return mutation.Command[models.ResumeEnrollmentRequest, models.Enrollment]{
		Name:           invalidation.OpResume,
		EventType:      models.EventTypeEnrollmentResumed,
		FailureMessage: "Failed to resume enrollment",
		Validate: func(in models.ResumeEnrollmentRequest) error {
			return requireEnrollmentID(in.EnrollmentID)
		},
		LockKey: func(in models.ResumeEnrollmentRequest) string { return lockKey(in.EnrollmentID) },
		Target:  func(in models.ResumeEnrollmentRequest) querycache.Key { return invalidation.EnrollmentDetailKey(in.EnrollmentID) },
		Optimistic: func(_ models.ResumeEnrollmentRequest, current any, present bool, _ time.Time) (any, bool, error) {
			return transformDetail(current, present, func(e *models.Enrollment) {
				e.Status = models.EnrollmentStatusActive
			})
		},
		Call: func(ctx context.Context, in models.ResumeEnrollmentRequest) (models.Enrollment, error) {
			return s.backend.ResumeEnrollment(ctx, in)
		},
		Affected: func(in models.ResumeEnrollmentRequest, _ models.Enrollment, _ querycache.Snapshot) invalidation.Affected {
			return invalidation.Affected{EnrollmentID: in.EnrollmentID}
		},
		SuccessMessage: func(models.ResumeEnrollmentRequest, models.Enrollment) string {
			return "Enrollment resumed successfully"
		},
		EntityID: func(in models.ResumeEnrollmentRequest, _ models.Enrollment) string { return in.EnrollmentID },
	}
}

func (s *EnrollmentService) transferCommand() mutation.Command[models.TransferEnrollmentRequest, models.Enrollment] {
	return mutation.Command[models.TransferEnrollmentRequest, models.Enrollment]{
		Name:           invalidation.OpTransfer,
		EventType:      models.EventTypeEnrollmentTransferred,
		FailureMessage: "Failed to transfer enrollment",
		Validate: func(in models.TransferEnrollmentRequest) error {
			if err := requireEnrollmentID(in.EnrollmentID); err != nil {
				return err
			}
			if strings.TrimSpace(in.NewClassID) == "" {
				return mutation.Reject(mutation.ErrValidation, "new_class_id is required")
			}
			return nil
		},
		LockKey: func(in models.TransferEnrollmentRequest) string { return lockKey(in.EnrollmentID) },
		Target:  func(in models.TransferEnrollmentRequest) querycache.Key { return invalidation.EnrollmentDetailKey(in.EnrollmentID) },
		// pricing stays as cached; proration is computed server-side
		Optimistic: func(in models.TransferEnrollmentRequest, current any, present bool, _ time.Time) (any, bool, error) {
			return transformDetail(current, present, func(e *models.Enrollment) {
				e.ClassID = in.NewClassID
			})
		},
		Call: func(ctx context.Context, in models.TransferEnrollmentRequest) (models.Enrollment, error) {
			return s.backend.TransferEnrollment(ctx, in)
		},
		Affected: func(in models.TransferEnrollmentRequest, out models.Enrollment, before querycache.Snapshot) invalidation.Affected {
			a := invalidation.Affected{
				EnrollmentID:  in.EnrollmentID,
				ChildID:       out.ChildID,
				TargetClassID: in.NewClassID,
			}
			if prev, ok := before.Data.(models.Enrollment); ok && before.Present {
				a.ClassID = prev.ClassID
				if a.ChildID == "" {
					a.ChildID = prev.ChildID
				}
			}
			return a
		},
		SuccessMessage: func(models.TransferEnrollmentRequest, models.Enrollment) string {
			return "Enrollment transferred successfully"
		},
		EntityID: func(in models.TransferEnrollmentRequest, _ models.Enrollment) string { return in.EnrollmentID },
	}
}

// transformDetail applies fn to a copy of the cached enrollment. Absent or
// foreign entries are left untouched, and terminal enrollments are rejected
// before any request is sent.
func transformDetail(current any, present bool, fn func(e *models.Enrollment)) (any, bool, error) {
	if !present {
		return nil, false, nil
	}
	e, ok := current.(models.Enrollment)
	if !ok {
		return nil, false, nil
	}
	if e.Status.IsTerminal() {
		return nil, false, mutation.Reject(mutation.ErrTerminalStatus,
			"Enrollment is %s and can no longer be changed", strings.ToLower(string(e.Status)))
	}
	fn(&e)
	return e, true, nil
}

func requireEnrollmentID(id string) error {
	if strings.TrimSpace(id) == "" {
		return mutation.Reject(mutation.ErrValidation, "enrollment_id is required")
	}
	return nil
}

func lockKey(enrollmentID string) string {
	return "enrollment:" + enrollmentID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// EstimateCancellationRefund applies the advisory refund policy to the cached
// enrollment and its class. Display only; the server decides the refund.
func (s *EnrollmentService) EstimateCancellationRefund(ctx context.Context, enrollmentID string) (RefundEstimate, error) {
	enrollment := s.EnrollmentQuery(enrollmentID).Load(ctx)
	if enrollment.Err != nil {
		return RefundEstimate{}, fmt.Errorf("failed to load enrollment: %w", enrollment.Err)
	}
	class := s.ClassQuery(enrollment.Data.ClassID).Load(ctx)
	if class.Err != nil {
		return RefundEstimate{}, fmt.Errorf("failed to load class: %w", class.Err)
	}

	now := s.orch.Now()
	s.logger.Debug("Estimating cancellation refund",
		zap.String("enrollment_id", enrollmentID),
		zap.Time("class_start", class.Data.StartDate))
	return RefundEstimate{
		EnrollmentID: enrollmentID,
		Paid:         enrollment.Data.FinalPrice,
		Percent:      models.RefundPercent(class.Data.StartDate, now),
		Amount:       models.EstimateRefund(enrollment.Data.FinalPrice, class.Data.StartDate, now),
		ClassStart:   class.Data.StartDate,
	}, nil
}
