package service

import (
	"context"

	"enrollment-portal/internal/models"
)

// Backend is the remote API the services call. apiclient.Client implements it.
type Backend interface {
	ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	GetEnrollment(ctx context.Context, id string) (models.Enrollment, error)
	CreateEnrollment(ctx context.Context, req models.CreateEnrollmentRequest) (models.Enrollment, error)
	CancelEnrollment(ctx context.Context, req models.CancelEnrollmentRequest) (models.CancelResult, error)
	PauseEnrollment(ctx context.Context, req models.PauseEnrollmentRequest) (models.Enrollment, error)
	ResumeEnrollment(ctx context.Context, req models.ResumeEnrollmentRequest) (models.Enrollment, error)
	TransferEnrollment(ctx context.Context, req models.TransferEnrollmentRequest) (models.Enrollment, error)

	GetClass(ctx context.Context, id string) (models.Class, error)
	ListOrders(ctx context.Context) ([]models.Order, error)

	ListChildBadges(ctx context.Context, childID string) ([]models.BadgeAward, error)
	AwardBadge(ctx context.Context, req models.AwardBadgeRequest) (models.BadgeAward, error)
	RevokeBadge(ctx context.Context, req models.RevokeBadgeRequest) (models.MessageResponse, error)
}
