package service

import (
	"context"
	"errors"
	"sync"

	"enrollment-portal/internal/models"
)

var errNotStubbed = errors.New("not stubbed")

// fakeBackend records calls and delegates to per-endpoint hooks
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	listEnrollments    func(models.EnrollmentFilter) ([]models.Enrollment, error)
	getEnrollment      func(id string) (models.Enrollment, error)
	createEnrollment   func(models.CreateEnrollmentRequest) (models.Enrollment, error)
	cancelEnrollment   func(models.CancelEnrollmentRequest) (models.CancelResult, error)
	pauseEnrollment    func(models.PauseEnrollmentRequest) (models.Enrollment, error)
	resumeEnrollment   func(models.ResumeEnrollmentRequest) (models.Enrollment, error)
	transferEnrollment func(models.TransferEnrollmentRequest) (models.Enrollment, error)
	getClass           func(id string) (models.Class, error)
	listChildBadges    func(childID string) ([]models.BadgeAward, error)
	awardBadge         func(models.AwardBadgeRequest) (models.BadgeAward, error)
	revokeBadge        func(models.RevokeBadgeRequest) (models.MessageResponse, error)
}

func (b *fakeBackend) record(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, name)
}

func (b *fakeBackend) called(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (b *fakeBackend) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	b.record("ListEnrollments")
	if b.listEnrollments == nil {
		return nil, errNotStubbed
	}
	return b.listEnrollments(filter)
}

func (b *fakeBackend) GetEnrollment(ctx context.Context, id string) (models.Enrollment, error) {
	b.record("GetEnrollment")
	if b.getEnrollment == nil {
		return models.Enrollment{}, errNotStubbed
	}
	return b.getEnrollment(id)
}

func (b *fakeBackend) CreateEnrollment(ctx context.Context, req models.CreateEnrollmentRequest) (models.Enrollment, error) {
	b.record("CreateEnrollment")
	if b.createEnrollment == nil {
		return models.Enrollment{}, errNotStubbed
	}
	return b.createEnrollment(req)
}

func (b *fakeBackend) CancelEnrollment(ctx context.Context, req models.CancelEnrollmentRequest) (models.CancelResult, error) {
	b.record("CancelEnrollment")
	if b.cancelEnrollment == nil {
		return models.CancelResult{}, errNotStubbed
	}
	return b.cancelEnrollment(req)
}

func (b *fakeBackend) PauseEnrollment(ctx context.Context, req models.PauseEnrollmentRequest) (models.Enrollment, error) {
	b.record("PauseEnrollment")
	if b.pauseEnrollment == nil {
		return models.Enrollment{}, errNotStubbed
	}
	return b.pauseEnrollment(req)
}

func (b *fakeBackend) ResumeEnrollment(ctx context.Context, req models.ResumeEnrollmentRequest) (models.Enrollment, error) {
	b.record("ResumeEnrollment")
	if b.resumeEnrollment == nil {
		return models.Enrollment{}, errNotStubbed
	}
	return b.resumeEnrollment(req)
}

func (b *fakeBackend) TransferEnrollment(ctx context.Context, req models.TransferEnrollmentRequest) (models.Enrollment, error) {
	b.record("TransferEnrollment")
	if b.transferEnrollment == nil {
		return models.Enrollment{}, errNotStubbed
	}
	return b.transferEnrollment(req)
}

func (b *fakeBackend) GetClass(ctx context.Context, id string) (models.Class, error) {
	b.record("GetClass")
	if b.getClass == nil {
		return models.Class{}, errNotStubbed
	}
	return b.getClass(id)
}

func (b *fakeBackend) ListOrders(ctx context.Context) ([]models.Order, error) {
	b.record("ListOrders")
	return []models.Order{}, nil
}

func (b *fakeBackend) ListChildBadges(ctx context.Context, childID string) ([]models.BadgeAward, error) {
	b.record("ListChildBadges")
	if b.listChildBadges == nil {
		return nil, errNotStubbed
	}
	return b.listChildBadges(childID)
}

func (b *fakeBackend) AwardBadge(ctx context.Context, req models.AwardBadgeRequest) (models.BadgeAward, error) {
	b.record("AwardBadge")
	if b.awardBadge == nil {
		return models.BadgeAward{}, errNotStubbed
	}
	return b.awardBadge(req)
}

func (b *fakeBackend) RevokeBadge(ctx context.Context, req models.RevokeBadgeRequest) (models.MessageResponse, error) {
	b.record("RevokeBadge")
	if b.revokeBadge == nil {
		return models.MessageResponse{}, errNotStubbed
	}
	return b.revokeBadge(req)
}
