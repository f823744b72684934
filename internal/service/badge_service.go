package service

import (
	"context"
	"strings"
	"time"

	"enrollment-portal/internal/invalidation"
	"enrollment-portal/internal/models"
	"enrollment-portal/internal/mutation"
	"enrollment-portal/internal/querycache"
)

// BadgeService exposes badge award and revoke mutations
type BadgeService struct {
	backend Backend
	store   *querycache.Store

	Award  *mutation.Mutation[models.AwardBadgeRequest, models.BadgeAward]
	Revoke *mutation.Mutation[models.RevokeBadgeRequest, models.MessageResponse]
}

func NewBadgeService(backend Backend, orch *mutation.Orchestrator) *BadgeService {
	s := &BadgeService{
		backend: backend,
		store:   orch.Store(),
	}
	s.Award = mutation.New(orch, s.awardCommand())
	s.Revoke = mutation.New(orch, s.revokeCommand())
	return s
}

// ChildBadgesQuery reads the badge awards of one child
func (s *BadgeService) ChildBadgesQuery(childID string) *querycache.Query[[]models.BadgeAward] {
	return querycache.NewQuery(s.store, invalidation.ChildBadgesKey(childID), func(ctx context.Context) ([]models.BadgeAward, error) {
		return s.backend.ListChildBadges(ctx, childID)
	})
}

func (s *BadgeService) awardCommand() mutation.Command[models.AwardBadgeRequest, models.BadgeAward] {
	return mutation.Command[models.AwardBadgeRequest, models.BadgeAward]{
		Name:           invalidation.OpAwardBadge,
		EventType:      models.EventTypeBadgeAwarded,
		FailureMessage: "Failed to award badge",
		Validate: func(in models.AwardBadgeRequest) error {
			if strings.TrimSpace(in.BadgeID) == "" {
				return mutation.Reject(mutation.ErrValidation, "badge_id is required")
			}
			if strings.TrimSpace(in.ChildID) == "" {
				return mutation.Reject(mutation.ErrValidation, "child_id is required")
			}
			return nil
		},
		LockKey: func(in models.AwardBadgeRequest) string { return "badges:" + in.ChildID },
		Target:  func(in models.AwardBadgeRequest) querycache.Key { return invalidation.ChildBadgesKey(in.ChildID) },
		Optimistic: func(in models.AwardBadgeRequest, current any, present bool, now time.Time) (any, bool, error) {
			var awards []models.BadgeAward
			if present {
				existing, ok := current.([]models.BadgeAward)
				if !ok {
					return nil, false, nil
				}
				awards = make([]models.BadgeAward, 0, len(existing)+1)
				awards = append(awards, existing...)
			}
			awards = append(awards, models.BadgeAward{
				ID:           models.PlaceholderID(now),
				BadgeID:      in.BadgeID,
				ChildID:      in.ChildID,
				EnrollmentID: in.EnrollmentID,
				Notes:        in.Notes,
				AwardedAt:    now,
			})
			return awards, true, nil
		},
		Call: func(ctx context.Context, in models.AwardBadgeRequest) (models.BadgeAward, error) {
			return s.backend.AwardBadge(ctx, in)
		},
		Affected: func(in models.AwardBadgeRequest, _ models.BadgeAward, _ querycache.Snapshot) invalidation.Affected {
			return invalidation.Affected{ChildID: in.ChildID, EnrollmentID: in.EnrollmentID}
		},
		SuccessMessage: func(models.AwardBadgeRequest, models.BadgeAward) string {
			return "Badge awarded successfully"
		},
		EntityID: func(_ models.AwardBadgeRequest, out models.BadgeAward) string { return out.ID },
	}
}

func (s *BadgeService) revokeCommand() mutation.Command[models.RevokeBadgeRequest, models.MessageResponse] {
	return mutation.Command[models.RevokeBadgeRequest, models.MessageResponse]{
		Name:           invalidation.OpRevokeBadge,
		EventType:      models.EventTypeBadgeRevoked,
		FailureMessage: "Failed to revoke badge",
		Validate: func(in models.RevokeBadgeRequest) error {
			if strings.TrimSpace(in.AwardID) == "" {
				return mutation.Reject(mutation.ErrValidation, "award_id is required")
			}
			if strings.TrimSpace(in.ChildID) == "" {
				return mutation.Reject(mutation.ErrValidation, "child_id is required")
			}
			return nil
		},
		LockKey: func(in models.RevokeBadgeRequest) string { return "badges:" + in.ChildID },
		Target:  func(in models.RevokeBadgeRequest) querycache.Key { return invalidation.ChildBadgesKey(in.ChildID) },
		Optimistic: func(in models.RevokeBadgeRequest, current any, present bool, _ time.Time) (any, bool, error) {
			if !present {
				return nil, false, nil
			}
			existing, ok := current.([]models.BadgeAward)
			if !ok {
				return nil, false, nil
			}
			awards := make([]models.BadgeAward, 0, len(existing))
			for _, a := range existing {
				if a.ID != in.AwardID {
					awards = append(awards, a)
				}
			}
			return awards, true, nil
		},
		Call: func(ctx context.Context, in models.RevokeBadgeRequest) (models.MessageResponse, error) {
			return s.backend.RevokeBadge(ctx, in)
		},
		Affected: func(in models.RevokeBadgeRequest, _ models.MessageResponse, _ querycache.Snapshot) invalidation.Affected {
			return invalidation.Affected{ChildID: in.ChildID}
		},
		SuccessMessage: func(_ models.RevokeBadgeRequest, out models.MessageResponse) string {
			if out.Message != "" {
				return out.Message
			}
			return "Badge revoked successfully"
		},
		EntityID: func(in models.RevokeBadgeRequest, _ models.MessageResponse) string { return in.AwardID },
	}
}
