package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

// MaxStatusLength is the longest status message accepted, in characters.
const MaxStatusLength = 500

// ActivityService writes a member's activity row and reads the team roster.
type ActivityService struct {
	members    repository.MemberRepository
	activities repository.ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewActivityService(members repository.MemberRepository, activities repository.ActivityRepository, logger *slog.Logger) *ActivityService {
	return &ActivityService{
		members:    members,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// Upsert records filePath (and status, when non-nil) as the member's current
// activity. The existing row is updated in place; a member without one gets a
// new row with an empty status unless status is given.
func (s *ActivityService) Upsert(ctx context.Context, memberID, filePath string, status *string) error {
	if memberID == "" {
		return apperror.ValidationFailed("memberId", "member id must not be empty")
	}
	if status != nil && utf8.RuneCountInString(*status) > MaxStatusLength {
		return apperror.ValidationFailed("status", fmt.Sprintf("status must be at most %d characters", MaxStatusLength))
	}

	now := s.now()

	existing, err := s.activities.GetActivityByMember(ctx, memberID)
	switch {
	case err == nil:
		patch := repository.ActivityPatch{
			FilePath:      filePath,
			StatusMessage: status,
			IsActive:      true,
			UpdatedAt:     now,
		}
		if err := s.activities.UpdateActivity(ctx, existing.ID, patch); err != nil {
			return apperror.Remote("could not update activity", err)
		}
		return nil
	case !errors.Is(err, apperror.ErrNotFound):
		return apperror.Remote("could not load activity", err)
	}

	activity := &model.Activity{
		MemberID:  memberID,
		FilePath:  filePath,
		IsActive:  true,
		UpdatedAt: now,
	}
	if status != nil {
		activity.StatusMessage = *status
	}
	if err := s.activities.CreateActivity(ctx, activity); err != nil {
		return apperror.Remote("could not save activity", err)
	}

	s.logger.Debug("activity created", slog.String("memberID", memberID))
	return nil
}

// Roster returns every member of teamID with their activity, if any, in join
// order.
func (s *ActivityService) Roster(ctx context.Context, teamID string) ([]model.MemberWithActivity, error) {
	members, err := s.members.ListMembersByTeam(ctx, teamID)
	if err != nil {
		return nil, apperror.Remote("could not load team members", err)
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	activities, err := s.activities.ListActivitiesByMembers(ctx, ids)
	if err != nil {
		return nil, apperror.Remote("could not load team activity", err)
	}

	byMember := make(map[string]*model.Activity, len(activities))
	for i := range activities {
		byMember[activities[i].MemberID] = &activities[i]
	}

	roster := make([]model.MemberWithActivity, len(members))
	for i, m := range members {
		roster[i] = model.MemberWithActivity{Member: m, Activity: byMember[m.ID]}
	}
	return roster, nil
}
