package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

const (
	// MaxTeamNameLength is the longest team name accepted, in characters.
	MaxTeamNameLength = 100

	// inviteCodeAttempts bounds retries when a generated code is already taken.
	inviteCodeAttempts = 5
)

// TeamService implements team creation, joining by invite code and leaving.
type TeamService struct {
	teams   repository.TeamRepository
	members repository.MemberRepository
	logger  *slog.Logger
}

func NewTeamService(teams repository.TeamRepository, members repository.MemberRepository, logger *slog.Logger) *TeamService {
	return &TeamService{
		teams:   teams,
		members: members,
		logger:  logger,
	}
}

// Create inserts a team with a fresh invite code and makes the caller its
// first member.
//
// The two inserts are not atomic. When the member insert fails the team row is
// left in place and the returned error is ErrRemote; the team is still
// returned so callers can log what was orphaned.
func (s *TeamService) Create(ctx context.Context, profile model.Profile, name string) (*model.Team, *model.Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, apperror.ValidationFailed("name", "team name must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxTeamNameLength {
		return nil, nil, apperror.ValidationFailed("name", fmt.Sprintf("team name must be at most %d characters", MaxTeamNameLength))
	}
	if profile.ID == "" {
		return nil, nil, apperror.AuthRequired("sign in to create a team")
	}

	team, err := s.insertTeam(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	member := newMember(team.ID, profile)
	if err := s.members.CreateMember(ctx, member); err != nil {
		s.logger.Error("team created but creator membership failed",
			slog.String("teamID", team.ID),
			slog.String("userID", profile.ID),
			slog.String("error", err.Error()),
		)
		return team, nil, apperror.Remote("team was created but joining it failed", err)
	}

	s.logger.Info("team created",
		slog.String("teamID", team.ID),
		slog.String("name", team.Name),
		slog.String("userID", profile.ID),
	)
	return team, member, nil
}

func (s *TeamService) insertTeam(ctx context.Context, name string) (*model.Team, error) {
	for range inviteCodeAttempts {
		code, err := GenerateInviteCode()
		if err != nil {
			return nil, apperror.Remote("could not generate an invite code", err)
		}

		team := &model.Team{Name: name, InviteCode: code}
		err = s.teams.CreateTeam(ctx, team)
		if err == nil {
			return team, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Remote("could not create team", err)
		}
		s.logger.Debug("invite code collision, retrying", slog.String("code", code))
	}
	return nil, apperror.Remote("could not create team", errors.New("no unused invite code found"))
}

// Join adds the caller to the team owning code. Codes are case-insensitive.
// Joining a team the caller already belongs to returns the existing membership.
func (s *TeamService) Join(ctx context.Context, profile model.Profile, code string) (*model.Team, *model.Member, error) {
	code = NormalizeInviteCode(code)
	if code == "" {
		return nil, nil, apperror.ValidationFailed("inviteCode", "invite code must not be empty")
	}
	if profile.ID == "" {
		return nil, nil, apperror.AuthRequired("sign in to join a team")
	}

	team, err := s.teams.GetTeamByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil, apperror.NotFoundMessage("team not found")
		}
		return nil, nil, apperror.Remote("could not look up invite code", err)
	}

	existing, err := s.members.GetMember(ctx, team.ID, profile.ID)
	switch {
	case err == nil:
		return team, existing, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, nil, apperror.Remote("could not join team", err)
	}

	member := newMember(team.ID, profile)
	if err := s.members.CreateMember(ctx, member); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, nil, apperror.Remote("could not join team", err)
		}
		// Another join for the same user won the insert; use its row.
		existing, err = s.members.GetMember(ctx, team.ID, profile.ID)
		if err != nil {
			return nil, nil, apperror.Remote("could not join team", err)
		}
		return team, existing, nil
	}

	s.logger.Info("joined team",
		slog.String("teamID", team.ID),
		slog.String("userID", profile.ID),
	)
	return team, member, nil
}

// Leave deletes the caller's membership of teamID.
func (s *TeamService) Leave(ctx context.Context, teamID, userID string) error {
	if teamID == "" {
		return apperror.NotFoundMessage("you are not in a team")
	}
	if userID == "" {
		return apperror.AuthRequired("sign in to leave a team")
	}

	if err := s.members.DeleteMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage("you are not a member of this team")
		}
		return apperror.Remote("could not leave team", err)
	}

	s.logger.Info("left team",
		slog.String("teamID", teamID),
		slog.String("userID", userID),
	)
	return nil
}

// MyTeam returns the team the user joined most recently.
func (s *TeamService) MyTeam(ctx context.Context, userID string) (*model.Team, error) {
	memberships, err := s.members.ListMembersByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Remote("could not load your team", err)
	}
	if len(memberships) == 0 {
		return nil, apperror.NotFoundMessage("you are not in a team")
	}

	latest := memberships[len(memberships)-1]
	team, err := s.teams.GetTeamByID(ctx, latest.TeamID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("you are not in a team")
		}
		return nil, apperror.Remote("could not load your team", err)
	}
	return team, nil
}

// MyMember returns the user's membership row in teamID.
func (s *TeamService) MyMember(ctx context.Context, teamID, userID string) (*model.Member, error) {
	member, err := s.members.GetMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("you are not a member of this team")
		}
		return nil, apperror.Remote("could not load your membership", err)
	}
	return member, nil
}

func newMember(teamID string, profile model.Profile) *model.Member {
	return &model.Member{
		TeamID:         teamID,
		UserID:         profile.ID,
		GitHubUsername: profile.Username,
		AvatarURL:      profile.AvatarURL,
	}
}
