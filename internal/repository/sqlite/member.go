package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

var _ repository.MemberRepository = (*DB)(nil)

const memberColumns = `id, team_id, user_id, github_username, avatar_url, joined_at`

// CreateMember inserts a membership row. A second row for the same
// (team_id, user_id) pair is rejected with ErrConflict.
func (db *DB) CreateMember(ctx context.Context, member *model.Member) error {
	member.ID = xid.New().String()
	member.JoinedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.TeamID,
		member.UserID,
		member.GitHubUsername,
		member.AvatarURL,
		member.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("member", member.TeamID+"/"+member.UserID)
		}
		return fmt.Errorf("sqlite: creating member: %w", err)
	}

	db.feed.Notify(repository.TableMembers)
	return nil
}

// GetMember retrieves the membership row for (teamID, userID).
func (db *DB) GetMember(ctx context.Context, teamID, userID string) (*model.Member, error) {
	var m model.Member

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE team_id = ? AND user_id = ?`,
		teamID, userID,
	).Scan(&m.ID, &m.TeamID, &m.UserID, &m.GitHubUsername, &m.AvatarURL, &m.JoinedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("member", teamID+"/"+userID)
		}
		return nil, fmt.Errorf("sqlite: getting member %s/%s: %w", teamID, userID, err)
	}

	return &m, nil
}

// ListMembersByTeam returns every member of a team, oldest first.
func (db *DB) ListMembersByTeam(ctx context.Context, teamID string) ([]model.Member, error) {
	return db.listMembers(ctx, `team_id = ?`, teamID)
}

// ListMembersByUser returns every membership of a user, oldest first.
func (db *DB) ListMembersByUser(ctx context.Context, userID string) ([]model.Member, error) {
	return db.listMembers(ctx, `user_id = ?`, userID)
}

func (db *DB) listMembers(ctx context.Context, where string, arg string) ([]model.Member, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE `+where+` ORDER BY joined_at, id`,
		arg,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members: %w", err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	members := make([]model.Member, 0)
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.TeamID, &m.UserID, &m.GitHubUsername, &m.AvatarURL, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating members: %w", err)
	}

	return members, nil
}

// DeleteMember removes the membership row for (teamID, userID). The member's
// activity row goes with it (ON DELETE CASCADE). Returns ErrNotFound if there
// was no such row.
func (db *DB) DeleteMember(ctx context.Context, teamID, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM members WHERE team_id = ? AND user_id = ?`,
		teamID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting member %s/%s: %w", teamID, userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("member", teamID+"/"+userID)
	}

	db.feed.Notify(repository.TableMembers)
	db.feed.Notify(repository.TableActivities)
	return nil
}
