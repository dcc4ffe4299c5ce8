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

var _ repository.TeamRepository = (*DB)(nil)

// CreateTeam inserts a team. The caller supplies Name and InviteCode; ID and
// CreatedAt are filled in here. A duplicate invite code returns ErrConflict.
func (db *DB) CreateTeam(ctx context.Context, team *model.Team) error {
	team.ID = xid.New().String()
	team.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO teams (id, name, invite_code, created_at) VALUES (?, ?, ?, ?)`,
		team.ID,
		team.Name,
		team.InviteCode,
		team.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("team invite code", team.InviteCode)
		}
		return fmt.Errorf("sqlite: creating team: %w", err)
	}

	db.feed.Notify(repository.TableTeams)
	return nil
}

// GetTeamByID retrieves a team by ID.
func (db *DB) GetTeamByID(ctx context.Context, id string) (*model.Team, error) {
	return db.getTeam(ctx, "id", id)
}

// GetTeamByInviteCode retrieves a team by its exact invite code. Callers
// normalize the code (upper case) before the lookup.
func (db *DB) GetTeamByInviteCode(ctx context.Context, code string) (*model.Team, error) {
	return db.getTeam(ctx, "invite_code", code)
}

// getTeam runs an equality lookup on one of the indexed team columns.
// column is always a constant from this file, never user input.
func (db *DB) getTeam(ctx context.Context, column, value string) (*model.Team, error) {
	var t model.Team

	err := db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, name, invite_code, created_at FROM teams WHERE %s = ?`, column),
		value,
	).Scan(&t.ID, &t.Name, &t.InviteCode, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("team", value)
		}
		return nil, fmt.Errorf("sqlite: getting team by %s: %w", column, err)
	}

	return &t, nil
}
