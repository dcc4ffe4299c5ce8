package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/teamsync/internal/apperror"
	"github.com/sakif/teamsync/internal/model"
	"github.com/sakif/teamsync/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, github_id, login, email, avatar_url, created_at, updated_at`

// Upsert records a GitHub sign-in. The first sign-in for a github_id creates
// the row; later ones refresh the profile and keep the internal id that
// members.user_id references. user is overwritten with the stored row.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (github_id) DO UPDATE SET
			login      = excluded.login,
			email      = excluded.email,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`,
		xid.New().String(), user.GitHubID, user.Login, user.Email, user.AvatarURL, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (githubID=%d): %w", user.GitHubID, err)
	}

	stored, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID))
	if err != nil {
		return fmt.Errorf("sqlite: reloading user (githubID=%d): %w", user.GitHubID, err)
	}
	*user = *stored

	db.feed.Notify(repository.TableUsers)
	return nil
}

// GetUserByID returns apperror.ErrNotFound for an unknown id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, apperror.NotFound("user", id)
	case err != nil:
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.GitHubID, &u.Login, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
