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

var _ repository.ActivityRepository = (*DB)(nil)

const activityColumns = `id, member_id, file_path, status_message, is_active, updated_at`

// GetActivityByMember retrieves the activity row of a member.
func (db *DB) GetActivityByMember(ctx context.Context, memberID string) (*model.Activity, error) {
	var a model.Activity

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE member_id = ?`,
		memberID,
	).Scan(&a.ID, &a.MemberID, &a.FilePath, &a.StatusMessage, &a.IsActive, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("activity for member", memberID)
		}
		return nil, fmt.Errorf("sqlite: getting activity for member %s: %w", memberID, err)
	}

	return &a, nil
}

// CreateActivity inserts an activity row. ID is generated; UpdatedAt is set
// to now when the caller left it zero.
func (db *DB) CreateActivity(ctx context.Context, activity *model.Activity) error {
	activity.ID = xid.New().String()
	if activity.UpdatedAt.IsZero() {
		activity.UpdatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activities (`+activityColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		activity.ID,
		activity.MemberID,
		activity.FilePath,
		activity.StatusMessage,
		activity.IsActive,
		activity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("activity for member", activity.MemberID)
		}
		return fmt.Errorf("sqlite: creating activity: %w", err)
	}

	db.feed.Notify(repository.TableActivities)
	return nil
}

// UpdateActivity applies patch to the activity row with the given id.
// The status message column is only written when patch.StatusMessage is set.
func (db *DB) UpdateActivity(ctx context.Context, id string, patch repository.ActivityPatch) error {
	var (
		result sql.Result
		err    error
	)
	if patch.StatusMessage != nil {
		result, err = db.conn.ExecContext(ctx,
			`UPDATE activities SET file_path = ?, status_message = ?, is_active = ?, updated_at = ?
			 WHERE id = ?`,
			patch.FilePath, *patch.StatusMessage, patch.IsActive, patch.UpdatedAt, id,
		)
	} else {
		result, err = db.conn.ExecContext(ctx,
			`UPDATE activities SET file_path = ?, is_active = ?, updated_at = ?
			 WHERE id = ?`,
			patch.FilePath, patch.IsActive, patch.UpdatedAt, id,
		)
	}
	if err != nil {
		return fmt.Errorf("sqlite: updating activity %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("activity", id)
	}

	db.feed.Notify(repository.TableActivities)
	return nil
}

// ListActivitiesByMembers returns the activity rows of the given members.
// Members without activity are simply absent from the result.
func (db *DB) ListActivitiesByMembers(ctx context.Context, memberIDs []string) ([]model.Activity, error) {
	activities := make([]model.Activity, 0, len(memberIDs))
	if len(memberIDs) == 0 {
		return activities, nil
	}

	args := make([]any, len(memberIDs))
	for i, id := range memberIDs {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE member_id IN (`+placeholders(len(memberIDs))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.MemberID, &a.FilePath, &a.StatusMessage, &a.IsActive, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activities: %w", err)
	}

	return activities, nil
}
