package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/reclaim/internal/model"
)

// DefaultRecentActivity is how many entries RecentActivity returns when
// asked for zero or fewer.
const DefaultRecentActivity = 10

func recordActivity(ctx context.Context, tx *sql.Tx, materialID int64, materialName string, actor Actor, action, details string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_trail (material_id, material_name, user_id, user_name, action, details)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		materialID, materialName, nullID(actor.UserID), actor.Name, action, details,
	)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

const activityColumns = `id, material_id, material_name, user_id, user_name, action, details, timestamp`

func queryActivity(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.Activity, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	entries := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		var userID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.MaterialID, &a.MaterialName, &userID, &a.UserName, &a.Action, &a.Details, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.UserID = userID.Int64
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// RecentActivity returns the newest audit entries.
func RecentActivity(ctx context.Context, db *sql.DB, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = DefaultRecentActivity
	}
	return queryActivity(ctx, db,
		`SELECT `+activityColumns+` FROM audit_trail ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// MaterialActivity returns the audit entries of one material, newest first.
func MaterialActivity(ctx context.Context, db *sql.DB, materialID int64) ([]model.Activity, error) {
	return queryActivity(ctx, db,
		`SELECT `+activityColumns+` FROM audit_trail WHERE material_id = ?
		 ORDER BY timestamp DESC, id DESC`, materialID)
}

// UserActivity returns the audit entries recorded against a user, newest first.
func UserActivity(ctx context.Context, db *sql.DB, userID int64) ([]model.Activity, error) {
	return queryActivity(ctx, db,
		`SELECT `+activityColumns+` FROM audit_trail WHERE user_id = ?
		 ORDER BY timestamp DESC, id DESC`, userID)
}
