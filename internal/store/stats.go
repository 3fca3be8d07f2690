package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/reclaim/internal/model"
)

// Stats counts materials by condition, category and type, and those added in
// the RecentWindowDays before now.
func Stats(ctx context.Context, db *sql.DB, now time.Time) (*model.Stats, error) {
	s := &model.Stats{}

	groups := []struct {
		column string
		into   *map[string]int
	}{
		{"condition", &s.ConditionCounts},
		{"category", &s.CategoryCounts},
		{"material_type", &s.TypeCounts},
	}
	for _, g := range groups {
		counts, err := countBy(ctx, db, g.column)
		if err != nil {
			return nil, err
		}
		*g.into = counts
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM materials`).Scan(&s.TotalCount); err != nil {
		return nil, fmt.Errorf("counting materials: %w", err)
	}

	since := now.UTC().AddDate(0, 0, -model.RecentWindowDays).Format(time.DateTime)
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM materials WHERE datetime(date_added) >= datetime(?)`, since,
	).Scan(&s.RecentAdditionsCount); err != nil {
		return nil, fmt.Errorf("counting recent materials: %w", err)
	}

	return s, nil
}

// countBy groups on a fixed column name; it is never user input.
func countBy(ctx context.Context, db *sql.DB, column string) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM materials GROUP BY `+column)
	if err != nil {
		return nil, fmt.Errorf("counting by %s: %w", column, err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scanning %s count: %w", column, err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
