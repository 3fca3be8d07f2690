package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: per-material audit lookups.
	`CREATE INDEX IF NOT EXISTS idx_audit_trail_material
	     ON audit_trail(material_id, timestamp)`,
	// Migration 2: per-user audit lookups.
	`CREATE INDEX IF NOT EXISTS idx_audit_trail_user
	     ON audit_trail(user_id, timestamp)`,
	// Migration 3: stats and filters group by these.
	`CREATE INDEX IF NOT EXISTS idx_materials_type
	     ON materials(material_type)`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
