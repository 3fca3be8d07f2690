package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/reclaim/internal/taxonomy"
)

// checkIn renders a CHECK list for the values of opts.
func checkIn(column string, opts []taxonomy.Option) string {
	quoted := make([]string, len(opts))
	for i, o := range opts {
		quoted[i] = "'" + o.Value + "'"
	}
	return fmt.Sprintf("CHECK (%s IN (%s))", column, strings.Join(quoted, ", "))
}

// schema is the full database schema. Value sets come from the taxonomy.
var schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS materials (
    id                INTEGER PRIMARY KEY,
    name              TEXT NOT NULL,
    category          TEXT NOT NULL ` + checkIn("category", taxonomy.Categories()) + `,
    material_type     TEXT NOT NULL ` + checkIn("material_type", taxonomy.MaterialTypes()) + `,
    condition         TEXT NOT NULL ` + checkIn("condition", taxonomy.Conditions()) + `,
    color             TEXT NOT NULL,
    notes             TEXT NOT NULL DEFAULT '',
    width             REAL NOT NULL,
    height            REAL NOT NULL,
    depth             REAL,
    desk_type         TEXT,
    height_adjustable INTEGER,
    maximum_height    REAL,
    opening_type      TEXT,
    hinge_side        TEXT,
    u_value           REAL,
    swing_direction   TEXT,
    has_wheels        INTEGER,
    created_by        INTEGER REFERENCES users(id),
    date_added        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS material_pictures (
    id          INTEGER PRIMARY KEY,
    material_id INTEGER NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
    data         BLOB NOT NULL,
    file_name    TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL,
    file_size    INTEGER NOT NULL DEFAULT 0,
    description  TEXT NOT NULL DEFAULT '',
    is_primary   INTEGER NOT NULL DEFAULT 0,
    uploaded_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_material_pictures_material
    ON material_pictures(material_id);

CREATE UNIQUE INDEX IF NOT EXISTS idx_material_pictures_primary
    ON material_pictures(material_id) WHERE is_primary = 1;

CREATE TABLE IF NOT EXISTS audit_trail (
    id            INTEGER PRIMARY KEY,
    material_id   INTEGER NOT NULL,
    material_name TEXT NOT NULL,
    user_id       INTEGER,
    user_name     TEXT NOT NULL DEFAULT '',
    action        TEXT NOT NULL CHECK (action IN ('CREATED', 'UPDATED', 'DELETED')),
    details       TEXT NOT NULL DEFAULT '',
    timestamp     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_trail_timestamp
    ON audit_trail(timestamp);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
