package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns a migrated in-memory database closed at the end of the
// test.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := Migrate(database); err != nil {
		t.Fatalf("test database: %v", err)
	}
	return database
}
