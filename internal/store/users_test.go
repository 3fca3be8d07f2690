package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/reclaim/internal/db"
	"github.com/erazemk/reclaim/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "Test User", "test@example.com", "hash123", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "test@example.com" || user.Name != "Test User" {
		t.Errorf("unexpected user %+v", user)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Email != "test@example.com" {
		t.Errorf("expected email 'test@example.com', got %q", got.Email)
	}
}

func TestGetUserByEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "Alice", "alice@example.com", "hash", model.RoleAdmin)

	user, err := GetUserByEmail(ctx, database, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user == nil || user.Name != "Alice" {
		t.Fatalf("expected Alice, got %+v", user)
	}

	missing, err := GetUserByEmail(ctx, database, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, database, "A", "dup@example.com", "h", model.RoleUser); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateUser(ctx, database, "B", "dup@example.com", "h", model.RoleUser); err == nil {
		t.Error("expected duplicate email to fail")
	}
}

func TestSoftDeletedEmailReusable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, _ := CreateUser(ctx, database, "A", "reuse@example.com", "h", model.RoleUser)
	if err := DeleteUser(ctx, database, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if got, _ := GetUserByEmail(ctx, database, "reuse@example.com"); got != nil {
		t.Error("deleted user should not be found by email")
	}
	if _, err := CreateUser(ctx, database, "B", "reuse@example.com", "h", model.RoleUser); err != nil {
		t.Errorf("expected email reuse after delete, got %v", err)
	}
	if err := DeleteUser(ctx, database, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}

	n, _ := CountUsers(ctx, database)
	if n != 1 {
		t.Errorf("expected 1 active user, got %d", n)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, _ := CreateUser(ctx, database, "A", "a@example.com", "old", model.RoleUser)
	if err := UpdateUserPassword(ctx, database, u.ID, "new"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	got, _ := GetUser(ctx, database, u.ID)
	if got.PasswordHash != "new" {
		t.Errorf("expected new hash, got %q", got.PasswordHash)
	}
	if err := UpdateUserPassword(ctx, database, 999, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user: %v", err)
	}
}
