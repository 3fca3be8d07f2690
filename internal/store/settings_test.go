package store

import (
	"context"
	"testing"

	"github.com/erazemk/reclaim/internal/db"
)

func TestGetJWTSecretGeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestEnsureSettingKeepsFirstValue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, ok, _ := GetSetting(ctx, database, "k"); ok {
		t.Fatal("expected missing setting")
	}
	first, err := EnsureSetting(ctx, database, "k", "one")
	if err != nil || first != "one" {
		t.Fatalf("EnsureSetting = %q, %v", first, err)
	}
	second, _ := EnsureSetting(ctx, database, "k", "two")
	if second != "one" {
		t.Errorf("expected first value to win, got %q", second)
	}
}
