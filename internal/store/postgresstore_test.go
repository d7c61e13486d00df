package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
)

func TestNormalizePostgresConfig(t *testing.T) {
	t.Parallel()
	if _, err := normalizePostgresConfig(PostgresStoreConfig{DSN: "  "}); err == nil {
		t.Fatal("expected empty DSN to fail")
	}
	cfg, err := normalizePostgresConfig(PostgresStoreConfig{DSN: " postgres://localhost/db ", Schema: " launcher "})
	if err != nil {
		t.Fatalf("normalizePostgresConfig: %v", err)
	}
	if cfg.DSN != "postgres://localhost/db" || cfg.Schema != "launcher" {
		t.Fatalf("fields not trimmed: %+v", cfg)
	}
	if cfg.Table != defaultSessionTable || cfg.Key != defaultSessionKey {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestTableNameQuoting(t *testing.T) {
	t.Parallel()
	tests := []struct {
		schema string
		table  string
		want   string
	}{
		{table: "mcauth_session", want: `"mcauth_session"`},
		{schema: "launcher", table: "sessions", want: `"launcher"."sessions"`},
		{table: `odd"name`, want: `"odd""name"`},
	}
	for _, tt := range tests {
		s := &PostgresStore{cfg: PostgresStoreConfig{Schema: tt.schema, Table: tt.table}}
		if got := s.tableName(); got != tt.want {
			t.Errorf("tableName(%q, %q) = %s, want %s", tt.schema, tt.table, got, tt.want)
		}
	}
}

// TestPostgresStoreRoundTrip runs against a real database when MCAUTH_TEST_PG_DSN is set.
func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("MCAUTH_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("MCAUTH_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, PostgresStoreConfig{DSN: dsn, Table: "mcauth_session_test"})
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.tableName())
		_ = s.Close()
	})
	if err = s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	if _, err = s.Load(ctx); !errors.Is(err, minecraft.ErrNoSession) {
		t.Fatalf("Load on empty table err = %v", err)
	}
	if _, err = s.Save(ctx, testSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	updated := testSession()
	updated.AccessToken = "mc-access-2"
	if _, err = s.Save(ctx, updated); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *updated {
		t.Fatalf("loaded %v, want %v", loaded, updated)
	}
	if err = s.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err = s.Load(ctx); !errors.Is(err, minecraft.ErrNoSession) {
		t.Fatalf("Load after Delete err = %v", err)
	}
}
