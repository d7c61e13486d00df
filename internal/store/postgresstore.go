// Package store provides remote backends for the saved login session: a PostgreSQL table and an
// S3-compatible bucket. Both hold a single JSON document in the auth.json format.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cryovex/mcauth/internal/auth/minecraft"
	"github.com/cryovex/mcauth/internal/misc"
	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSessionTable = "mcauth_session"
	defaultSessionKey   = "session"
)

// PostgresStoreConfig captures configuration required to initialize a Postgres-backed store.
type PostgresStoreConfig struct {
	DSN    string
	Schema string
	Table  string
	// Key identifies the session row. Defaults to "session".
	Key string
}

// PostgresStore persists the session as a JSONB row.
type PostgresStore struct {
	db  *sql.DB
	cfg PostgresStoreConfig
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(ctx context.Context, cfg PostgresStoreConfig) (*PostgresStore, error) {
	cfg, err := normalizePostgresConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres store: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres store: ping database: %w", err)
	}
	return &PostgresStore{db: db, cfg: cfg}, nil
}

func normalizePostgresConfig(cfg PostgresStoreConfig) (PostgresStoreConfig, error) {
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	if cfg.DSN == "" {
		return cfg, fmt.Errorf("postgres store: DSN is required")
	}
	cfg.Schema = strings.TrimSpace(cfg.Schema)
	if cfg.Table = strings.TrimSpace(cfg.Table); cfg.Table == "" {
		cfg.Table = defaultSessionTable
	}
	if cfg.Key = strings.TrimSpace(cfg.Key); cfg.Key == "" {
		cfg.Key = defaultSessionKey
	}
	return cfg, nil
}

// Close releases the underlying database connection.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the session table (and schema when provided).
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store: not initialized")
	}
	if s.cfg.Schema != "" {
		query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(s.cfg.Schema))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("postgres store: create schema: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.tableName())); err != nil {
		return fmt.Errorf("postgres store: create session table: %w", err)
	}
	return nil
}

// Location describes where the session row lives.
func (s *PostgresStore) Location() string {
	return fmt.Sprintf("postgres table %s (id=%s)", s.tableName(), s.cfg.Key)
}

// Save upserts the session row.
func (s *PostgresStore) Save(ctx context.Context, session *minecraft.AuthSession) (string, error) {
	if err := session.Validate(); err != nil {
		return "", fmt.Errorf("postgres store: refusing to save session: %w", err)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("postgres store: marshal session: %w", err)
	}
	location := s.Location()
	misc.LogSavingCredentials(location)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()
	`, s.tableName())
	if _, err = s.db.ExecContext(ctx, query, s.cfg.Key, json.RawMessage(data)); err != nil {
		return "", fmt.Errorf("postgres store: upsert session: %w", err)
	}
	return location, nil
}

// Load reads the session row. A missing row yields minecraft.ErrNoSession.
func (s *PostgresStore) Load(ctx context.Context) (*minecraft.AuthSession, error) {
	query := fmt.Sprintf("SELECT content FROM %s WHERE id = $1", s.tableName())
	var content []byte
	err := s.db.QueryRowContext(ctx, query, s.cfg.Key).Scan(&content)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, minecraft.ErrNoSession
	case err != nil:
		return nil, fmt.Errorf("postgres store: load session: %w", err)
	}
	return minecraft.DecodeSession(content)
}

// Delete removes the session row. Deleting a missing row is not an error.
func (s *PostgresStore) Delete(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName())
	result, err := s.db.ExecContext(ctx, query, s.cfg.Key)
	if err != nil {
		return fmt.Errorf("postgres store: delete session: %w", err)
	}
	if n, errRows := result.RowsAffected(); errRows == nil && n == 0 {
		log.Debug("postgres store: no session row to delete")
	}
	return nil
}

func (s *PostgresStore) tableName() string {
	if s.cfg.Schema == "" {
		return quoteIdentifier(s.cfg.Table)
	}
	return quoteIdentifier(s.cfg.Schema) + "." + quoteIdentifier(s.cfg.Table)
}

func quoteIdentifier(identifier string) string {
	replaced := strings.ReplaceAll(identifier, "\"", "\"\"")
	return "\"" + replaced + "\""
}
