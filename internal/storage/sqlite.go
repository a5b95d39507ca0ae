package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for concurrent verification requests
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Verification attempt audit trail
	CREATE TABLE IF NOT EXISTS verification_attempts (
		id TEXT PRIMARY KEY,
		bank_code TEXT NOT NULL,
		reference TEXT NOT NULL,
		stage TEXT,
		kind TEXT,
		verified INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TEXT DEFAULT (datetime('now'))
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now')),
		last_used_at TEXT,
		revoked_at TEXT
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_attempts_bank ON verification_attempts(bank_code);
	CREATE INDEX IF NOT EXISTS idx_attempts_created ON verification_attempts(created_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// RecordAttempt inserts one verification attempt.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = generateID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_attempts (id, bank_code, reference, stage, kind, verified, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.BankCode, a.Reference, a.Stage, a.Kind, boolToInt(a.Verified), a.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the most recent attempts, newest first.
func (s *SQLiteStore) ListAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bank_code, reference, COALESCE(stage,''), COALESCE(kind,''), verified, duration_ms, created_at
		FROM verification_attempts
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		var verified int
		if err := rows.Scan(&a.ID, &a.BankCode, &a.Reference, &a.Stage, &a.Kind, &verified, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		a.Verified = verified != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAPIKey creates a new API key and returns the plaintext once.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, key_hash, name) VALUES (?, ?, ?)`,
		generateID(), hashAPIKey(key), name,
	)
	if err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}
	return key, nil
}

// ValidateAPIKey checks a key and records its use.
func (s *SQLiteStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, COALESCE(last_used_at,''), COALESCE(revoked_at,'')
		FROM api_keys WHERE key_hash = ?`, hashAPIKey(key))

	var k APIKey
	var revokedAt string
	if err := row.Scan(&k.ID, &k.Name, &k.CreatedAt, &k.LastUsedAt, &revokedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("validating api key: %w", err)
	}
	if revokedAt != "" {
		return nil, ErrKeyRevoked
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = datetime('now') WHERE id = ?`, k.ID)
	return &k, nil
}

// ListAPIKeys returns all keys, including revoked ones.
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, COALESCE(last_used_at,'')
		FROM api_keys ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var out []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// RevokeAPIKey revokes a key by ID.
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = datetime('now') WHERE id = ? AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
