package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL via pgx.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS verification_attempts (
		id TEXT PRIMARY KEY,
		bank_code TEXT NOT NULL,
		reference TEXT NOT NULL,
		stage TEXT,
		kind TEXT,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT now(),
		last_used_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_bank ON verification_attempts(bank_code);
	CREATE INDEX IF NOT EXISTS idx_attempts_created ON verification_attempts(created_at);
	`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// RecordAttempt inserts one verification attempt.
func (s *PostgresStore) RecordAttempt(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = generateID()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verification_attempts (id, bank_code, reference, stage, kind, verified, duration_ms)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6, $7)`,
		a.ID, a.BankCode, a.Reference, a.Stage, a.Kind, a.Verified, a.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

// ListAttempts returns the most recent attempts, newest first.
func (s *PostgresStore) ListAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, bank_code, reference, COALESCE(stage,''), COALESCE(kind,''), verified, duration_ms,
		       to_char(created_at, 'YYYY-MM-DD HH24:MI:SS')
		FROM verification_attempts
		ORDER BY created_at DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.BankCode, &a.Reference, &a.Stage, &a.Kind, &a.Verified, &a.DurationMS, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAPIKey creates a new API key and returns the plaintext once.
func (s *PostgresStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, key_hash, name) VALUES ($1, $2, $3)`,
		generateID(), hashAPIKey(key), name,
	)
	if err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}
	return key, nil
}

// ValidateAPIKey checks a key and records its use.
func (s *PostgresStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, to_char(created_at, 'YYYY-MM-DD HH24:MI:SS'),
		       COALESCE(to_char(last_used_at, 'YYYY-MM-DD HH24:MI:SS'),''),
		       revoked_at IS NOT NULL
		FROM api_keys WHERE key_hash = $1`, hashAPIKey(key))

	var k APIKey
	var revoked bool
	if err := row.Scan(&k.ID, &k.Name, &k.CreatedAt, &k.LastUsedAt, &revoked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("validating api key: %w", err)
	}
	if revoked {
		return nil, ErrKeyRevoked
	}

	_, _ = s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, k.ID)
	return &k, nil
}

// ListAPIKeys returns all keys, including revoked ones.
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, to_char(created_at, 'YYYY-MM-DD HH24:MI:SS'),
		       COALESCE(to_char(last_used_at, 'YYYY-MM-DD HH24:MI:SS'),'')
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
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
