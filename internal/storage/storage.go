// Package storage persists the verification audit trail and API keys.
// Parsed receipts are deliberately not stored; the remote bank document
// is the source of truth and is re-fetched on every verification.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/habeshapay/receiptproof/internal/config"
)

// AttemptStore handles the verification audit trail.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, a *Attempt) error
	ListAttempts(ctx context.Context, limit int) ([]Attempt, error)
}

// APIKeyStore handles API key operations.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, name string) (key string, err error)
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// Store combines all storage interfaces with lifecycle methods.
// Domain services define their own minimal interfaces based on usage.
type Store interface {
	AttemptStore
	APIKeyStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Attempt is one recorded verification attempt. It carries the request
// identifiers and the classified outcome, never receipt contents.
type Attempt struct {
	ID         string `json:"id"`
	BankCode   string `json:"bankCode"`
	Reference  string `json:"reference"`
	Stage      string `json:"stage,omitempty"` // empty when verified
	Kind       string `json:"kind,omitempty"`  // empty when verified
	Verified   bool   `json:"verified"`
	DurationMS int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

// APIKey represents an API key. The key itself is stored only as a
// SHA-256 hash and cannot be retrieved after creation.
type APIKey struct {
	ID         string
	Name       string
	CreatedAt  string
	LastUsedAt string
}

// New creates a Store from configuration: postgres when a database URL
// is configured, sqlite otherwise.
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
