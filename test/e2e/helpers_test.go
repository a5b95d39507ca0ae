//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/habeshapay/receiptproof/internal/config"
	"github.com/habeshapay/receiptproof/internal/server"
	"github.com/habeshapay/receiptproof/internal/storage"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// References the stub bank host reacts to. Anything else is a 404, like
// the real hosts answer for unknown documents.
const (
	RefMissing       = "FTAAAAAAAAAA" // host has no such receipt
	RefPending       = "FTBBBBBBBBBB" // host answers with an HTML placeholder
	RefEmpty         = "FTCCCCCCCCCC" // host answers 200 with no body
	DashenRefMissing = "DBAAAAAAAAAA"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	BankStub          *httptest.Server
	TestServer        *httptest.Server
	Store             storage.Store
	APIKey            string
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("receiptproof"),
		postgres.WithUsername("receiptproof"),
		postgres.WithPassword("receiptproof"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// startBankStub starts a TLS server impersonating the bank receipt
// hosts. Like the real hosts it serves a self-signed certificate, which
// the fetcher must tolerate.
func startBankStub() *httptest.Server {
	return httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CBE addresses receipts by ?id=<reference><accountSuffix>;
		// Dashen by /receipt?reference=<reference>
		ref := r.URL.Query().Get("reference")
		if ref == "" {
			ref = r.URL.Query().Get("id")
		}

		switch {
		case strings.HasPrefix(ref, RefPending):
			w.Write([]byte("<html><body>Receipt is being generated</body></html>"))
		case strings.HasPrefix(ref, RefEmpty):
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// startServerE starts the receiptproof server in-process
func startServerE(connString, bankStubURL string) (*httptest.Server, storage.Store, error) {
	// Create config
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Storage: config.StorageConfig{
			Type: "postgres",
			Postgres: config.PostgresConfig{
				URL: connString,
			},
		},
		Banks: config.BanksConfig{
			CBEBaseURL:    bankStubURL,
			DashenBaseURL: bankStubURL,
		},
		Fetch:     config.FetchConfig{TimeoutSeconds: 5},
		Auth:      config.AuthConfig{Type: "none"},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security:  config.SecurityConfig{MaxBodySizeKB: 64},
		Proxy:     config.ProxyConfig{TrustProxy: false},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Create store
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	// Run migrations
	if err := store.Migrate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create server
	srv, err := server.New(cfg, store, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create server: %w", err)
	}

	return httptest.NewServer(srv.Handler()), store, nil
}
