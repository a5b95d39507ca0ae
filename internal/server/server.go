// Package server provides the HTTP server setup and wiring.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/habeshapay/receiptproof/internal/auth"
	"github.com/habeshapay/receiptproof/internal/banks"
	"github.com/habeshapay/receiptproof/internal/banks/cbe"
	"github.com/habeshapay/receiptproof/internal/banks/dashen"
	"github.com/habeshapay/receiptproof/internal/config"
	"github.com/habeshapay/receiptproof/internal/extract"
	"github.com/habeshapay/receiptproof/internal/fetch"
	"github.com/habeshapay/receiptproof/internal/middleware/logging"
	"github.com/habeshapay/receiptproof/internal/middleware/ratelimit"
	"github.com/habeshapay/receiptproof/internal/middleware/realip"
	"github.com/habeshapay/receiptproof/internal/middleware/security"
	"github.com/habeshapay/receiptproof/internal/observability/metrics"
	"github.com/habeshapay/receiptproof/internal/storage"
	verificationDomain "github.com/habeshapay/receiptproof/internal/verification/domain"
	verificationTransport "github.com/habeshapay/receiptproof/internal/verification/transport"
)

// Server is the HTTP server
type Server struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger
	router *chi.Mux

	verificationSvc verificationTransport.Service
}

// New creates a new server. All bank clients are registered here, once,
// before the first request; the registry is read-only afterwards.
func New(cfg *config.Config, store storage.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
		router: chi.NewRouter(),
	}

	registry, err := buildRegistry(cfg.Banks)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second)
	extractor := extract.NewPDF()

	svc := verificationDomain.NewService(registry, fetcher, extractor)
	wrapped := verificationDomain.AuditMiddleware(store, logger)(svc)
	s.verificationSvc = verificationDomain.LoggingMiddleware(logger)(wrapped)

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// buildRegistry registers every supported bank client. A duplicate code
// fails startup.
func buildRegistry(cfg config.BanksConfig) (*banks.Registry, error) {
	registry := banks.NewRegistry()
	clients := []banks.Client{
		cbe.New(cfg.CBEBaseURL),
		dashen.New(cfg.DashenBaseURL),
	}
	for _, c := range clients {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("registering bank clients: %w", err)
		}
	}
	return registry, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for a separate
// metrics listener.
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

func (s *Server) setupMiddleware() {
	// Order matters: realip first so every later middleware sees the
	// true client address.
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))
	s.router.Use(security.MaxBodySizeMiddleware(s.cfg.Security.MaxBodySizeKB))
	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:        s.cfg.RateLimit.Enabled,
		RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
		BurstSize:      s.cfg.RateLimit.BurstSize,
		CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
	}))
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// CORS: storefront frontends call /verify directly.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleHealth)

	s.router.Handle("/metrics", metrics.Handler())

	verificationHandler := verificationTransport.NewHandler(s.verificationSvc, s.store)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Bank listing is public; callers need it before they can
		// hold a key.
		verificationHandler.RegisterReadRoutes(r)

		// Verification requires a key only when so configured.
		r.Group(func(r chi.Router) {
			if s.cfg.Auth.Type == "api-key" {
				r.Use(auth.Middleware(s.store, writeError))
			}
			verificationHandler.RegisterVerifyRoutes(r)
		})

		// The audit trail always needs a key, whatever the auth mode
		// for verification itself.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.store, writeError))
			verificationHandler.RegisterAdminRoutes(r)
		})
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
