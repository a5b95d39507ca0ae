// Package transport provides HTTP handlers for the verification domain.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/habeshapay/receiptproof/internal/banks"
	"github.com/habeshapay/receiptproof/internal/storage"
	"github.com/habeshapay/receiptproof/internal/verification/domain"
)

// Service defines the verification service interface for HTTP transport.
type Service interface {
	Verify(ctx context.Context, req domain.VerifyRequest) (*domain.VerifyResult, error)
	ListBanks() []banks.Descriptor
}

// AttemptLister exposes the verification audit trail.
type AttemptLister interface {
	ListAttempts(ctx context.Context, limit int) ([]storage.Attempt, error)
}

// Handler handles HTTP requests for verification.
type Handler struct {
	svc      Service
	attempts AttemptLister
}

// NewHandler creates a new verification HTTP handler.
func NewHandler(svc Service, attempts AttemptLister) *Handler {
	return &Handler{svc: svc, attempts: attempts}
}

// RegisterReadRoutes registers the routes that never need auth.
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/banks", h.handleListBanks)
}

// RegisterVerifyRoutes registers the verification route; auth depends on
// server configuration.
func (h *Handler) RegisterVerifyRoutes(r chi.Router) {
	r.Post("/verify", h.handleVerify)
}

// RegisterAdminRoutes registers the routes that require authentication.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/attempts", h.handleListAttempts)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON")
		return
	}

	if strings.TrimSpace(req.BankCode) == "" || strings.TrimSpace(req.Reference) == "" ||
		strings.TrimSpace(req.ReceiverAccount) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST",
			"bankCode, reference and receiverAccount are required")
		return
	}

	result, err := h.svc.Verify(r.Context(), req.ToDomain())
	if err != nil {
		// Only context cancellation reaches here; classified failures
		// ride inside the result.
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Verification aborted")
		return
	}

	resp := VerifyResponse{Verified: result.Verified}
	if result.Receipt != nil {
		resp.Receipt = result.Receipt
	}
	if result.Failure != nil {
		resp.Failure = &FailureResponse{
			Stage:         string(result.Failure.Stage),
			Kind:          string(result.Failure.Kind),
			Message:       result.Failure.Message,
			Retryable:     result.Failure.Kind.Retryable(),
			MissingFields: result.Failure.MissingFields,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListBanks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"banks": h.svc.ListBanks(),
	})
}

func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be 1-500")
			return
		}
		limit = n
	}

	attempts, err := h.attempts.ListAttempts(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list attempts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempts": attempts,
	})
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
