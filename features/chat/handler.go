// Package chat exposes the question-answering endpoint.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"doctalk/backend/internal/adapter"
	"doctalk/backend/internal/middleware"
	"doctalk/backend/internal/retrieval"
	"doctalk/backend/internal/store"
)

type Asker interface {
	Ask(ctx context.Context, question string) (*retrieval.Answer, error)
}

type Handler struct {
	service Asker
	timeout time.Duration
}

func NewHandler(service Asker, timeout time.Duration) *Handler {
	return &Handler{service: service, timeout: timeout}
}

// Ask answers a question from the ingested documents. The response carries
// the generated answer and the retrieved chunks, nearest first.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Question is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	answer, err := h.service.Ask(ctx, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmptyStore):
			h.writeError(r.Context(), w, "EMPTY_STORE", "Vector store is empty. Upload files first.", http.StatusBadRequest)
		case errors.Is(err, adapter.ErrGatewayUnavailable):
			h.writeError(r.Context(), w, "GATEWAY_UNAVAILABLE", "AI provider unavailable", http.StatusBadGateway)
		default:
			slog.ErrorContext(r.Context(), "chat failed", "error", err)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(answer); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
