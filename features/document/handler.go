package document

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"doctalk/backend/internal/adapter"
	"doctalk/backend/internal/middleware"
	"doctalk/backend/internal/vector"
)

var allowedExts = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".json": true,
	".xlsx": true, ".xlsm": true, ".xls": true,
}

type Handler struct {
	service        *Service
	maxUploadBytes int64
	timeout        time.Duration
}

func NewHandler(service *Service, maxUploadBytes int64, timeout time.Duration) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes, timeout: timeout}
}

// Upload accepts a multipart "file" field, decodes it to text and runs the
// ingestion pipeline. Responds with the number of chunks added.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExts[ext] {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unsupported file type", http.StatusBadRequest)
		return
	}

	content, err := DecodeUpload(header.Filename, file)
	if err != nil {
		if errors.Is(err, ErrDecodeFailure) {
			h.writeError(r.Context(), w, "DECODE_FAILURE", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "upload decode failed", "error", err, "filename", header.Filename)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	added, err := h.service.Ingest(ctx, header.Filename, content)
	if err != nil {
		switch {
		case errors.Is(err, vector.ErrDimensionMismatch):
			h.writeError(r.Context(), w, "DIMENSION_MISMATCH", "Embedding size mismatch with existing index", http.StatusInternalServerError)
		case errors.Is(err, adapter.ErrGatewayUnavailable):
			h.writeError(r.Context(), w, "GATEWAY_UNAVAILABLE", "Embedding provider unavailable", http.StatusBadGateway)
		default:
			slog.ErrorContext(r.Context(), "ingestion failed", "error", err, "filename", header.Filename)
			h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{"chunks_added": added}); err != nil {
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
