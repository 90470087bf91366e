package stats

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type StoreStats interface {
	Count() int
	Dimension() int
	Filenames() []string
}

type Handler struct {
	store StoreStats
}

func NewHandler(store StoreStats) *Handler {
	return &Handler{store: store}
}

type StatsResponse struct {
	Documents int `json:"documents"`
	Files     int `json:"files"`
	Dimension int `json:"dimension"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Documents: h.store.Count(),
		Files:     len(h.store.Filenames()),
		Dimension: h.store.Dimension(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
