package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/hookwatch/internal/domain"
)

// FailureLookup resolves the full text stored for a report message.
type FailureLookup interface {
	FullText(ctx context.Context, messageID string) (string, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FailureHandler handles admin and health requests.
type FailureHandler struct {
	lookup FailureLookup
	pinger Pinger
	logger *slog.Logger
}

// NewFailureHandler creates a new FailureHandler. pinger may be nil.
func NewFailureHandler(lookup FailureLookup, pinger Pinger, logger *slog.Logger) *FailureHandler {
	return &FailureHandler{lookup: lookup, pinger: pinger, logger: logger}
}

// HealthCheck reports ok, or 503 when the failure store is unreachable.
func (h *FailureHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.Warn("failure store health check failed", "error", err)
			h.respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetFailure returns the full failure text for a report message.
// GET /admin/failures/{messageID}
func (h *FailureHandler) GetFailure(w http.ResponseWriter, r *http.Request) {
	messageID := r.PathValue("messageID")
	if messageID == "" {
		http.Error(w, "messageID is required", http.StatusBadRequest)
		return
	}

	text, err := h.lookup.FullText(r.Context(), messageID)
	if errors.Is(err, domain.ErrFailureNotFound) {
		http.Error(w, "failure not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to look up failure", "error", err, "message_id", messageID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

func (h *FailureHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
