package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ignite/recipient-engine/internal/config"
	"github.com/ignite/recipient-engine/internal/upload"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	uploads *upload.Service
	config  *config.Config
	started time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(cfg *config.Config, uploads *upload.Service) *Handlers {
	return &Handlers{
		uploads: uploads,
		config:  cfg,
		started: time.Now(),
	}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check

// HealthCheck returns the health status of the API
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"timestamp":      time.Now(),
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	})
}
