package handlers

import (
	"net/http"
)

// HealthHandler handles liveness checks. It reports the readiness flag set at
// startup and never calls into the dispatcher.
type HealthHandler struct {
	version         string
	qdrantConnected bool
}

// NewHealthHandler creates a new HealthHandler. qdrantConnected reflects
// whether the store connection was confirmed during startup.
func NewHealthHandler(version string, qdrantConnected bool) *HealthHandler {
	return &HealthHandler{
		version:         version,
		qdrantConnected: qdrantConnected,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	QdrantConnected bool   `json:"qdrant_connected"`
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		Version:         h.version,
		QdrantConnected: h.qdrantConnected,
	})
}
