package api

import (
	"context"
	"net/http"
	"time"
)

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Timestamp string `json:"timestamp"`
}

// healthCheckHandler reports whether the database answers
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Database:  "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if s.services.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.services.Health.Ping(ctx); err != nil {
			s.logger.Warn("Health check failed", "error", err)
			health.Status = "degraded"
			health.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	s.respondWithJSON(w, code, ApiResponse{
		Success: code == http.StatusOK,
		Data:    health,
	})
}

// statsHandler returns the admin dashboard summary
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Stats.Dashboard(r.Context())
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, stats)
}
