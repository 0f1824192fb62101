package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/vaidashi/storefront-api/pkg/errors"
)

// ApiResponse is the envelope every endpoint answers with
type ApiResponse struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// respondWithData sends a successful envelope
func (s *Server) respondWithData(w http.ResponseWriter, code int, data interface{}) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: true,
		Data:    data,
	})
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithAppError maps err onto its status code. Context attached to an
// AppError is returned as details.
func (s *Server) respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.StatusCode(err)
	response := ApiResponse{
		Success: false,
		Error:   err.Error(),
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		response.Details = appErr.Context
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}

	s.respondWithJSON(w, code, response)
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
