package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorResponse is the body of every non-2xx JSON response
type errorResponse struct {
	Detail string `json:"detail"`
}

// respondJSON writes payload with the given status code
func (s *Server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("Failed to encode response", zap.Error(err))
	}
}

// respondWithError logs the error and sends a JSON error response
// Use this to avoid exposing internal errors while still logging them
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, err error) {
	fields := []zap.Field{zap.Int("status", code), zap.String("message", message)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("API error", fields...)
	} else {
		s.log.Info("API client error", fields...)
	}
	s.respondJSON(w, code, errorResponse{Detail: message})
}
