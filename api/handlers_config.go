package api

import (
	"context"
	"net/http"
	"time"

	"summerberry-forecast/forecast"
	"summerberry-forecast/predictor"
)

// handleHealth returns the health status of the API
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "disconnected"
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err == nil {
			dbStatus = "connected"
		}
	}

	modelStatus := string(predictor.StateUnloaded)
	if s.model != nil {
		modelStatus = string(s.model.State())
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": dbStatus,
		"model":    modelStatus,
	})
}

type factorInfo struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Correlation string  `json:"correlation"`
}

// handleModel describes the active model and its importance table
func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	if s.model == nil {
		s.respondWithError(w, http.StatusServiceUnavailable, "Model not configured", nil)
		return
	}

	importance := s.model.FeatureImportance()
	factors := make([]factorInfo, 0, len(importance))
	for _, f := range importance {
		factors = append(factors, factorInfo{
			Name:        f.Name,
			Score:       f.Score,
			Correlation: forecast.Correlation(f.Name),
		})
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":   s.model.State(),
		"kind":    s.model.Kind(),
		"path":    s.model.Path(),
		"factors": factors,
	})
}

// handleStats returns forecast counters and, when available, the stored record count
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}

	if s.stats != nil {
		resp["forecasts"] = s.stats.Snapshot(r.Context())
	}

	if s.records != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if count, err := s.records.CountRecords(ctx); err == nil {
			resp["harvestRecords"] = count
		} else {
			resp["harvestRecords"] = nil
		}
	}

	s.respondJSON(w, http.StatusOK, resp)
}
