package api

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"summerberry-forecast/cache"
	"summerberry-forecast/models"
	"summerberry-forecast/predictor"
)

// Forecaster runs the forecast pipeline for one upload
type Forecaster interface {
	Run(ctx context.Context, filename string, data []byte, req models.RequestContext) (*models.PredictionResult, error)
}

// ModelInfo exposes the loaded model for health and introspection
type ModelInfo interface {
	State() predictor.State
	Kind() string
	Path() string
	FeatureImportance() predictor.Importance
}

// HealthChecker reports store reachability
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// StatsProvider returns forecast counters
type StatsProvider interface {
	Snapshot(ctx context.Context) cache.Stats
}

// RecordCounter counts stored harvest records
type RecordCounter interface {
	CountRecords(ctx context.Context) (int64, error)
}

// EventStream serves live forecast events
type EventStream interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Options tunes the HTTP surface
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
}

// Server handles HTTP API requests
type Server struct {
	forecaster Forecaster
	model      ModelInfo
	events     EventStream
	health     HealthChecker
	stats      StatsProvider
	records    RecordCounter
	opts       Options
	log        *zap.Logger
}

// NewServer creates a new API server instance
func NewServer(forecaster Forecaster, model ModelInfo, events EventStream, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Server{
		forecaster: forecaster,
		model:      model,
		events:     events,
		opts:       opts,
		log:        log,
	}
}

// SetHealthChecker sets the store check used by /health
func (s *Server) SetHealthChecker(h HealthChecker) {
	s.health = h
}

// SetStats sets the forecast counter source for /api/stats
func (s *Server) SetStats(stats StatsProvider) {
	s.stats = stats
}

// SetRecordCounter sets the record counter for /api/stats
func (s *Server) SetRecordCounter(rc RecordCounter) {
	s.records = rc
}

// Handler builds the routed handler with middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("GET /health", s.handleHealth)

	if s.events != nil {
		mux.Handle("GET /api/events", s.events) // SSE Endpoint
		mux.HandleFunc("GET /api/ws", s.events.ServeWS)
	}
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/model", s.handleModel)

	// Add middleware
	return s.corsMiddleware(s.loggingMiddleware(mux))
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.opts.CORSOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the middleware
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required by the WebSocket upgrade
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap exposes the wrapped writer to http.ResponseController
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.Info("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// Handlers are distributed across multiple files:
// - handlers_predict.go: forecast upload endpoint
// - handlers_config.go: health check, model introspection, stats
