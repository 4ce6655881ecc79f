package forecast

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"summerberry-forecast/features"
	"summerberry-forecast/models"
	"summerberry-forecast/predictor"
	"summerberry-forecast/upload"
)

// HistoryFetcher looks up historical harvest records. Implementations absorb
// their own failures and return models.EmptyHistory instead.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, site, variety, sector, plantationDate string) models.HistoricalQueryResult
}

// Predictor is the model adapter surface used by the pipeline
type Predictor interface {
	Predict(ctx context.Context, m *features.Matrix) ([]float64, error)
	FeatureImportance() predictor.Importance
}

// Observer is notified after every successful forecast.
// Calls happen off the request path; they must not block for long.
type Observer interface {
	ForecastCompleted(ctx context.Context, evt models.ForecastEvent)
}

// Service runs the forecast pipeline
type Service struct {
	model     Predictor
	history   HistoryFetcher
	observers []Observer
	logger    *zap.Logger
	pending   sync.WaitGroup
}

// NewService wires the pipeline. history may be nil when no store is configured.
func NewService(model Predictor, history HistoryFetcher, logger *zap.Logger, observers ...Observer) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		model:     model,
		history:   history,
		observers: observers,
		logger:    logger,
	}
}

// AddObserver registers another post-forecast observer. Not safe to call once Run is in use.
func (s *Service) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Run parses the upload and fetches history concurrently, then builds features,
// predicts and assembles the result.
func (s *Service) Run(ctx context.Context, filename string, data []byte, req models.RequestContext) (*models.PredictionResult, error) {
	// Reject bad extensions before any work starts
	if _, err := upload.DetectFormat(filename); err != nil {
		return nil, err
	}

	var (
		table   *upload.Table
		history = models.EmptyHistory()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := upload.Parse(filename, data)
		if err != nil {
			return err
		}
		table = t
		return nil
	})
	if s.history != nil {
		g.Go(func() error {
			history = s.history.FetchHistory(gctx, req.Site, req.Variety, req.Sector, req.PlantationDate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matrix := features.Build(table, history, req)

	values, err := s.model.Predict(ctx, matrix)
	if err != nil {
		return nil, fmt.Errorf("model prediction failed: %w", err)
	}
	if len(values) != matrix.Rows() {
		return nil, fmt.Errorf("model returned %d values for %d rows", len(values), matrix.Rows())
	}

	result := Assemble(values, req.SelectedDate, s.model.FeatureImportance())

	s.logger.Debug("Forecast generated",
		zap.String("site", req.Site),
		zap.String("variety", req.Variety),
		zap.String("sector", req.Sector),
		zap.Int("history_records", history.Count),
		zap.Int("features", matrix.Cols()),
		zap.Int("total", result.Total))

	s.notify(ctx, models.NewForecastEvent(req, result))
	return result, nil
}

func (s *Service) notify(ctx context.Context, evt models.ForecastEvent) {
	if len(s.observers) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	for _, o := range s.observers {
		s.pending.Add(1)
		go func(o Observer) {
			defer s.pending.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Forecast observer panicked", zap.Any("panic", r))
				}
			}()
			o.ForecastCompleted(detached, evt)
		}(o)
	}
}

// Wait blocks until in-flight observer notifications finish
func (s *Service) Wait() {
	s.pending.Wait()
}
