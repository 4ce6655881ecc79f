package predictor

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"summerberry-forecast/features"
)

// State of the adapter
type State string

const (
	StateLoaded   State = "loaded"
	StateUnloaded State = "mock"
)

const (
	mockBase   = 215.0
	mockSpread = 0.2
	mockFloor  = 0.9
)

// FactorNames is the ordered list artifact importance scores are mapped onto
var FactorNames = []string{
	"Temperature",
	"Flower Abortion Rate",
	"Irrigation Volume",
	"Humidity",
	"Solar Radiation",
}

// FactorScore is a named raw importance in [0, 1]
type FactorScore struct {
	Name  string
	Score float64
}

// Importance is an ordered list of factor scores
type Importance []FactorScore

// MockImportance is returned when no usable artifact scores exist
func MockImportance() Importance {
	return Importance{
		{Name: "Temperature", Score: 0.78},
		{Name: "Flower Abortion Rate", Score: 0.72},
		{Name: "Irrigation Volume", Score: 0.55},
		{Name: "Humidity", Score: 0.48},
		{Name: "Solar Radiation", Score: 0.42},
	}
}

// Adapter wraps an optional artifact. It never changes state after construction
// and is safe for concurrent use.
type Adapter struct {
	artifact Artifact
	path     string
	loadErr  error
}

// NewAdapter attempts to load the artifact at path. A failure leaves the
// adapter Unloaded; the error is kept for diagnostics.
func NewAdapter(path string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}

	artifact, err := LoadArtifact(path)
	if err != nil {
		logger.Warn("Model artifact unavailable, using mock predictions",
			zap.String("path", path),
			zap.Error(err))
		return &Adapter{path: path, loadErr: err}
	}

	logger.Info("Model artifact loaded",
		zap.String("path", path),
		zap.String("kind", artifact.Kind()))
	return &Adapter{artifact: artifact, path: path}
}

// NewAdapterWithArtifact builds a Loaded adapter around an existing artifact.
// A nil artifact yields an Unloaded adapter.
func NewAdapterWithArtifact(artifact Artifact) *Adapter {
	return &Adapter{artifact: artifact}
}

// State reports whether an artifact is present
func (a *Adapter) State() State {
	if a.artifact == nil {
		return StateUnloaded
	}
	return StateLoaded
}

// Loaded reports whether an artifact is present
func (a *Adapter) Loaded() bool {
	return a.State() == StateLoaded
}

// Path returns the configured artifact path
func (a *Adapter) Path() string {
	return a.path
}

// LoadErr returns the load failure, if any
func (a *Adapter) LoadErr() error {
	return a.loadErr
}

// Kind returns the artifact kind or "mock"
func (a *Adapter) Kind() string {
	if a.artifact == nil {
		return string(StateUnloaded)
	}
	return a.artifact.Kind()
}

// Predict returns one value per matrix row
func (a *Adapter) Predict(ctx context.Context, m *features.Matrix) ([]float64, error) {
	if a.artifact != nil {
		return a.artifact.Predict(ctx, m)
	}
	return mockPredictions(m.Rows()), nil
}

// FeatureImportance maps the artifact's first five scores onto FactorNames.
// Falls back to MockImportance when fewer scores are available.
func (a *Adapter) FeatureImportance() Importance {
	if a.artifact == nil {
		return MockImportance()
	}

	scores := a.artifact.FeatureImportances()
	if len(scores) < len(FactorNames) {
		return MockImportance()
	}

	// positional: the artifact is trusted to list scores in FactorNames order
	out := make(Importance, len(FactorNames))
	for i, name := range FactorNames {
		out[i] = FactorScore{Name: name, Score: scores[i]}
	}
	return out
}

func mockPredictions(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Round(mockBase * (mockFloor + rand.Float64()*mockSpread))
	}
	return values
}

var (
	sharedOnce    sync.Once
	sharedAdapter *Adapter
)

// Shared returns the process-wide adapter, loading it on first use.
// Later calls ignore their arguments.
func Shared(path string, logger *zap.Logger) *Adapter {
	sharedOnce.Do(func() {
		sharedAdapter = NewAdapter(path, logger)
	})
	return sharedAdapter
}
