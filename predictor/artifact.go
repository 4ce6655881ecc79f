package predictor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"summerberry-forecast/features"
)

// Artifact kinds understood by LoadArtifact
const (
	KindLinear = "linear"
	KindRemote = "remote"
)

// Artifact is a fitted model. Its internals are opaque to the pipeline.
type Artifact interface {
	// Predict returns one value per matrix row
	Predict(ctx context.Context, m *features.Matrix) ([]float64, error)

	// FeatureImportances returns the raw importance scores in training order, or nil
	FeatureImportances() []float64

	// Kind names the artifact type for diagnostics
	Kind() string
}

// Manifest is the on-disk description of an artifact (YAML or JSON)
type Manifest struct {
	Kind               string    `yaml:"kind"`
	Name               string    `yaml:"name"`
	Intercept          float64   `yaml:"intercept"`
	Coefficients       []float64 `yaml:"coefficients"`
	FeatureImportances []float64 `yaml:"feature_importances"`
	Endpoint           string    `yaml:"endpoint"`
	Timeout            string    `yaml:"timeout"`
}

// LoadError reports why an artifact could not be loaded
type LoadError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load model artifact %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadArtifact reads and validates the manifest at path
func LoadArtifact(path string) (Artifact, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &LoadError{Path: path, Err: errors.New("no model path configured")}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("decode manifest: %w", err)}
	}

	artifact, err := manifest.build()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return artifact, nil
}

func (m Manifest) build() (Artifact, error) {
	switch strings.ToLower(strings.TrimSpace(m.Kind)) {
	case KindLinear:
		if len(m.Coefficients) == 0 {
			return nil, errors.New("linear artifact has no coefficients")
		}
		return &LinearArtifact{
			Intercept:    m.Intercept,
			Coefficients: m.Coefficients,
			Importances:  m.FeatureImportances,
		}, nil

	case KindRemote:
		if m.Endpoint == "" {
			return nil, errors.New("remote artifact has no endpoint")
		}
		timeout := 10 * time.Second
		if m.Timeout != "" {
			d, err := time.ParseDuration(m.Timeout)
			if err != nil {
				return nil, fmt.Errorf("invalid timeout %q: %w", m.Timeout, err)
			}
			timeout = d
		}
		return NewRemoteArtifact(m.Endpoint, timeout, m.FeatureImportances), nil

	case "":
		return nil, errors.New("artifact kind is missing")

	default:
		return nil, fmt.Errorf("unknown artifact kind %q", m.Kind)
	}
}
