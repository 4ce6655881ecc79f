package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"summerberry-forecast/features"
)

// RemoteArtifact delegates inference to an HTTP model server
type RemoteArtifact struct {
	endpoint    string
	client      *http.Client
	importances []float64
}

// NewRemoteArtifact creates a client for the inference endpoint
func NewRemoteArtifact(endpoint string, timeout time.Duration, importances []float64) *RemoteArtifact {
	return &RemoteArtifact{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
		importances: importances,
	}
}

type remoteRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Predictions []float64 `json:"predictions"`
}

// Predict posts the matrix and expects one prediction per row back
func (a *RemoteArtifact) Predict(ctx context.Context, m *features.Matrix) ([]float64, error) {
	body, err := json.Marshal(remoteRequest{
		Columns: m.Names(),
		Rows:    m.RowsCopy(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned status: %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	if len(out.Predictions) != m.Rows() {
		return nil, fmt.Errorf("inference service returned %d predictions for %d rows", len(out.Predictions), m.Rows())
	}
	return out.Predictions, nil
}

// FeatureImportances returns the scores declared in the manifest
func (a *RemoteArtifact) FeatureImportances() []float64 {
	return a.importances
}

// Kind implements Artifact
func (a *RemoteArtifact) Kind() string {
	return KindRemote
}
