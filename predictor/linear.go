package predictor

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"summerberry-forecast/features"
)

// LinearArtifact is a fitted linear regression: y = X·w + b
type LinearArtifact struct {
	Intercept    float64
	Coefficients []float64
	Importances  []float64
}

// Predict applies the coefficients to every row.
// The matrix width must equal the coefficient count.
func (a *LinearArtifact) Predict(_ context.Context, m *features.Matrix) ([]float64, error) {
	rows, cols := m.Dims()
	if rows == 0 {
		return []float64{}, nil
	}
	if cols != len(a.Coefficients) {
		return nil, fmt.Errorf("feature count mismatch: model expects %d, got %d", len(a.Coefficients), cols)
	}

	weights := mat.NewVecDense(cols, a.Coefficients)
	var out mat.VecDense
	out.MulVec(m.Dense(), weights)

	values := make([]float64, rows)
	for i := range values {
		values[i] = out.AtVec(i) + a.Intercept
	}
	return values, nil
}

// FeatureImportances returns the stored scores
func (a *LinearArtifact) FeatureImportances() []float64 {
	return a.Importances
}

// Kind implements Artifact
func (a *LinearArtifact) Kind() string {
	return KindLinear
}
