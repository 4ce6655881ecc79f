package features

import "gonum.org/v1/gonum/mat"

// Matrix is the dense feature matrix handed to the model, with a name per column.
type Matrix struct {
	data  *mat.Dense
	names []string
}

// NewMatrix wraps rows of equal width; names may be nil.
func NewMatrix(rows [][]float64, names []string) *Matrix {
	if len(rows) == 0 {
		return &Matrix{names: names}
	}
	cols := len(rows[0])
	flat := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		flat = append(flat, row[:cols]...)
	}
	return &Matrix{data: mat.NewDense(len(rows), cols, flat), names: names}
}

// Dims returns the row and column counts
func (m *Matrix) Dims() (int, int) {
	if m == nil || m.data == nil {
		return 0, 0
	}
	return m.data.Dims()
}

// Rows returns the number of forecast days in the matrix
func (m *Matrix) Rows() int {
	r, _ := m.Dims()
	return r
}

// Cols returns the feature count
func (m *Matrix) Cols() int {
	_, c := m.Dims()
	return c
}

// At returns the feature at row i, column j
func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Row returns a copy of row i
func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.data)
}

// RowsCopy returns every row as a fresh slice
func (m *Matrix) RowsCopy() [][]float64 {
	r := m.Rows()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.Row(i)
	}
	return out
}

// Names returns the column names
func (m *Matrix) Names() []string {
	return append([]string(nil), m.names...)
}

// Dense exposes the underlying gonum matrix for linear algebra consumers.
func (m *Matrix) Dense() *mat.Dense {
	return m.data
}
