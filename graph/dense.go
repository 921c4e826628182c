package graph

import "gonum.org/v1/gonum/mat"

// Dense materializes the matrix as a gonum dense matrix, for callers that
// want gonum's linear algebra on small graphs. The sparse form stays the
// canonical representation; this allocates rows*cols float64s.
func (m *Matrix) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		// mat.NewDense rejects zero-length dimensions.
		return &mat.Dense{}
	}
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			d.Set(i, m.colInd[k], m.values[k])
		}
	}
	return d
}
