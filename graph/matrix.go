// Package graph defines the sparse matrix and bundle types returned by the
// graphset loaders.
package graph

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned by matrix construction.
var (
	// ErrShape indicates negative or otherwise impossible matrix dimensions.
	ErrShape = errors.New("invalid matrix shape")

	// ErrEntryRange indicates a triplet outside the declared dimensions.
	ErrEntryRange = errors.New("matrix entry out of range")
)

// Triplet is a single (row, col, weight) entry used to build a Matrix.
type Triplet struct {
	Row    int
	Col    int
	Weight float64
}

// Matrix is an immutable sparse matrix in compressed sparse row form.
// Duplicate entries passed to NewMatrix are summed, following the usual
// COO-to-CSR convention, so parallel edges accumulate weight.
type Matrix struct {
	rows   int
	cols   int
	rowPtr []int     // rows+1 offsets into colInd/values
	colInd []int     // column index per stored entry, ascending within a row
	values []float64 // weight per stored entry
}

// NewMatrix builds a rows x cols matrix from triplet entries.
// Entries may arrive in any order; duplicates sum.
func NewMatrix(rows, cols int, entries []Triplet) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrShape, rows, cols)
	}

	for _, t := range entries {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, fmt.Errorf("%w: (%d,%d) in %dx%d matrix", ErrEntryRange, t.Row, t.Col, rows, cols)
		}
	}

	sorted := make([]Triplet, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Col < sorted[j].Col
	})

	// Collapse duplicates while recording the row of each kept entry.
	rowOf := make([]int, 0, len(sorted))
	colInd := make([]int, 0, len(sorted))
	values := make([]float64, 0, len(sorted))
	for _, t := range sorted {
		if k := len(colInd); k > 0 && rowOf[k-1] == t.Row && colInd[k-1] == t.Col {
			values[k-1] += t.Weight
			continue
		}
		rowOf = append(rowOf, t.Row)
		colInd = append(colInd, t.Col)
		values = append(values, t.Weight)
	}

	rowPtr := make([]int, rows+1)
	for _, r := range rowOf {
		rowPtr[r+1]++
	}
	for i := 0; i < rows; i++ {
		rowPtr[i+1] += rowPtr[i]
	}

	return &Matrix{
		rows:   rows,
		cols:   cols,
		rowPtr: rowPtr,
		colInd: colInd,
		values: values,
	}, nil
}

// Symmetrize returns entries plus a mirrored copy of every off-diagonal
// entry. Diagonal entries (self-loops) are not mirrored, so their weight is
// unchanged by undirected loading.
func Symmetrize(entries []Triplet) []Triplet {
	out := make([]Triplet, 0, 2*len(entries))
	for _, t := range entries {
		out = append(out, t)
		if t.Row != t.Col {
			out = append(out, Triplet{Row: t.Col, Col: t.Row, Weight: t.Weight})
		}
	}
	return out
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.colInd) }

// Sum returns the total of all stored weights.
func (m *Matrix) Sum() float64 {
	var s float64
	for _, v := range m.values {
		s += v
	}
	return s
}

// At returns the weight at (i, j), or 0 when no entry is stored.
// It panics if the indices are outside the matrix.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("graph: index (%d,%d) out of range for %dx%d matrix", i, j, m.rows, m.cols))
	}

	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	k := lo + sort.SearchInts(m.colInd[lo:hi], j)
	if k < hi && m.colInd[k] == j {
		return m.values[k]
	}
	return 0
}

// Row returns the column indices and weights stored for row i.
// The returned slices are views into the matrix and must not be modified.
func (m *Matrix) Row(i int) ([]int, []float64) {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("graph: row %d out of range for %dx%d matrix", i, m.rows, m.cols))
	}
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	return m.colInd[lo:hi], m.values[lo:hi]
}

// Triplets materializes the stored entries in row-major order.
func (m *Matrix) Triplets() []Triplet {
	out := make([]Triplet, 0, len(m.colInd))
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			out = append(out, Triplet{Row: i, Col: m.colInd[k], Weight: m.values[k]})
		}
	}
	return out
}

// Transpose returns a new matrix with rows and columns exchanged.
func (m *Matrix) Transpose() *Matrix {
	t := &Matrix{
		rows:   m.cols,
		cols:   m.rows,
		rowPtr: make([]int, m.cols+1),
		colInd: make([]int, len(m.colInd)),
		values: make([]float64, len(m.values)),
	}

	for _, j := range m.colInd {
		t.rowPtr[j+1]++
	}
	for i := 0; i < t.rows; i++ {
		t.rowPtr[i+1] += t.rowPtr[i]
	}

	// next[j] tracks the insertion point for transposed row j.
	next := make([]int, t.rows)
	copy(next, t.rowPtr[:t.rows])
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j := m.colInd[k]
			t.colInd[next[j]] = i
			t.values[next[j]] = m.values[k]
			next[j]++
		}
	}

	return t
}

// IsSymmetric reports whether the matrix is square and every entry matches
// its mirror within eps.
func (m *Matrix) IsSymmetric(eps float64) bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j := m.colInd[k]
			d := m.values[k] - m.At(j, i)
			if d > eps || d < -eps {
				return false
			}
		}
	}
	return true
}
