package sentimen

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// A SparseVector holds the non-zero entries of one row. Indices are
// strictly ascending.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// At returns the value at column j.
func (v SparseVector) At(j int) float64 {
	k := sort.SearchInts(v.Indices, j)
	if k < len(v.Indices) && v.Indices[k] == j {
		return v.Values[k]
	}
	return 0
}

// Dense expands v to a slice of length cols.
func (v SparseVector) Dense(cols int) []float64 {
	out := make([]float64, cols)
	for k, j := range v.Indices {
		out[j] = v.Values[k]
	}
	return out
}

// NNZ returns the number of stored entries.
func (v SparseVector) NNZ() int {
	return len(v.Indices)
}

// sparseFromDense keeps the non-zero entries of row.
func sparseFromDense(row []float64) SparseVector {
	var v SparseVector
	for j, x := range row {
		if x != 0 {
			v.Indices = append(v.Indices, j)
			v.Values = append(v.Values, x)
		}
	}
	return v
}

// A Matrix is a row-major sparse matrix with a fixed column count. It
// implements mat.Matrix.
type Matrix struct {
	rows []SparseVector
	cols int
}

// NewMatrix creates an empty matrix with cols columns.
func NewMatrix(cols int) *Matrix {
	return &Matrix{cols: cols}
}

// NewMatrixFromRows creates a matrix from existing rows. Every index must
// be in [0, cols).
func NewMatrixFromRows(cols int, rows []SparseVector) (*Matrix, error) {
	m := &Matrix{cols: cols}
	for _, row := range rows {
		if err := m.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AppendRow adds a row to the bottom of m.
func (m *Matrix) AppendRow(row SparseVector) error {
	if len(row.Indices) != len(row.Values) {
		return fmt.Errorf("%w: row has %d indices and %d values", ErrValidation, len(row.Indices), len(row.Values))
	}
	for k, j := range row.Indices {
		if j < 0 || j >= m.cols {
			return fmt.Errorf("%w: column %d out of range [0, %d)", ErrValidation, j, m.cols)
		}
		if k > 0 && row.Indices[k-1] >= j {
			return fmt.Errorf("%w: row indices are not ascending", ErrValidation)
		}
	}
	m.rows = append(m.rows, row)
	return nil
}

// Dims returns the dimensions of m.
func (m *Matrix) Dims() (r, c int) {
	return len(m.rows), m.cols
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= len(m.rows) || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	return m.rows[i].At(j)
}

// T returns the transpose of m.
func (m *Matrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// Row returns row i. The returned vector must not be modified.
func (m *Matrix) Row(i int) SparseVector {
	return m.rows[i]
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	return len(m.rows)
}

// Cols returns the number of columns.
func (m *Matrix) Cols() int {
	return m.cols
}

// ToDense copies m into a gonum dense matrix.
func (m *Matrix) ToDense() *mat.Dense {
	if len(m.rows) == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(len(m.rows), m.cols, nil)
	for i, row := range m.rows {
		for k, j := range row.Indices {
			d.Set(i, j, row.Values[k])
		}
	}
	return d
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{cols: m.cols, rows: make([]SparseVector, len(m.rows))}
	for i, row := range m.rows {
		out.rows[i] = SparseVector{
			Indices: append([]int(nil), row.Indices...),
			Values:  append([]float64(nil), row.Values...),
		}
	}
	return out
}
