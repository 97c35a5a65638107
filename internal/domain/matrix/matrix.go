// Package matrix holds the per-token embedding matrix produced by an embedding provider.
package matrix

import (
	"errors"
	"fmt"
)

// ErrInvalidShape signals a matrix whose data does not match its shape.
var ErrInvalidShape = errors.New("invalid matrix shape")

// Matrix is an immutable rows×dim float32 matrix stored row-major.
// Each row is one token embedding.
type Matrix struct {
	rows int
	dim  int
	data []float32
}

// New copies data into a rows×dim matrix.
func New(rows, dim int, data []float32) (Matrix, error) {
	if rows <= 0 || dim <= 0 {
		return Matrix{}, fmt.Errorf("%w: %dx%d", ErrInvalidShape, rows, dim)
	}
	if len(data) != rows*dim {
		return Matrix{}, fmt.Errorf("%w: %dx%d needs %d values, got %d",
			ErrInvalidShape, rows, dim, rows*dim, len(data))
	}
	cp := make([]float32, len(data))
	copy(cp, data)
	return Matrix{rows: rows, dim: dim, data: cp}, nil
}

// FromFlat reshapes a flat buffer into rows of width dim.
func FromFlat(dim int, data []float32) (Matrix, error) {
	if dim <= 0 || len(data) == 0 || len(data)%dim != 0 {
		return Matrix{}, fmt.Errorf("%w: %d values not divisible into rows of %d",
			ErrInvalidShape, len(data), dim)
	}
	return New(len(data)/dim, dim, data)
}

// FromRows builds a matrix from equally sized rows.
func FromRows(rows [][]float32) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, fmt.Errorf("%w: no rows", ErrInvalidShape)
	}
	dim := len(rows[0])
	data := make([]float32, 0, len(rows)*dim)
	for i, r := range rows {
		if len(r) != dim {
			return Matrix{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidShape, i, len(r), dim)
		}
		data = append(data, r...)
	}
	return New(len(rows), dim, data)
}

// Rows returns the token count.
func (m Matrix) Rows() int { return m.rows }

// Dim returns the embedding dimension.
func (m Matrix) Dim() int { return m.dim }

// IsZero reports whether m is the zero Matrix.
func (m Matrix) IsZero() bool { return m.rows == 0 }

// Data returns a copy of the row-major values.
func (m Matrix) Data() []float32 {
	cp := make([]float32, len(m.data))
	copy(cp, m.data)
	return cp
}

// ToRows returns a copy of the matrix as a slice of rows.
func (m Matrix) ToRows() [][]float32 {
	out := make([][]float32, m.rows)
	for i := range out {
		row := make([]float32, m.dim)
		copy(row, m.row(i))
		out[i] = row
	}
	return out
}

// row returns a view of row i. Callers must not modify it.
func (m Matrix) row(i int) []float32 {
	return m.data[i*m.dim : (i+1)*m.dim]
}

// MaxSim computes the late-interaction score of q against d:
// for every row of q the maximum dot product with any row of d, summed over q.
// Dot products accumulate in float64.
func MaxSim(q, d Matrix) (float64, error) {
	if q.dim != d.dim {
		return 0, fmt.Errorf("%w: query dim %d, document dim %d", ErrInvalidShape, q.dim, d.dim)
	}
	if q.rows == 0 || d.rows == 0 {
		return 0, fmt.Errorf("%w: empty matrix", ErrInvalidShape)
	}

	var total float64
	for j := 0; j < q.rows; j++ {
		qr := q.row(j)
		best := dot(qr, d.row(0))
		for i := 1; i < d.rows; i++ {
			if s := dot(qr, d.row(i)); s > best {
				best = s
			}
		}
		total += best
	}
	return total, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for k := range a {
		s += float64(a[k]) * float64(b[k])
	}
	return s
}
