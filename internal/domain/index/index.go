// Package index models the ordered collection of embedded images searched at query time.
package index

import (
	"fmt"

	"github.com/kailas-cloud/imgdex/internal/domain"
)

// Index is an ordered sequence of records sharing one embedding dimension.
// It is appended to only while being built; once published it must be treated as read-only.
type Index struct {
	model     string
	dimension int
	records   []Record
}

// New creates an empty index for embeddings produced by model.
func New(model string) *Index {
	return &Index{model: model}
}

// NewWithDimension creates an empty index that only accepts records of the given dimension.
// A dimension of 0 or less leaves it to the first appended record.
func NewWithDimension(model string, dimension int) *Index {
	return &Index{model: model, dimension: max(dimension, 0)}
}

// Restore rebuilds an index from persisted parts, validating the dimension invariant.
func Restore(model string, dimension int, records []Record) (*Index, error) {
	idx := &Index{model: model, dimension: dimension, records: make([]Record, 0, len(records))}
	for i := range records {
		if err := idx.Append(records[i]); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return idx, nil
}

// Append adds a record at the end. The first record fixes the dimension of an empty index.
func (x *Index) Append(r Record) error {
	dim := r.embedding.Dim()
	if x.dimension == 0 {
		x.dimension = dim
	}
	if dim != x.dimension {
		return fmt.Errorf("%w: record %s has dim %d, index has %d",
			domain.ErrVectorDimMismatch, r.sourcePath, dim, x.dimension)
	}
	x.records = append(x.records, r)
	return nil
}

// Len returns the number of records.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.records)
}

// Dimension returns the embedding dimension, 0 while the index is empty and unset.
func (x *Index) Dimension() int { return x.dimension }

// Model returns the embedding model name recorded at build time.
func (x *Index) Model() string { return x.model }

// WithModel returns a shallow copy of the index labelled with model.
func (x *Index) WithModel(model string) *Index {
	cp := *x
	cp.model = model
	return &cp
}

// Records returns the records in insertion order. The slice is a copy; records are immutable.
func (x *Index) Records() []Record {
	if x == nil {
		return nil
	}
	out := make([]Record, len(x.records))
	copy(out, x.records)
	return out
}

// At returns the i-th record.
func (x *Index) At(i int) Record { return x.records[i] }
