package index

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
)

// Record is one embedded image.
type Record struct {
	id         string
	sourcePath string
	embedding  matrix.Matrix
}

// NewRecord creates a record for sourcePath with an identifier derived from the path.
func NewRecord(sourcePath string, embedding matrix.Matrix) (Record, error) {
	return Reconstruct(IDFromPath(sourcePath), sourcePath, embedding)
}

// Reconstruct restores a record with a known identifier (used by storage).
func Reconstruct(id, sourcePath string, embedding matrix.Matrix) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("%w: record id is required", domain.ErrInvalidRequest)
	}
	if sourcePath == "" {
		return Record{}, fmt.Errorf("%w: record source path is required", domain.ErrInvalidRequest)
	}
	if embedding.IsZero() {
		return Record{}, fmt.Errorf("%w: record %s has no embedding", domain.ErrInvalidRequest, sourcePath)
	}
	return Record{id: id, sourcePath: sourcePath, embedding: embedding}, nil
}

// IDFromPath derives a stable opaque identifier (UUIDv5) from a file path.
func IDFromPath(path string) string {
	name := filepath.ToSlash(filepath.Clean(path))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+name)).String()
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// SourcePath returns the image path the record was built from.
func (r *Record) SourcePath() string { return r.sourcePath }

// Filename returns the base name of the source path.
func (r *Record) Filename() string { return filepath.Base(r.sourcePath) }

// Embedding returns the image token matrix.
func (r *Record) Embedding() matrix.Matrix { return r.embedding }
