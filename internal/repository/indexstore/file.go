package indexstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
)

// FileStore keeps the index blob in a single file on local disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the index file.
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the index file.
func (s *FileStore) Load(ctx context.Context) (*index.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index file %s: %w", s.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrIndexIO, s.path, err)
	}
	idx, err := Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("index file %s: %w", s.path, err)
	}
	return idx, nil
}

// Save overwrites the index file atomically: the blob is written to a temporary
// file in the same directory, synced and renamed over the target.
func (s *FileStore) Save(ctx context.Context, idx *index.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	blob, err := Encode(idx)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir %s: %w", domain.ErrIndexIO, dir, err)
	}
	if err := writeFileAtomic(dir, s.path, blob); err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrIndexIO, s.path, err)
	}
	return nil
}

func writeFileAtomic(dir, target string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
