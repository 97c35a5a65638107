package indexstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/imgdex/internal/db"
	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
)

// blobKV is the consumer interface over a remote key/value or object store (ISP).
// Implementations report a missing key as db.ErrKeyNotFound.
type blobKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// BlobStore keeps the index blob under one key of a remote store
// (Redis/Valkey via rueidis, or an S3 bucket via minio).
type BlobStore struct {
	kv  blobKV
	key string
}

// NewBlobStore creates a store that reads and writes the blob at key.
func NewBlobStore(kv blobKV, key string) *BlobStore {
	return &BlobStore{kv: kv, key: key}
}

// Key returns the storage key of the blob.
func (s *BlobStore) Key() string { return s.key }

// Load fetches and decodes the blob.
func (s *BlobStore) Load(ctx context.Context) (*index.Index, error) {
	blob, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("index %s: %w", s.key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get %s: %w", domain.ErrIndexIO, s.key, err)
	}
	if len(blob) == 0 {
		return nil, fmt.Errorf("index %s: %w", s.key, domain.ErrNotFound)
	}
	idx, err := Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", s.key, err)
	}
	return idx, nil
}

// Save encodes the index and overwrites the blob in a single write.
func (s *BlobStore) Save(ctx context.Context, idx *index.Index) error {
	blob, err := Encode(idx)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, blob); err != nil {
		return fmt.Errorf("%w: set %s: %w", domain.ErrIndexIO, s.key, err)
	}
	return nil
}

// IndexKey builds the storage key for a named index.
func IndexKey(prefix, name string) string {
	return prefix + "index:" + name
}
