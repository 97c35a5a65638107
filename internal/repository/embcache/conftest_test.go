package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/db"
	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	textCalls  int
	imageCalls int
}

func (m *mockEmbedder) EmbedText(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.textCalls++
	return m.result, m.err
}

func (m *mockEmbedder) EmbedImage(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.imageCalls++
	return m.result, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, Config{KeyPrefix: "imgdex:", Model: "test-model", TTL: time.Hour}, nil, zap.NewNop())
	return ce, ms
}

func mustMatrix(t *testing.T, rows [][]float32) matrix.Matrix {
	t.Helper()
	m, err := matrix.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return m
}
