package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/imgdex/internal/db"
	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
)

// headerSize is rows uint32 + dim uint32.
const headerSize = 8

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config controls cache keys and expiry.
type Config struct {
	KeyPrefix string
	Model     string
	TTL       time.Duration // 0 = no expiry
}

// CachedEmbedder caches token matrices in a key-value store.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	cfg        Config
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "kind" and "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	s store,
	cfg Config,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		cfg:        cfg,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// EmbedText returns a cached query matrix or calls the inner embedder.
// Cache hit: zero tokens reported.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.textKey(text)

	if m, ok := c.getFromCache(ctx, key); ok {
		c.incCache("text", "hit")
		return domain.EmbeddingResult{Matrix: m}, nil
	}
	c.incCache("text", "miss")

	result, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, result.Matrix)
	return result, nil
}

// EmbedImage returns a cached image matrix or calls the inner embedder.
// The key covers path, size and modification time, so a changed file is re-embedded.
func (c *CachedEmbedder) EmbedImage(ctx context.Context, path string) (domain.EmbeddingResult, error) {
	key, keyErr := c.imageKey(path)
	if keyErr == nil {
		if m, ok := c.getFromCache(ctx, key); ok {
			c.incCache("image", "hit")
			return domain.EmbeddingResult{Matrix: m}, nil
		}
		c.incCache("image", "miss")
	}

	result, err := c.inner.EmbedImage(ctx, path)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed image: %w", err)
	}

	if keyErr == nil {
		c.putToCache(ctx, key, result.Matrix)
	}
	return result, nil
}

// HealthCheck delegates to the inner embedder if it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) incCache(kind, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(kind, result).Inc()
	}
}

func (c *CachedEmbedder) textKey(text string) string {
	return c.hashKey("text:", c.cfg.Model, text)
}

func (c *CachedEmbedder) imageKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return c.hashKey("image:", c.cfg.Model, path,
		strconv.FormatInt(info.Size(), 10),
		strconv.FormatInt(info.ModTime().UnixNano(), 10)), nil
}

func (c *CachedEmbedder) hashKey(kind string, parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(p))
	}
	return c.cfg.KeyPrefix + "emb_cache:" + kind + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) (matrix.Matrix, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return matrix.Matrix{}, false
	}
	if len(data) == 0 {
		return matrix.Matrix{}, false
	}

	m, err := bytesToMatrix(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return matrix.Matrix{}, false
	}
	return m, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, m matrix.Matrix) {
	if m.IsZero() {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, matrixToCacheBytes(m), c.cfg.TTL); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func matrixToCacheBytes(m matrix.Matrix) []byte {
	data := m.Data()
	buf := make([]byte, headerSize+len(data)*4)
	binary.LittleEndian.PutUint32(buf[0:], uint32(m.Rows())) //nolint:gosec // token counts are small
	binary.LittleEndian.PutUint32(buf[4:], uint32(m.Dim()))  //nolint:gosec // dimensions are small
	for i, f := range data {
		binary.LittleEndian.PutUint32(buf[headerSize+i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToMatrix(data []byte) (matrix.Matrix, error) {
	if len(data) < headerSize {
		return matrix.Matrix{}, fmt.Errorf("invalid embedding cache data: len=%d (no header)", len(data))
	}
	rows := int(binary.LittleEndian.Uint32(data[0:]))
	dim := int(binary.LittleEndian.Uint32(data[4:]))
	body := data[headerSize:]
	if len(body)%4 != 0 || len(body)/4 != rows*dim {
		return matrix.Matrix{}, fmt.Errorf("invalid embedding cache data: len=%d for %dx%d", len(data), rows, dim)
	}
	vals := make([]float32, rows*dim)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return matrix.New(rows, dim, vals)
}
