package imgdex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// S3Config locates the index object in an S3-compatible bucket.
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	ObjectKey       string // default "index.parquet"
	UseSSL          bool
}

type clientConfig struct {
	backend string // "file", "redis", "valkey" or "s3"

	path string

	addrs      []string
	password   string
	standalone bool
	keyPrefix  string
	indexName  string

	s3 S3Config

	model       string
	dimension   int
	cacheTTL    time.Duration
	cache       bool
	loadOnStart bool

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithIndexFile stores the index as a Parquet file at path.
func WithIndexFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "file"
		c.path = path
	})
}

// WithValkey stores the index as one key in a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis stores the index as one key in a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithS3 stores the index as one object in an S3-compatible bucket.
// The bucket is created when missing.
func WithS3(cfg S3Config) Option {
	return optionFunc(func(c *clientConfig) {
		c.backend = "s3"
		c.s3 = cfg
	})
}

// WithStandalone disables cluster topology discovery for Redis/Valkey.
func WithStandalone() Option {
	return optionFunc(func(c *clientConfig) {
		c.standalone = true
	})
}

// WithIndexName names the index key for Redis/Valkey. Default: "default".
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithKeyPrefix prefixes every Redis/Valkey key. Default: "imgdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithModel records the embedding model in built indexes and rejects
// loading an index built by a different model.
func WithModel(model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.model = model
	})
}

// WithDimension rejects images whose token width differs from dim during Build.
// Without it the first indexed image fixes the width. NewOpenAIEmbedder
// configured with Dimensions sets it implicitly.
func WithDimension(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimension = dim
	})
}

// WithEmbeddingCache caches token matrices in Redis/Valkey for ttl (0 = no expiry).
// Ignored for file and S3 backends.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cache = true
		c.cacheTTL = ttl
	})
}

// WithLoadOnStart loads the stored index in New. A missing index is not an error.
func WithLoadOnStart() Option {
	return optionFunc(func(c *clientConfig) {
		c.loadOnStart = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
