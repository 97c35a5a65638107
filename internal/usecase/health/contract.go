package health

import "context"

// DBPinger checks the index store connection (Redis/Valkey or S3).
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker probes the embedding provider.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexCounter is the published index as seen by the health check.
type IndexCounter interface {
	Len() int
}
