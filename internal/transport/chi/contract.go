package chi

import (
	"context"

	"github.com/kailas-cloud/imgdex/internal/domain/evaluation"
	"github.com/kailas-cloud/imgdex/internal/domain/search/request"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
	"github.com/kailas-cloud/imgdex/internal/usecase/builder"
	collectionuc "github.com/kailas-cloud/imgdex/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/imgdex/internal/usecase/health"
)

// IndexService is the index lifecycle the API exposes.
type IndexService interface {
	Build(ctx context.Context, dir string, persist bool) (builder.Report, error)
	Load(ctx context.Context) error
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
	Evaluate(ctx context.Context, queries []string, thresholds []float64) ([]evaluation.ThresholdStat, error)
	Info() collectionuc.Info
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
