package imgdex

import (
	"context"

	healthuc "github.com/kailas-cloud/imgdex/internal/usecase/health"
)

// HealthStatus is the aggregated readiness of the client.
type HealthStatus struct {
	Status  string            // "ok" or "degraded"
	Checks  map[string]string // database, embedding, index
	Records int               // records in the published index
}

// Healthy reports whether every component answered ok and the index is not empty.
func (h HealthStatus) Healthy() bool {
	return h.Status == string(healthuc.Healthy)
}

// Health probes the index store and the embedding provider and inspects the published index.
func (c *Client) Health(ctx context.Context) (status HealthStatus) {
	report := c.healthSvc.Check(ctx)
	status = HealthStatus{
		Status:  string(report.Status),
		Checks:  make(map[string]string, len(report.Checks)),
		Records: report.Records,
	}
	for name, res := range report.Checks {
		status.Checks[name] = string(res)
	}
	return status
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
