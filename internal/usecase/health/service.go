// Package health aggregates readiness of the index store, the embedding
// provider and the published index.
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the aggregated health.
type Status string

const (
	Healthy  Status = "ok"
	Degraded Status = "degraded"
)

// CheckResult is one component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
	// CheckEmpty means nothing has been built or loaded yet.
	CheckEmpty CheckResult = "empty"
)

// probeTimeout bounds each remote probe so one slow dependency cannot stall the report.
const probeTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Records int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	index     func() IndexCounter
}

// New creates a Service. db and embedding may be nil; index returns the currently published index.
func New(db DBPinger, embedding EmbeddingChecker, index func() IndexCounter) *Service {
	return &Service{db: db, embedding: embedding, index: index}
}

// Check probes the remote components concurrently and inspects the published index.
// Any result other than ok degrades the report.
func (s *Service) Check(ctx context.Context) Report {
	probes := make(map[string]func(context.Context) error, 2)
	if s.db != nil {
		probes["database"] = s.db.Ping
	}
	if s.embedding != nil {
		probes["embedding"] = s.embedding.HealthCheck
	}

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(probes)+1)}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := runProbe(ctx, probe)
			mu.Lock()
			report.Checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	if s.index != nil {
		report.Checks["index"] = CheckEmpty
		if idx := s.index(); idx != nil && idx.Len() > 0 {
			report.Records = idx.Len()
			report.Checks["index"] = CheckOK
		}
	}

	for _, v := range report.Checks {
		if v != CheckOK {
			report.Status = Degraded
			break
		}
	}
	return report
}

func runProbe(ctx context.Context, probe func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := probe(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
