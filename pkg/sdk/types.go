package imgdex

import (
	"time"

	"github.com/kailas-cloud/imgdex/internal/domain/evaluation"
	"github.com/kailas-cloud/imgdex/internal/domain/search/result"
	"github.com/kailas-cloud/imgdex/internal/usecase/builder"
	collectionuc "github.com/kailas-cloud/imgdex/internal/usecase/collection"
)

// Result is one ranked image.
type Result struct {
	ID       string
	Path     string
	Filename string
	Score    float64
}

// BuildFailure is an image that was skipped during a build.
type BuildFailure struct {
	Path string
	Err  error
}

// BuildReport summarizes a build.
type BuildReport struct {
	Scanned  int
	Indexed  int
	Skipped  int
	Failures []BuildFailure
	Duration time.Duration
}

// ThresholdStat is the average number of results per query at one threshold.
type ThresholdStat struct {
	Threshold      float64
	Queries        int
	TotalResults   int
	AverageResults float64
}

// IndexInfo describes the published index.
type IndexInfo struct {
	Records   int
	Dimension int
	Model     string
	LoadedAt  time.Time
}

func resultsFromDomain(rs []result.Result) []Result {
	out := make([]Result, len(rs))
	for i := range rs {
		out[i] = Result{
			ID:       rs[i].ID(),
			Path:     rs[i].SourcePath(),
			Filename: rs[i].Filename(),
			Score:    rs[i].Score(),
		}
	}
	return out
}

func reportFromDomain(r builder.Report) BuildReport {
	failures := make([]BuildFailure, len(r.Failures))
	for i, f := range r.Failures {
		failures[i] = BuildFailure{Path: f.Path, Err: f.Err}
	}
	return BuildReport{
		Scanned:  r.Scanned,
		Indexed:  r.Indexed,
		Skipped:  r.Skipped,
		Failures: failures,
		Duration: r.Duration,
	}
}

func statsFromDomain(stats []evaluation.ThresholdStat) []ThresholdStat {
	out := make([]ThresholdStat, len(stats))
	for i, s := range stats {
		out[i] = ThresholdStat(s)
	}
	return out
}

func infoFromDomain(info collectionuc.Info) IndexInfo {
	return IndexInfo(info)
}
