// Package evaluation holds threshold calibration results.
package evaluation

// ThresholdStat is the yield of one candidate threshold over a query set.
type ThresholdStat struct {
	Threshold      float64
	Queries        int
	TotalResults   int
	AverageResults float64
}

// NewThresholdStat computes the average result count per query.
func NewThresholdStat(threshold float64, queries, totalResults int) ThresholdStat {
	var avg float64
	if queries > 0 {
		avg = float64(totalResults) / float64(queries)
	}
	return ThresholdStat{
		Threshold:      threshold,
		Queries:        queries,
		TotalResults:   totalResults,
		AverageResults: avg,
	}
}
