package imgdex

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricsNamespace = "imgdex"
	metricsSubsystem = "sdk"
)

// sdkMetrics are registered on the caller's registerer, never the global one.
type sdkMetrics struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	searchResults prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operations_total",
			Help:      "SDK operations by name and status.",
		}, []string{"operation", "status"}),
		// Build embeds a whole directory, so the tail reaches minutes.
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 9),
		}, []string{"operation"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "search_results",
			Help:      "Images returned per search.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.searchResults); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or points it at the collector already
// registered under the same name (several clients may share one registry).
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	var are prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
		return nil
	case !errors.As(err, &are):
		return fmt.Errorf("imgdex: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("imgdex: metric already registered with incompatible type: %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer logs and counts SDK operations. Both sinks are optional.
type observer struct {
	logger  *zap.Logger
	metrics *sdkMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// begin starts timing op. The returned func records the outcome; call it once
// (usually deferred) with the operation's final error.
func (o *observer) begin(op string, fields ...zap.Field) func(err error, extra ...zap.Field) {
	start := time.Now()
	return func(err error, extra ...zap.Field) {
		o.finish(op, time.Since(start), err, append(fields, extra...))
	}
}

func (o *observer) finish(op string, dur time.Duration, err error, fields []zap.Field) {
	if o == nil {
		return
	}
	if m := o.metrics; m != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.operations.WithLabelValues(op, status).Inc()
		m.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}
	fields = append(fields, zap.String("op", op), zap.Duration("duration", dur))
	if err != nil {
		o.logger.Warn("operation failed", append(fields, zap.Error(err))...)
		return
	}
	o.logger.Debug("operation completed", fields...)
}

// searched records the result count of a successful search.
func (o *observer) searched(n int) {
	if o != nil && o.metrics != nil {
		o.metrics.searchResults.Observe(float64(n))
	}
}
