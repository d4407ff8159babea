package saga

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives execution metrics. Implementations must be safe for
// concurrent use; a single saga may be executed from many goroutines.
type Collector interface {
	// SagaStarted counts an execution beginning.
	SagaStarted(saga string)

	// SagaFinished counts an execution reaching a terminal state.
	SagaFinished(saga string, state SagaState, d time.Duration)

	// StepExecuted counts a step's action settling, with the total number
	// of attempts it took.
	StepExecuted(saga, step string, success bool, attempts int, d time.Duration)

	// StepRetried counts a scheduled retry of a step's action.
	StepRetried(saga, step string, attempt int)

	// CompensationExecuted counts a step's compensation settling.
	CompensationExecuted(saga, step string, success bool, d time.Duration)
}

// NopCollector discards all metrics. It is the default collector.
type NopCollector struct{}

func (NopCollector) SagaStarted(string)                                       {}
func (NopCollector) SagaFinished(string, SagaState, time.Duration)            {}
func (NopCollector) StepExecuted(string, string, bool, int, time.Duration)    {}
func (NopCollector) StepRetried(string, string, int)                          {}
func (NopCollector) CompensationExecuted(string, string, bool, time.Duration) {}

// PrometheusConfig configures a PrometheusCollector. The zero value is
// usable: metrics land under saga_engine_* on the default registerer.
type PrometheusConfig struct {
	// Namespace and Subsystem prefix every metric name. Defaults:
	// "saga" and "engine".
	Namespace string
	Subsystem string

	// Registerer receives the metrics. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// DurationBuckets are the histogram buckets, in seconds.
	DurationBuckets []float64
}

// PrometheusCollector implements Collector on Prometheus counters and
// histograms.
type PrometheusCollector struct {
	sagaStartedTotal          *prometheus.CounterVec
	sagaFinishedTotal         *prometheus.CounterVec
	sagaDuration              *prometheus.HistogramVec
	stepExecutedTotal         *prometheus.CounterVec
	stepRetriedTotal          *prometheus.CounterVec
	stepDuration              *prometheus.HistogramVec
	compensationExecutedTotal *prometheus.CounterVec
	compensationDuration      *prometheus.HistogramVec
}

// NewPrometheusCollector creates and registers the engine metrics. A nil
// config uses the defaults.
func NewPrometheusCollector(cfg *PrometheusConfig) (*PrometheusCollector, error) {
	if cfg == nil {
		cfg = &PrometheusConfig{}
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "saga"
	}
	subsystem := cfg.Subsystem
	if subsystem == "" {
		subsystem = "engine"
	}
	registerer := cfg.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	buckets := cfg.DurationBuckets
	if buckets == nil {
		buckets = []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0}
	}

	c := &PrometheusCollector{
		sagaStartedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "saga_started_total",
				Help:      "Total number of saga executions started",
			},
			[]string{"saga"},
		),
		sagaFinishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "saga_finished_total",
				Help:      "Total number of saga executions reaching a terminal state",
			},
			[]string{"saga", "state"},
		),
		sagaDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "saga_duration_seconds",
				Help:      "Duration of saga executions in seconds",
				Buckets:   buckets,
			},
			[]string{"saga", "state"},
		),
		stepExecutedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "step_executed_total",
				Help:      "Total number of step actions settling",
			},
			[]string{"saga", "step", "success"},
		),
		stepRetriedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "step_retried_total",
				Help:      "Total number of step retry attempts scheduled",
			},
			[]string{"saga", "step"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "step_duration_seconds",
				Help:      "Duration of step actions in seconds, including retries",
				Buckets:   buckets,
			},
			[]string{"saga", "step", "success"},
		),
		compensationExecutedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compensation_executed_total",
				Help:      "Total number of compensations settling",
			},
			[]string{"saga", "step", "success"},
		),
		compensationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compensation_duration_seconds",
				Help:      "Duration of compensations in seconds, including retries",
				Buckets:   buckets,
			},
			[]string{"saga", "step", "success"},
		),
	}

	for _, m := range []prometheus.Collector{
		c.sagaStartedTotal,
		c.sagaFinishedTotal,
		c.sagaDuration,
		c.stepExecutedTotal,
		c.stepRetriedTotal,
		c.stepDuration,
		c.compensationExecutedTotal,
		c.compensationDuration,
	} {
		if err := registerer.Register(m); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// SagaStarted implements Collector.
func (c *PrometheusCollector) SagaStarted(saga string) {
	c.sagaStartedTotal.WithLabelValues(saga).Inc()
}

// SagaFinished implements Collector.
func (c *PrometheusCollector) SagaFinished(saga string, state SagaState, d time.Duration) {
	c.sagaFinishedTotal.WithLabelValues(saga, state.String()).Inc()
	c.sagaDuration.WithLabelValues(saga, state.String()).Observe(d.Seconds())
}

// StepExecuted implements Collector.
func (c *PrometheusCollector) StepExecuted(saga, step string, success bool, attempts int, d time.Duration) {
	label := strconv.FormatBool(success)
	c.stepExecutedTotal.WithLabelValues(saga, step, label).Inc()
	c.stepDuration.WithLabelValues(saga, step, label).Observe(d.Seconds())
}

// StepRetried implements Collector.
func (c *PrometheusCollector) StepRetried(saga, step string, attempt int) {
	c.stepRetriedTotal.WithLabelValues(saga, step).Inc()
}

// CompensationExecuted implements Collector.
func (c *PrometheusCollector) CompensationExecuted(saga, step string, success bool, d time.Duration) {
	label := strconv.FormatBool(success)
	c.compensationExecutedTotal.WithLabelValues(saga, step, label).Inc()
	c.compensationDuration.WithLabelValues(saga, step, label).Observe(d.Seconds())
}
