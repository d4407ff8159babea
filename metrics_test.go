package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPrometheusCollector(&PrometheusConfig{Registerer: reg})
	require.NoError(t, err)

	c.SagaStarted("checkout")
	c.SagaStarted("checkout")
	c.StepExecuted("checkout", "reserve", true, 2, 30*time.Millisecond)
	c.StepRetried("checkout", "reserve", 2)
	c.CompensationExecuted("checkout", "reserve", false, 10*time.Millisecond)
	c.SagaFinished("checkout", StateFailed, 100*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sagaStartedTotal.WithLabelValues("checkout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sagaFinishedTotal.WithLabelValues("checkout", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stepExecutedTotal.WithLabelValues("checkout", "reserve", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stepRetriedTotal.WithLabelValues("checkout", "reserve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.compensationExecutedTotal.WithLabelValues("checkout", "reserve", "false")))

	assert.Equal(t, 1, testutil.CollectAndCount(c.sagaDuration), "one state label pair observed")
}

func TestPrometheusCollectorRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewPrometheusCollector(&PrometheusConfig{Registerer: reg})
	require.NoError(t, err)

	_, err = NewPrometheusCollector(&PrometheusConfig{Registerer: reg})
	require.Error(t, err, "the same registerer cannot accept the metrics twice")
}

func TestPrometheusCollectorEngineIntegration(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(&PrometheusConfig{Registerer: reg, Namespace: "test"})
	require.NoError(t, err)

	s, err := New[*orderState](WithName("checkout"), WithMetrics(collector)).
		Step("reserve", nopStep, nopStep).
		Step("charge",
			func(context.Context, *orderState) error { return errors.New("card declined") },
			nil,
			WithRetry(RetryPolicy{MaxAttempts: 2})).
		Build()
	require.NoError(t, err)

	res, err := s.Execute(context.Background(), &orderState{})
	require.NoError(t, err)
	require.False(t, res.Success)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.sagaStartedTotal.WithLabelValues("checkout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.sagaFinishedTotal.WithLabelValues("checkout", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.stepExecutedTotal.WithLabelValues("checkout", "reserve", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.stepExecutedTotal.WithLabelValues("checkout", "charge", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.stepRetriedTotal.WithLabelValues("checkout", "charge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.compensationExecutedTotal.WithLabelValues("checkout", "reserve", "true")))
}

func TestNopCollectorIsSafe(t *testing.T) {
	var c Collector = NopCollector{}
	c.SagaStarted("s")
	c.SagaFinished("s", StateSucceeded, time.Second)
	c.StepExecuted("s", "a", true, 1, time.Millisecond)
	c.StepRetried("s", "a", 2)
	c.CompensationExecuted("s", "a", false, time.Millisecond)
}
