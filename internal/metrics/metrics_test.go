package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterIncrement(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("events", nil, "test counter")
	r.IncrementCounter("events", nil, "test counter")
	r.AddToCounter("events", 3, nil, "test counter")

	assert.Equal(t, float64(5), r.GetCounterValue("events", nil))
}

func TestCounterLabelsAreSeparateSeries(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("events", map[string]string{"kind": "observed"}, "")
	r.IncrementCounter("events", map[string]string{"kind": "observed"}, "")
	r.IncrementCounter("events", map[string]string{"kind": "deleted"}, "")

	assert.Equal(t, float64(2), r.GetCounterValue("events", map[string]string{"kind": "observed"}))
	assert.Equal(t, float64(1), r.GetCounterValue("events", map[string]string{"kind": "deleted"}))
	assert.Equal(t, float64(0), r.GetCounterValue("events", nil))
}

func TestMetricKeyLabelOrderIndependent(t *testing.T) {
	a := metricKey("m", map[string]string{"x": "1", "y": "2"})
	b := metricKey("m", map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)
}

func TestTimerAggregates(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("op", 10*time.Millisecond, nil, "")
	r.RecordTimer("op", 20*time.Millisecond, nil, "")
	r.RecordTimer("op", 30*time.Millisecond, nil, "")

	all := r.GetAllMetrics()
	timers, ok := all["timers"].(map[string]*TimerMetric)
	require.True(t, ok)

	timer := timers[metricKey("op", nil)]
	require.NotNil(t, timer)
	assert.Equal(t, int64(3), timer.Count)
	assert.InDelta(t, 20.0, timer.Average, 0.5)
	assert.InDelta(t, 10.0, timer.Min, 0.5)
	assert.InDelta(t, 30.0, timer.Max, 0.5)
}

func TestGauge(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("active", 5, nil, "")
	r.SetGauge("active", 2, nil, "")

	all := r.GetAllMetrics()
	gauges, ok := all["gauges"].(map[string]*Metric)
	require.True(t, ok)

	gauge := gauges[metricKey("active", nil)]
	require.NotNil(t, gauge)
	assert.Equal(t, float64(2), gauge.Value)
}
