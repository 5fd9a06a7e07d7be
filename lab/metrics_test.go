package lab

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/inclab/lab/engine"
)

func boolPtr(b bool) *bool { return &b }

func TestMetricsRecorder_ObserveSample(t *testing.T) {
	// GIVEN a recorder on a private registry
	reg := prometheus.NewRegistry()
	m := NewMetricsRecorder(reg)
	s := &Sample{
		BatchName: 0,
		NaiveSample: EngineSample{
			ComputeOutput: EngineMetrics{TimeNs: 2000, EngineCnt: engine.Cnt{Eval: 10, Alloc: 12}},
		},
		DCGSample: EngineSample{
			ComputeOutput: EngineMetrics{TimeNs: 500, EngineCnt: engine.Cnt{Eval: 1, Hit: 9, Reuse: 11}},
		},
		OutputValid: boolPtr(true),
	}

	// WHEN two samples are observed
	require.NoError(t, m.ObserveSample("list-reverse", s))
	require.NoError(t, m.ObserveSample("list-reverse", &Sample{BatchName: 1}))

	// THEN counters accumulate per engine and op
	assert.Equal(t, 10.0, testutil.ToFloat64(m.EngineOpsTotal.WithLabelValues("list-reverse", "naive", "eval")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EngineOpsTotal.WithLabelValues("list-reverse", "incremental", "eval")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.EngineOpsTotal.WithLabelValues("list-reverse", "incremental", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SamplesTotal.WithLabelValues("list-reverse", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SamplesTotal.WithLabelValues("list-reverse", "unchecked")))
	assert.Equal(t, 4, testutil.CollectAndCount(m.PhaseSeconds))
}

func TestMetricsRecorder_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetricsRecorder(reg)

	assert.Panics(t, func() { NewMetricsRecorder(reg) })
}
