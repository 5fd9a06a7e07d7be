package lab

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "inclab"
	labSubsystem     = "lab"
)

// MetricsRecorder exports every sample to Prometheus.
//
// Thread-safety: all operations are thread-safe.
type MetricsRecorder struct {
	// PhaseSeconds measures each phase of each engine pass.
	// Labels: lab, engine (naive, incremental), phase (process_input, compute_output)
	PhaseSeconds *prometheus.HistogramVec

	// EngineOpsTotal counts engine-internal work.
	// Labels: lab, engine, op (alloc, reuse, eval, hit, dirty, clean)
	EngineOpsTotal *prometheus.CounterVec

	// SamplesTotal counts collected samples by validation outcome.
	// Labels: lab, valid (true, false, unchecked)
	SamplesTotal *prometheus.CounterVec
}

// NewMetricsRecorder creates the metrics and registers them with reg.
func NewMetricsRecorder(reg prometheus.Registerer) *MetricsRecorder {
	m := &MetricsRecorder{
		PhaseSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: labSubsystem,
				Name:      "phase_seconds",
				Help:      "Wall-clock time of each engine phase",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
			[]string{"lab", "engine", "phase"},
		),
		EngineOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: labSubsystem,
				Name:      "engine_ops_total",
				Help:      "Engine-internal operations by kind",
			},
			[]string{"lab", "engine", "op"},
		),
		SamplesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: labSubsystem,
				Name:      "samples_total",
				Help:      "Collected samples by output validation outcome",
			},
			[]string{"lab", "valid"},
		),
	}
	reg.MustRegister(m.PhaseSeconds, m.EngineOpsTotal, m.SamplesTotal)
	return m
}

// ObserveSample implements SampleObserver.
func (m *MetricsRecorder) ObserveSample(lab string, s *Sample) error {
	m.observeEngine(lab, "naive", s.NaiveSample)
	m.observeEngine(lab, "incremental", s.DCGSample)
	valid := "unchecked"
	if s.OutputValid != nil {
		valid = "false"
		if *s.OutputValid {
			valid = "true"
		}
	}
	m.SamplesTotal.WithLabelValues(lab, valid).Inc()
	return nil
}

func (m *MetricsRecorder) observeEngine(lab, eng string, es EngineSample) {
	phases := []struct {
		name string
		m    EngineMetrics
	}{
		{"process_input", es.ProcessInput},
		{"compute_output", es.ComputeOutput},
	}
	for _, ph := range phases {
		m.PhaseSeconds.WithLabelValues(lab, eng, ph.name).Observe(float64(ph.m.TimeNs) / 1e9)
		c := ph.m.EngineCnt
		m.EngineOpsTotal.WithLabelValues(lab, eng, "alloc").Add(float64(c.Alloc))
		m.EngineOpsTotal.WithLabelValues(lab, eng, "reuse").Add(float64(c.Reuse))
		m.EngineOpsTotal.WithLabelValues(lab, eng, "eval").Add(float64(c.Eval))
		m.EngineOpsTotal.WithLabelValues(lab, eng, "hit").Add(float64(c.Hit))
		m.EngineOpsTotal.WithLabelValues(lab, eng, "dirty").Add(float64(c.Dirty))
		m.EngineOpsTotal.WithLabelValues(lab, eng, "clean").Add(float64(c.Clean))
	}
}
