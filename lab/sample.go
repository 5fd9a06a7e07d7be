package lab

import (
	"github.com/inference-sim/inclab/lab/engine"
)

// EngineMetrics measure one phase of one engine pass.
type EngineMetrics struct {
	TimeNs    uint64
	EngineCnt engine.Cnt
	// Graph is the DCG snapshot taken right after the phase; nil for the
	// naive engine or when reflection is off.
	Graph *engine.Graph
	// Traces are the effects the phase recorded.
	Traces []engine.TraceEntry
}

// EngineSample measures one engine over one round.
type EngineSample struct {
	ProcessInput  EngineMetrics
	ComputeOutput EngineMetrics
	// Input is the reflected input after this round's edits, when
	// reflection is on.
	Input engine.Val
}

// Sample is the record produced by one round. It is never mutated after
// the round that produced it.
type Sample struct {
	BatchName   int
	DCGSample   EngineSample
	NaiveSample EngineSample
	// OutputValid is nil when validation is off.
	OutputValid *bool
}

// Mismatch reports whether the sample was validated and the outputs differed.
func (s *Sample) Mismatch() bool {
	return s.OutputValid != nil && !*s.OutputValid
}

// LabResults are the ordered samples of one lab run.
type LabResults struct {
	Lab     string
	Params  LabParams
	Samples []*Sample
}
