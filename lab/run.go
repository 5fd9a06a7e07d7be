package lab

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/inference-sim/inclab/lab/collections"
	"github.com/inference-sim/inclab/lab/engine"
)

const tracerName = "github.com/inference-sim/inclab/lab"

// computeNs is the namespace every computation runs under, keeping its
// allocations apart from the input's.
var computeNs = engine.NameOfString("compute")

// SampleObserver receives every sample as soon as its round completes.
type SampleObserver interface {
	ObserveSample(lab string, s *Sample) error
}

// LabDef is a named experiment with its concrete types erased.
type LabDef interface {
	Name() string
	URL() string
	Run(ctx context.Context, p LabParams, observers ...SampleObserver) (*LabResults, error)
}

// Lab binds one workload distribution to one computation.
type Lab[I, S, O any] struct {
	name    string
	url     string
	dist    Distribution[I, S]
	compute func(ec *engine.ExecutionContext, in I, d collections.Demand) O
	observe Observer[O]
}

// New creates a lab for a computation that forces its whole output.
func New[I, S, O any](name, url string, dist Distribution[I, S], c Computer[I, O], observe Observer[O]) *Lab[I, S, O] {
	return &Lab[I, S, O]{
		name: name,
		url:  url,
		dist: dist,
		compute: func(ec *engine.ExecutionContext, in I, _ collections.Demand) O {
			return c.Compute(ec, in)
		},
		observe: observe,
	}
}

// NewDemand creates a lab for a computation driven by the configured demand.
func NewDemand[I, S, O any](name, url string, dist Distribution[I, S], c DemandComputer[I, O], observe Observer[O]) *Lab[I, S, O] {
	return &Lab[I, S, O]{
		name:    name,
		url:     url,
		dist:    dist,
		compute: c.ComputeDemand,
		observe: observe,
	}
}

// Name returns the catalog name of the lab.
func (l *Lab[I, S, O]) Name() string { return l.name }

// URL returns the documentation URL of the lab, possibly empty.
func (l *Lab[I, S, O]) URL() string { return l.url }

// workload is one engine's private continuation: its input and edit state.
type workload[I, S any] struct {
	in I
	st S
}

// testState carries a run across rounds. Each engine slot owns its
// workload exclusively; the incremental slot also owns its DCG, which is
// installed in the context only for the duration of its pass.
type testState[I, S, O any] struct {
	lab   *Lab[I, S, O]
	p     LabParams
	ec    *engine.ExecutionContext
	rng   *CloneableRNG
	naive *workload[I, S]
	inc   *workload[I, S]
	dcg   *engine.DCG
	batch int
}

// Run executes the Init, Round*, Done state machine and returns all samples
// in round order. Panics raised by the workload propagate to the caller.
func (l *Lab[I, S, O]) Run(ctx context.Context, p LabParams, observers ...SampleObserver) (*LabResults, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("lab %s: %w", l.name, err)
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "lab.run",
		trace.WithAttributes(attribute.String("lab", l.name)))
	defer span.End()

	logrus.Infof("Running lab %s: %d rounds, size=%d, gauge=%d", l.name,
		p.ChangeBatchLoopc+1, p.Sample.Generate.Size, p.Sample.Generate.Gauge)

	st := &testState[I, S, O]{
		lab: l,
		p:   p,
		ec:  engine.NewExecutionContext(),
		rng: NewCloneableRNG(NewRunKey(p.Sample.InputSeeds)),
		dcg: engine.NewDCG(),
	}
	res := &LabResults{Lab: l.name, Params: p}
	for st.batch <= p.ChangeBatchLoopc {
		s := st.sample(ctx)
		for _, o := range observers {
			if err := o.ObserveSample(l.name, s); err != nil {
				return nil, fmt.Errorf("lab %s: observing sample %d: %w", l.name, s.BatchName, err)
			}
		}
		res.Samples = append(res.Samples, s)
	}
	return res, nil
}

// sample runs one round: a naive pass and an incremental pass over clones
// of the same RNG state.
func (st *testState[I, S, O]) sample(ctx context.Context) *Sample {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "lab.round",
		trace.WithAttributes(attribute.Int("batch", st.batch)))
	defer span.End()

	st.ec.Use(nil)
	naiveOut, naiveW, naiveSample := st.pass(ctx, engine.Naive, st.rng.Clone(), st.naive)
	st.naive = &naiveW

	rng := st.rng.Clone()
	st.ec.Use(st.dcg)
	incOut, incW, incSample := st.pass(ctx, engine.Incremental, rng, st.inc)
	st.dcg = st.ec.Use(nil)
	st.inc = &incW
	st.rng = rng

	s := &Sample{BatchName: st.batch, DCGSample: incSample, NaiveSample: naiveSample}
	if st.p.Sample.ValidateOutput {
		valid := cmp.Equal(naiveOut, incOut)
		if !valid {
			logrus.WithFields(logrus.Fields{"lab": st.lab.name, "batch": st.batch}).
				Warnf("Naive and incremental outputs differ (-naive +incremental):\n%s", cmp.Diff(naiveOut, incOut))
		}
		s.OutputValid = &valid
		span.SetAttributes(attribute.Bool("output_valid", valid))
	}
	logrus.Debugf("Lab %s batch %d: naive compute %dns, incremental compute %dns",
		st.lab.name, st.batch, naiveSample.ComputeOutput.TimeNs, incSample.ComputeOutput.TimeNs)
	st.batch++
	return s
}

// pass advances one engine's workload and recomputes its output. The
// returned output is the observed form used for validation, or nil when
// validation is off.
func (st *testState[I, S, O]) pass(ctx context.Context, mode engine.Mode, rng *CloneableRNG, prev *workload[I, S]) (any, workload[I, S], EngineSample) {
	_, span := otel.Tracer(tracerName).Start(ctx, "lab.pass",
		trace.WithAttributes(attribute.String("engine", mode.String())))
	defer span.End()

	ec, l, gp := st.ec, st.lab, st.p.Sample.Generate
	reflect := st.p.Sample.ReflectDCG && mode == engine.Incremental
	ec.SetTracing(reflect)
	defer ec.SetTracing(false)

	var es EngineSample
	start := time.Now()
	w, cnt := engine.Count(ec, func() workload[I, S] {
		if prev == nil {
			in := l.dist.Generate(ec, rng.Rand(), gp)
			return workload[I, S]{in: in, st: l.dist.EditInit(rng.Rand(), gp)}
		}
		in, editSt := prev.in, prev.st
		for range st.p.Sample.ChangeBatchSize {
			in, editSt = l.dist.Edit(ec, in, editSt, rng.Rand(), gp)
		}
		return workload[I, S]{in: in, st: editSt}
	})
	es.ProcessInput = EngineMetrics{TimeNs: uint64(time.Since(start).Nanoseconds()), EngineCnt: cnt}
	if reflect {
		es.ProcessInput.Graph = ec.ReflectGraph()
		es.ProcessInput.Traces = ec.TakeTrace()
		es.Input = engine.ReflectValue(w.in)
	}

	start = time.Now()
	out, cnt := engine.Count(ec, func() O {
		return engine.Ns(ec, computeNs, func() O { return l.compute(ec, w.in, st.p.Sample.Demand) })
	})
	es.ComputeOutput = EngineMetrics{TimeNs: uint64(time.Since(start).Nanoseconds()), EngineCnt: cnt}
	if reflect {
		es.ComputeOutput.Graph = ec.ReflectGraph()
		es.ComputeOutput.Traces = ec.TakeTrace()
	}
	span.SetAttributes(attribute.Int64("compute_ns", int64(es.ComputeOutput.TimeNs)))

	var observed any
	if st.p.Sample.ValidateOutput {
		observed = engine.Observe(ec, func() any { return l.observe(ec, out) })
	}
	return observed, w, es
}
