package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/inference-sim/inclab/lab"
	"github.com/inference-sim/inclab/lab/catalog"
	"github.com/inference-sim/inclab/lab/collections"
	"github.com/inference-sim/inclab/lab/engine"
	"github.com/inference-sim/inclab/lab/internal/testutil"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "lab.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestObserveSample_WithoutRunFails(t *testing.T) {
	s := tempDB(t)

	if err := s.ObserveSample("list-reverse", &lab.Sample{}); err == nil {
		t.Fatal("expected error before BeginRun")
	}
}

func TestBeginRun_StoresParams(t *testing.T) {
	s := tempDB(t)
	p := lab.DefaultLabParams()
	p.Sample.Demand = collections.DemandN(4)
	p.Sample.Generate.NominalStrategy = lab.ByContent

	id, err := s.BeginRun(p)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty run id")
	}

	raw, err := s.RunParams(id)
	if err != nil {
		t.Fatalf("RunParams: %v", err)
	}
	var got runParams
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Demand != "4" {
		t.Errorf("demand = %q, want 4", got.Demand)
	}
	if got.NominalStrategy != "by-content" {
		t.Errorf("nominal strategy = %q, want by-content", got.NominalStrategy)
	}
	if got.Size != p.Sample.Generate.Size {
		t.Errorf("size = %d, want %d", got.Size, p.Sample.Generate.Size)
	}
}

func TestObserveSample_FourPhasesPerSample(t *testing.T) {
	s := tempDB(t)
	id, err := s.BeginRun(lab.DefaultLabParams())
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	valid := false
	smp := &lab.Sample{
		BatchName: 3,
		NaiveSample: lab.EngineSample{
			ComputeOutput: lab.EngineMetrics{TimeNs: 900, EngineCnt: engine.Cnt{Eval: 12}},
		},
		DCGSample: lab.EngineSample{
			ComputeOutput: lab.EngineMetrics{TimeNs: 100, EngineCnt: engine.Cnt{Eval: 2, Hit: 5}},
		},
		OutputValid: &valid,
	}

	if err := s.ObserveSample("list-tree-sum", smp); err != nil {
		t.Fatalf("ObserveSample: %v", err)
	}

	recs, err := s.Phases(id)
	if err != nil {
		t.Fatalf("Phases: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("got %d phases, want 4", len(recs))
	}
	// ordered by engine then phase: incremental before naive, compute before process
	inc := recs[0]
	if inc.Engine != "incremental" || inc.Phase != "compute_output" {
		t.Fatalf("first record = %s/%s", inc.Engine, inc.Phase)
	}
	if inc.Eval != 2 || inc.Hit != 5 || inc.TimeNs != 100 || inc.Batch != 3 {
		t.Errorf("incremental compute = %+v", inc)
	}
	if inc.OutputValid == nil || *inc.OutputValid {
		t.Errorf("output valid = %v, want false", inc.OutputValid)
	}
	if recs[2].Engine != "naive" || recs[2].Eval != 12 {
		t.Errorf("naive compute = %+v", recs[2])
	}
}

func TestStore_AsLabObserver(t *testing.T) {
	s := tempDB(t)
	p := testutil.SmallParams(6, 1, 2)
	id, err := s.BeginRun(p)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	labs, err := catalog.Select(catalog.AllLabs(), []string{"list-eager-map"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	res := testutil.RunLab(t, labs[0], p, s)

	recs, err := s.Phases(id)
	if err != nil {
		t.Fatalf("Phases: %v", err)
	}
	if len(recs) != 3*4 {
		t.Fatalf("got %d phases, want 12", len(recs))
	}
	var naiveNs float64
	for _, r := range recs {
		if r.Engine == "naive" && r.Phase == "compute_output" {
			naiveNs += float64(r.TimeNs)
		}
		if r.Lab != "list-eager-map" {
			t.Errorf("lab = %q", r.Lab)
		}
		if r.OutputValid == nil || !*r.OutputValid {
			t.Errorf("batch %d %s/%s not validated", r.Batch, r.Engine, r.Phase)
		}
	}
	testutil.AssertFloat64Equal(t, "mean naive compute ns", lab.Summarize(res).MeanNaiveComputeNs, naiveNs/3, 1e-9)
}

func TestPhases_UnknownRunIsEmpty(t *testing.T) {
	s := tempDB(t)

	recs, err := s.Phases("no-such-run")
	if err != nil {
		t.Fatalf("Phases: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("got %d phases, want 0", len(recs))
	}
}

func TestRuns_OldestFirst(t *testing.T) {
	s := tempDB(t)
	first, err := s.BeginRun(lab.DefaultLabParams())
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	second, err := s.BeginRun(lab.DefaultLabParams())
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	ids, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(ids) != 2 || ids[0] != first || ids[1] != second {
		t.Errorf("runs = %v, want [%s %s]", ids, first, second)
	}
}
