// Package testutil provides shared test infrastructure for lab runs.
// It consolidates parameter builders and result assertions used across
// the catalog, labviz and store test packages.
package testutil

import (
	"context"
	"math"
	"testing"

	"github.com/inference-sim/inclab/lab"
)

// SmallParams returns default lab params with the given input size, gauge
// and number of edit rounds.
func SmallParams(size, gauge, rounds int) lab.LabParams {
	p := lab.DefaultLabParams()
	p.Sample.Generate.Size = size
	p.Sample.Generate.Gauge = gauge
	p.ChangeBatchLoopc = rounds
	return p
}

// RunLab runs l and fails the test on error or on a sample count other
// than ChangeBatchLoopc+1.
func RunLab(t *testing.T, l lab.LabDef, p lab.LabParams, observers ...lab.SampleObserver) *lab.LabResults {
	t.Helper()
	res, err := l.Run(context.Background(), p, observers...)
	if err != nil {
		t.Fatalf("%s: run failed: %v", l.Name(), err)
	}
	if want := p.ChangeBatchLoopc + 1; len(res.Samples) != want {
		t.Fatalf("%s: got %d samples, want %d", l.Name(), len(res.Samples), want)
	}
	return res
}

// AssertAllValid fails the test for every sample that was not validated
// or whose outputs differed.
func AssertAllValid(t *testing.T, res *lab.LabResults) {
	t.Helper()
	for _, s := range res.Samples {
		switch {
		case s.OutputValid == nil:
			t.Errorf("%s batch %d: output not validated", res.Lab, s.BatchName)
		case !*s.OutputValid:
			t.Errorf("%s batch %d: naive and incremental outputs differ", res.Lab, s.BatchName)
		}
	}
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
