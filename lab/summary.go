package lab

// LabSummary aggregates statistics from a LabResults.
type LabSummary struct {
	Lab        string
	Samples    int
	Validated  int
	Mismatches int

	MeanNaiveComputeNs float64
	MeanDCGComputeNs   float64
	// Speedup is mean naive compute time over mean incremental compute
	// time, excluding the first round (which builds the DCG from scratch).
	// Zero when there are not enough rounds or the incremental mean is zero.
	Speedup float64

	NaiveEvals uint64
	DCGEvals   uint64
	DCGHits    uint64
}

// Summarize computes aggregate statistics from a LabResults.
// Safe for nil or empty results (returns zero-value fields).
func Summarize(r *LabResults) *LabSummary {
	summary := &LabSummary{}
	if r == nil {
		return summary
	}
	summary.Lab = r.Lab
	summary.Samples = len(r.Samples)

	var naiveNs, dcgNs, naiveTail, dcgTail float64
	for i, s := range r.Samples {
		if s.OutputValid != nil {
			summary.Validated++
			if !*s.OutputValid {
				summary.Mismatches++
			}
		}
		naive := float64(s.NaiveSample.ComputeOutput.TimeNs)
		dcg := float64(s.DCGSample.ComputeOutput.TimeNs)
		naiveNs += naive
		dcgNs += dcg
		if i > 0 {
			naiveTail += naive
			dcgTail += dcg
		}
		summary.NaiveEvals += s.NaiveSample.ComputeOutput.EngineCnt.Eval
		summary.DCGEvals += s.DCGSample.ComputeOutput.EngineCnt.Eval
		summary.DCGHits += s.DCGSample.ComputeOutput.EngineCnt.Hit
	}

	if n := len(r.Samples); n > 0 {
		summary.MeanNaiveComputeNs = naiveNs / float64(n)
		summary.MeanDCGComputeNs = dcgNs / float64(n)
	}
	if dcgTail > 0 {
		summary.Speedup = naiveTail / dcgTail
	}

	return summary
}
