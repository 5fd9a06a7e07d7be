package labviz

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/inference-sim/inclab/lab"
	"github.com/inference-sim/inclab/lab/engine"
)

const traceDoc = "https://pkg.go.dev/github.com/inference-sim/inclab/lab/engine#TraceEntry"

// DetailFile is the name of each lab's detail document, relative to the
// lab's own directory.
const DetailFile = "traces.html"

// WriteReport writes index.html into dir with one summary row per lab, and
// <lab>/traces.html with the rendered traces and DCG fragments of every
// round. labs and results are parallel slices. Detail documents are
// rendered concurrently; the first error cancels the rest.
func WriteReport(ctx context.Context, dir string, labs []lab.LabDef, results []*lab.LabResults) error {
	if len(labs) != len(results) {
		return fmt.Errorf("report: %d labs but %d results", len(labs), len(results))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "index.html"), func(w *bufio.Writer) error {
		writeIndex(w, labs, results)
		return nil
	}); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range labs {
		def, res := labs[i], results[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			labDir := filepath.Join(dir, def.Name())
			if err := os.MkdirAll(labDir, 0o755); err != nil {
				return fmt.Errorf("report %s: %w", def.Name(), err)
			}
			return writeFile(filepath.Join(labDir, DetailFile), func(w *bufio.Writer) error {
				if err := writeDetail(w, def, res); err != nil {
					return fmt.Errorf("report %s: %w", def.Name(), err)
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logrus.WithField("dir", dir).Infof("report written for %d labs", len(labs))
	return nil
}

func writeFile(path string, body func(w *bufio.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("report: %w", cerr)
		}
	}()
	w := bufio.NewWriter(f)
	if err := body(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

func writeLabName(w *bufio.Writer, def lab.LabDef, title bool) {
	class := "lab-name"
	if title {
		class += " page-title"
	}
	name := html.EscapeString(def.Name())
	if def.URL() == "" {
		fmt.Fprintf(w, "<div class=\"%s\">%s</div>\n", class, name)
		return
	}
	fmt.Fprintf(w, "<div><a class=\"%s\" href=\"%s\">%s</a></div>\n", class, html.EscapeString(def.URL()), name)
}

func writeIndex(w *bufio.Writer, labs []lab.LabDef, results []*lab.LabResults) {
	w.WriteString(pageHead("lab results"))
	w.WriteString("<table class=\"summary\">\n")
	w.WriteString("<tr><th>lab</th><th>samples</th><th>validated</th><th>mismatches</th>" +
		"<th>naive compute (ms)</th><th>incremental compute (ms)</th><th>speedup</th>" +
		"<th>naive evals</th><th>incremental evals</th><th>cache hits</th><th></th></tr>\n")
	for i, def := range labs {
		s := lab.Summarize(results[i])
		row := "<tr>"
		if s.Mismatches > 0 {
			row = "<tr class=\"mismatch\">"
		}
		w.WriteString(row + "<td>")
		writeLabName(w, def, false)
		fmt.Fprintf(w, "</td><td>%d</td><td>%d</td><td>%d</td><td>%.3f</td><td>%.3f</td><td>%.2f</td><td>%d</td><td>%d</td><td>%d</td>",
			s.Samples, s.Validated, s.Mismatches,
			s.MeanNaiveComputeNs/1e6, s.MeanDCGComputeNs/1e6, s.Speedup,
			s.NaiveEvals, s.DCGEvals, s.DCGHits)
		fmt.Fprintf(w, "<td><a class=\"lab-traces\" href=\"./%s/%s\">example traces</a></td></tr>\n",
			html.EscapeString(def.Name()), DetailFile)
	}
	w.WriteString("</table>\n")
	w.WriteString(pageTail)
}

func writeDetail(w *bufio.Writer, def lab.LabDef, res *lab.LabResults) error {
	w.WriteString(pageHead(def.Name()))
	writeLabName(w, def, true)
	w.WriteString("<div style=\"font-size:12px\" class=\"batch-name\">step</div>\n")
	w.WriteString("<div style=\"font-size:20px\" class=\"editor\">Editor</div>\n")
	w.WriteString("<div style=\"font-size:20px\" class=\"archivist\">Archivist</div>\n")

	var prev *lab.Sample
	for _, s := range res.Samples {
		w.WriteString("<hr/>\n")
		fmt.Fprintf(w, "<div class=\"batch-name\">%d</div>\n<hr/>\n", s.BatchName)
		if err := writeSampleDCG(w, prev, s); err != nil {
			return fmt.Errorf("batch %d: %w", s.BatchName, err)
		}
		w.WriteString("<hr/>\n")

		w.WriteString("<div class=\"editor\">\n")
		writePhase(w, s.DCGSample.ProcessInput, s.NaiveSample.ProcessInput)
		w.WriteString("</div>\n")
		w.WriteString("<div class=\"archivist\">\n")
		writePhase(w, s.DCGSample.ComputeOutput, s.NaiveSample.ComputeOutput)
		w.WriteString("</div>\n<hr/>\n")
		prev = s
	}
	w.WriteString(pageTail)
	return nil
}

func writePhase(w *bufio.Writer, dcg, naive lab.EngineMetrics) {
	fmt.Fprintf(w, "<div class=\"time-ns-lab\">time (ns): <div class=\"time-ns\">%d</div></div>\n", dcg.TimeNs)
	fmt.Fprintf(w, "<div class=\"time-ms-lab\">time (ms): <div class=\"time-ms\">%.2f</div></div>\n", float64(dcg.TimeNs)/1e6)
	fmt.Fprintf(w, "<div class=\"time-ns-lab naive\">naive time (ns): <div class=\"time-ns\">%d</div></div>\n", naive.TimeNs)
	fmt.Fprintf(w, "<div class=\"traces-lab\">Traces (<a href=\"%s\">doc</a>):</div>\n", traceDoc)
	w.WriteString("<div class=\"traces\">\n")
	for _, tr := range dcg.Traces {
		writeDiv(w, OfTrace(tr))
	}
	w.WriteString("</div>\n")
}

// writeSampleDCG writes the reflected input and the four DCG fragments that
// bracket the round: the alloc and force trees of the previous round's
// computation as they stand after this round's edit, and those of this
// round's computation after the update.
func writeSampleDCG(w *bufio.Writer, prev, s *lab.Sample) error {
	postEdit := s.DCGSample.ProcessInput.Graph
	if postEdit != nil && s.DCGSample.Input != nil {
		writeDiv(w, OfValue(s.DCGSample.Input))
	}
	w.WriteString("<hr/>\n")

	var prevTraces []engine.TraceEntry
	if prev != nil {
		prevTraces = prev.DCGSample.ComputeOutput.Traces
	}
	if err := writeFragment(w, "archivist-alloc-tree-post-edit", postEdit, prevTraces, engine.EffectAlloc); err != nil {
		return err
	}
	if err := writeFragment(w, "archivist-force-tree-post-edit", postEdit, prevTraces, engine.EffectForce); err != nil {
		return err
	}
	w.WriteString("<div class=\"archivist-update-sep\"></div>\n")

	postUpdate := s.DCGSample.ComputeOutput.Graph
	traces := s.DCGSample.ComputeOutput.Traces
	if err := writeFragment(w, "archivist-alloc-tree-post-update", postUpdate, traces, engine.EffectAlloc); err != nil {
		return err
	}
	return writeFragment(w, "archivist-force-tree-post-update", postUpdate, traces, engine.EffectForce)
}

// writeFragment writes an empty placeholder when there is no graph.
func writeFragment(w *bufio.Writer, class string, g *engine.Graph, traces []engine.TraceEntry, eff engine.Effect) error {
	fmt.Fprintf(w, "<div class=\"%s\">\n", class)
	if g != nil {
		forest, err := EdgeForest(g, traces, eff)
		if err != nil {
			return err
		}
		if err := WriteHTMLAll(w, forest); err != nil {
			return err
		}
	}
	w.WriteString("</div>\n")
	return nil
}
