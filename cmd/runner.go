package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/inclab/lab"
	"github.com/inference-sim/inclab/lab/catalog"
	"github.com/inference-sim/inclab/lab/labviz"
	"github.com/inference-sim/inclab/lab/store"
)

// metricsFile is written into the output directory in the Prometheus
// textfile-collector format.
const metricsFile = "metrics.prom"

// raiseMaxStack raises the process-wide stack limit to mb MiB when that is
// above the current limit, and returns a func restoring the previous one.
// A lower or zero mb leaves the limit alone.
func raiseMaxStack(mb int) (restore func()) {
	want := mb << 20
	prev := debug.SetMaxStack(want)
	if prev >= want {
		debug.SetMaxStack(prev)
		return func() {}
	}
	return func() { debug.SetMaxStack(prev) }
}

// onWorker runs work on a dedicated goroutine, with the stack limit raised
// to at least maxStackMB for the duration, and waits for it. A panic in
// work is not recovered.
func onWorker(ctx context.Context, maxStackMB int, work func(context.Context) error) error {
	errc := make(chan error, 1)
	go func() {
		defer raiseMaxStack(maxStackMB)()
		errc <- work(ctx)
	}()
	return <-errc
}

// runLabs runs every selected lab in catalog order on the worker, then
// writes the report, the metrics textfile and, when configured, stores
// every sample in SQLite.
func runLabs(ctx context.Context, cfg RunConfig) ([]*lab.LabResults, error) {
	params, err := cfg.LabParams()
	if err != nil {
		return nil, err
	}
	labs, err := catalog.Select(catalog.AllLabs(), cfg.Labs)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	reg := prometheus.NewRegistry()
	observers := []lab.SampleObserver{lab.NewMetricsRecorder(reg)}
	if cfg.DBPath != "" {
		st, err := store.NewStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		runID, err := st.BeginRun(params)
		if err != nil {
			return nil, err
		}
		logrus.WithField("run_id", runID).Infof("storing samples in %s", cfg.DBPath)
		observers = append(observers, st)
	}

	results := make([]*lab.LabResults, 0, len(labs))
	err = onWorker(ctx, cfg.MaxStackMB, func(ctx context.Context) error {
		for _, l := range labs {
			res, err := l.Run(ctx, params, observers...)
			if err != nil {
				return err
			}
			s := lab.Summarize(res)
			logrus.Infof("%s: %d samples, %d mismatches, speedup %.2fx", s.Lab, s.Samples, s.Mismatches, s.Speedup)
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := labviz.WriteReport(ctx, cfg.OutDir, labs, results); err != nil {
		return nil, err
	}
	if err := prometheus.WriteToTextfile(filepath.Join(cfg.OutDir, metricsFile), reg); err != nil {
		return nil, fmt.Errorf("write metrics: %w", err)
	}
	return results, nil
}
