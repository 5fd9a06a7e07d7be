package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/inference-sim/inclab/lab"
	"github.com/inference-sim/inclab/lab/catalog"
	"github.com/inference-sim/inclab/lab/store"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	goleak.VerifyTestMain(m)
}

func TestListCmd_PrintsCatalog(t *testing.T) {
	// GIVEN the list command writing to a buffer
	var buf bytes.Buffer
	listCmd.SetOut(&buf)
	t.Cleanup(func() { listCmd.SetOut(nil) })

	// WHEN run
	listCmd.Run(listCmd, nil)

	// THEN every lab appears once per line with its URL
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	labs := catalog.AllLabs()
	require.Len(t, lines, len(labs))
	for i, l := range labs {
		assert.True(t, strings.HasPrefix(lines[i], l.Name()), lines[i])
		assert.Contains(t, lines[i], l.URL())
	}
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	// GIVEN a config loaded with non-default values
	cfg := DefaultRunConfig()
	cfg.Generate.Size = 99
	cfg.OutDir = "from-yaml"

	// WHEN only --gauge, --seed and --demand are set on the command line
	require.NoError(t, runCmd.Flags().Set("gauge", "4"))
	require.NoError(t, runCmd.Flags().Set("seed", "7,8"))
	require.NoError(t, runCmd.Flags().Set("demand", "2"))
	applyFlags(runCmd, &cfg)

	// THEN those fields change and the rest keep the config's values
	assert.Equal(t, 4, cfg.Generate.Gauge)
	assert.Equal(t, []uint64{7, 8}, cfg.InputSeeds)
	require.NotNil(t, cfg.Demand)
	assert.Equal(t, 2, *cfg.Demand)
	assert.Equal(t, 99, cfg.Generate.Size)
	assert.Equal(t, "from-yaml", cfg.OutDir)
}

// maxStack reads the process-wide stack limit.
func maxStack() int {
	v := debug.SetMaxStack(1 << 30)
	debug.SetMaxStack(v)
	return v
}

func TestOnWorker_NeverLowersStack(t *testing.T) {
	// GIVEN the process stack limit
	before := maxStack()

	// WHEN work runs on the worker asking for less than that
	var inside int
	err := onWorker(context.Background(), 64, func(context.Context) error {
		inside = maxStack()
		return nil
	})

	// THEN the limit inside is at least the limit before, and unchanged after
	require.NoError(t, err)
	assert.GreaterOrEqual(t, inside, before)
	assert.GreaterOrEqual(t, inside, 64<<20)
	assert.Equal(t, before, maxStack())
}

func TestOnWorker_RaisesStackAndRestores(t *testing.T) {
	// GIVEN a process stack limit of 32 MiB
	orig := debug.SetMaxStack(32 << 20)
	t.Cleanup(func() { debug.SetMaxStack(orig) })

	// WHEN work runs on the worker with a 128 MiB limit
	var inside int
	err := onWorker(context.Background(), 128, func(context.Context) error {
		inside = maxStack()
		return nil
	})

	// THEN the limit was raised during the work and restored after
	require.NoError(t, err)
	assert.Equal(t, 128<<20, inside)
	assert.Equal(t, 32<<20, maxStack())
}

func TestOnWorker_ZeroKeepsLimit(t *testing.T) {
	before := maxStack()

	var inside int
	require.NoError(t, onWorker(context.Background(), 0, func(context.Context) error {
		inside = maxStack()
		return nil
	}))

	assert.Equal(t, before, inside)
}

func TestOnWorker_ReturnsWorkError(t *testing.T) {
	boom := errors.New("boom")

	err := onWorker(context.Background(), 0, func(context.Context) error { return boom })

	assert.Same(t, boom, err)
}

func TestRunLabs_WritesReportMetricsAndStore(t *testing.T) {
	// GIVEN two labs with reflection, storage and a small input
	dir := t.TempDir()
	cfg := DefaultRunConfig()
	cfg.Generate.Size = 6
	cfg.ChangeBatchLoopc = 2
	cfg.ReflectDCG = true
	cfg.Labs = []string{"list-reverse", "list-tree"}
	cfg.OutDir = filepath.Join(dir, "report")
	cfg.DBPath = filepath.Join(dir, "lab.db")

	// WHEN the labs run
	results, err := runLabs(context.Background(), cfg)

	// THEN results come back in catalog order, all validated
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "list-tree", results[0].Lab)
	assert.Equal(t, "list-reverse", results[1].Lab)
	for _, r := range results {
		assert.Equal(t, 0, lab.Summarize(r).Mismatches)
	}

	// AND the report, detail pages and metrics textfile exist
	for _, f := range []string{"index.html", "list-tree/traces.html", "list-reverse/traces.html"} {
		_, err := os.Stat(filepath.Join(cfg.OutDir, f))
		assert.NoError(t, err, f)
	}
	prom, err := os.ReadFile(filepath.Join(cfg.OutDir, metricsFile))
	require.NoError(t, err)
	assert.Contains(t, string(prom), `inclab_lab_samples_total{lab="list-reverse",valid="true"} 3`)

	// AND the store holds one run
	st, err := store.NewStore(cfg.DBPath)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	phases, err := st.Phases(runs[0])
	require.NoError(t, err)
	assert.Len(t, phases, 2*3*4)
}

func TestRunLabs_UnknownLab(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.Labs = []string{"list-quickhull"}
	cfg.OutDir = t.TempDir()

	_, err := runLabs(context.Background(), cfg)

	assert.ErrorContains(t, err, "list-quickhull")
}

func TestRunLabs_InvalidParams(t *testing.T) {
	cfg := DefaultRunConfig()
	cfg.ChangeBatchSize = 0
	cfg.OutDir = t.TempDir()

	_, err := runLabs(context.Background(), cfg)

	assert.True(t, errors.Is(err, lab.ErrInvalidParams))
}
