package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/inclab/lab/catalog"
)

var (
	configPath      string   // Run config YAML
	logLevel        string   // Log verbosity level
	inputSeeds      []uint   // Seeds combined into the run seed
	size            int      // Initial input size
	gauge           int      // Elements per named boundary
	nominalStrategy string   // Boundary naming strategy
	loopc           int      // Number of edit rounds
	batchSize       int      // Edits per round
	validateOutput  bool     // Compare naive and incremental outputs
	demand          int      // Elements forced from lazy outputs; negative = all
	reflectDCG      bool     // Capture DCG snapshots and traces
	labNames        []string // Labs to run; empty = all
	outDir          string   // Report output directory
	dbPath          string   // SQLite file for samples
	maxStackMB      int      // Minimum stack limit while labs run
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "inclab",
	Short: "Compare naive and incremental evaluation of list and tree workloads",
}

// runCmd runs the selected labs and writes the report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run labs and write an HTML report",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := DefaultRunConfig()
		if configPath != "" {
			cfg, err = LoadRunConfig(configPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		applyFlags(cmd, &cfg)

		logrus.Infof("Starting labs: size=%d gauge=%d rounds=%d batch=%d",
			cfg.Generate.Size, cfg.Generate.Gauge, cfg.ChangeBatchLoopc, cfg.ChangeBatchSize)
		results, err := runLabs(context.Background(), cfg)
		if err != nil {
			logrus.Fatalf("Lab run failed: %v", err)
		}
		mismatches := 0
		for _, r := range results {
			for _, s := range r.Samples {
				if s.Mismatch() {
					mismatches++
				}
			}
		}
		if mismatches > 0 {
			logrus.Warnf("%d samples had mismatched outputs", mismatches)
		}
		logrus.Infof("Report written to %s", cfg.OutDir)
	},
}

// listCmd prints the lab catalog
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available labs",
	Run: func(cmd *cobra.Command, args []string) {
		for _, l := range catalog.AllLabs() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", l.Name(), l.URL())
		}
	},
}

// applyFlags overrides config fields with the flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *RunConfig) {
	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.InputSeeds = cfg.InputSeeds[:0:0]
		for _, s := range inputSeeds {
			cfg.InputSeeds = append(cfg.InputSeeds, uint64(s))
		}
	}
	if f.Changed("size") {
		cfg.Generate.Size = size
	}
	if f.Changed("gauge") {
		cfg.Generate.Gauge = gauge
	}
	if f.Changed("nominal-strategy") {
		cfg.Generate.NominalStrategy = nominalStrategy
	}
	if f.Changed("rounds") {
		cfg.ChangeBatchLoopc = loopc
	}
	if f.Changed("batch-size") {
		cfg.ChangeBatchSize = batchSize
	}
	if f.Changed("validate") {
		cfg.ValidateOutput = validateOutput
	}
	if f.Changed("demand") {
		if demand < 0 {
			cfg.Demand = nil
		} else {
			d := demand
			cfg.Demand = &d
		}
	}
	if f.Changed("reflect") {
		cfg.ReflectDCG = reflectDCG
	}
	if f.Changed("labs") {
		cfg.Labs = labNames
	}
	if f.Changed("out") {
		cfg.OutDir = outDir
	}
	if f.Changed("db") {
		cfg.DBPath = dbPath
	}
	if f.Changed("max-stack-mb") {
		cfg.MaxStackMB = maxStackMB
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	def := DefaultRunConfig()

	runCmd.Flags().StringVar(&configPath, "config", "", "Run config YAML; flags override its fields")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Input generation
	runCmd.Flags().UintSliceVar(&inputSeeds, "seed", []uint{0}, "Comma-separated input seeds")
	runCmd.Flags().IntVar(&size, "size", def.Generate.Size, "Number of elements in the initial input")
	runCmd.Flags().IntVar(&gauge, "gauge", def.Generate.Gauge, "Elements per named boundary")
	runCmd.Flags().StringVar(&nominalStrategy, "nominal-strategy", def.Generate.NominalStrategy, "Boundary naming (regular, by-content)")

	// Sampling
	runCmd.Flags().IntVar(&loopc, "rounds", def.ChangeBatchLoopc, "Number of edit rounds after the initial one")
	runCmd.Flags().IntVar(&batchSize, "batch-size", def.ChangeBatchSize, "Edits applied per round")
	runCmd.Flags().BoolVar(&validateOutput, "validate", def.ValidateOutput, "Compare naive and incremental outputs every round")
	runCmd.Flags().IntVar(&demand, "demand", -1, "Elements forced from lazy outputs (negative = all)")
	runCmd.Flags().BoolVar(&reflectDCG, "reflect", false, "Capture DCG snapshots and traces for the report")
	runCmd.Flags().StringSliceVar(&labNames, "labs", nil, "Comma-separated labs to run (default all)")

	// Outputs
	runCmd.Flags().StringVar(&outDir, "out", def.OutDir, "Report output directory")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to store samples in (empty = off)")
	runCmd.Flags().IntVar(&maxStackMB, "max-stack-mb", def.MaxStackMB, "Minimum stack limit while labs run, in MiB; 0 keeps the Go default")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}
