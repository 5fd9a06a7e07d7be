package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/inclab/lab"
	"github.com/inference-sim/inclab/lab/collections"
)

// GenerateConfig is the generate section of a run config.
type GenerateConfig struct {
	Size            int    `yaml:"size"`
	Gauge           int    `yaml:"gauge"`
	NominalStrategy string `yaml:"nominal_strategy"`
}

// RunConfig represents the full run config YAML structure.
// All fields must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	InputSeeds       []uint64       `yaml:"input_seeds"`
	Generate         GenerateConfig `yaml:"generate"`
	ChangeBatchLoopc int            `yaml:"change_batch_loopc"`
	ChangeBatchSize  int            `yaml:"change_batch_size"`
	ValidateOutput   bool           `yaml:"validate_output"`
	// Demand bounds lazy outputs; nil demands everything.
	Demand     *int     `yaml:"demand"`
	ReflectDCG bool     `yaml:"reflect_dcg"`
	Labs       []string `yaml:"labs"`
	OutDir     string   `yaml:"out_dir"`
	// DBPath is the SQLite file samples are stored in; empty disables storage.
	DBPath string `yaml:"db_path"`
	// MaxStackMB raises the stack limit while labs run; it never lowers
	// it, so 0 keeps the Go default.
	MaxStackMB int `yaml:"max_stack_mb"`
}

// DefaultRunConfig mirrors lab.DefaultLabParams plus output defaults.
func DefaultRunConfig() RunConfig {
	p := lab.DefaultLabParams()
	return RunConfig{
		InputSeeds: p.Sample.InputSeeds,
		Generate: GenerateConfig{
			Size:            p.Sample.Generate.Size,
			Gauge:           p.Sample.Generate.Gauge,
			NominalStrategy: p.Sample.Generate.NominalStrategy.String(),
		},
		ChangeBatchLoopc: p.ChangeBatchLoopc,
		ChangeBatchSize:  p.Sample.ChangeBatchSize,
		ValidateOutput:   p.Sample.ValidateOutput,
		OutDir:           "lab-results",
	}
}

// LoadRunConfig reads a run config, starting from DefaultRunConfig so an
// omitted field keeps its default. Unknown fields are errors.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read run config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse run config %s: %w", path, err)
	}
	return cfg, nil
}

// LabParams converts the config into validated lab parameters.
func (c RunConfig) LabParams() (lab.LabParams, error) {
	strategy, err := lab.ParseNominalStrategy(c.Generate.NominalStrategy)
	if err != nil {
		return lab.LabParams{}, err
	}
	demand := collections.DemandAll()
	if c.Demand != nil {
		demand = collections.DemandN(*c.Demand)
	}
	p := lab.LabParams{
		Sample: lab.SampleParams{
			InputSeeds: c.InputSeeds,
			Generate: lab.GenerateParams{
				Size:            c.Generate.Size,
				Gauge:           c.Generate.Gauge,
				NominalStrategy: strategy,
			},
			ValidateOutput:  c.ValidateOutput,
			ChangeBatchSize: c.ChangeBatchSize,
			Demand:          demand,
			ReflectDCG:      c.ReflectDCG,
		},
		ChangeBatchLoopc: c.ChangeBatchLoopc,
	}
	if err := p.Validate(); err != nil {
		return lab.LabParams{}, err
	}
	return p, nil
}
