package lab

import (
	"errors"
	"fmt"

	"github.com/inference-sim/inclab/lab/collections"
)

// ErrInvalidParams is wrapped by every LabParams validation failure.
var ErrInvalidParams = errors.New("invalid lab params")

// NominalStrategy selects how boundary names are chosen for generated inputs.
type NominalStrategy int

const (
	// Regular names each boundary by its position counter.
	Regular NominalStrategy = iota
	// ByContent names each boundary by a hash of the element it marks,
	// chained with the previous boundary name.
	ByContent
)

var nominalStrategyNames = map[NominalStrategy]string{
	Regular:   "regular",
	ByContent: "by-content",
}

// String returns the config spelling of the strategy.
func (s NominalStrategy) String() string {
	if name, ok := nominalStrategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("NominalStrategy(%d)", int(s))
}

// ParseNominalStrategy parses "regular" or "by-content".
func ParseNominalStrategy(s string) (NominalStrategy, error) {
	for k, v := range nominalStrategyNames {
		if v == s {
			return k, nil
		}
	}
	return Regular, fmt.Errorf("%w: unknown nominal strategy %q (want regular or by-content)", ErrInvalidParams, s)
}

// GenerateParams shape the generated input and every edit to it.
type GenerateParams struct {
	Size            int
	Gauge           int
	NominalStrategy NominalStrategy
}

// SampleParams control how each sample is collected.
type SampleParams struct {
	// InputSeeds are combined into the seed of the run's RNG.
	InputSeeds []uint64
	Generate   GenerateParams
	// ValidateOutput compares naive and incremental outputs every round.
	ValidateOutput bool
	// ChangeBatchSize is the number of edits applied per round after the first.
	ChangeBatchSize int
	// Demand bounds how much of a lazily produced output is forced.
	Demand collections.Demand
	// ReflectDCG captures the DCG and effect trace of every incremental pass.
	ReflectDCG bool
}

// LabParams are the parameters of one lab run.
type LabParams struct {
	Sample SampleParams
	// ChangeBatchLoopc is the number of edit rounds; a run yields
	// ChangeBatchLoopc+1 samples.
	ChangeBatchLoopc int
}

// DefaultLabParams returns the parameters used when nothing is configured.
func DefaultLabParams() LabParams {
	return LabParams{
		Sample: SampleParams{
			InputSeeds: []uint64{0},
			Generate: GenerateParams{
				Size:            10,
				Gauge:           1,
				NominalStrategy: Regular,
			},
			ValidateOutput:  true,
			ChangeBatchSize: 1,
			Demand:          collections.DemandAll(),
		},
		ChangeBatchLoopc: 10,
	}
}

// Validate reports the first problem with p, wrapped in ErrInvalidParams.
func (p LabParams) Validate() error {
	switch {
	case len(p.Sample.InputSeeds) == 0:
		return fmt.Errorf("%w: input_seeds must not be empty", ErrInvalidParams)
	case p.Sample.Generate.Size <= 0:
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidParams, p.Sample.Generate.Size)
	case p.Sample.Generate.Gauge <= 0:
		return fmt.Errorf("%w: gauge must be positive, got %d", ErrInvalidParams, p.Sample.Generate.Gauge)
	case p.Sample.ChangeBatchSize <= 0:
		return fmt.Errorf("%w: change_batch_size must be positive, got %d", ErrInvalidParams, p.Sample.ChangeBatchSize)
	case p.ChangeBatchLoopc < 0:
		return fmt.Errorf("%w: change_batch_loopc must not be negative, got %d", ErrInvalidParams, p.ChangeBatchLoopc)
	case !p.Sample.Demand.Unbounded() && p.Sample.Demand.N() < 0:
		return fmt.Errorf("%w: demand must not be negative, got %d", ErrInvalidParams, p.Sample.Demand.N())
	}
	if _, ok := nominalStrategyNames[p.Sample.Generate.NominalStrategy]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidParams, p.Sample.Generate.NominalStrategy)
	}
	return nil
}
