package lab

import (
	"math/rand/v2"

	"github.com/inference-sim/inclab/lab/collections"
	"github.com/inference-sim/inclab/lab/engine"
)

// Generator produces an initial input. It must consume exactly the
// randomness implied by p.Size so that two identically seeded engines
// see identical inputs.
type Generator[I any] interface {
	Generate(ec *engine.ExecutionContext, rng *rand.Rand, p GenerateParams) I
}

// Editor applies pseudo-random point edits to an input, carrying an
// opaque edit state between calls.
type Editor[I, S any] interface {
	EditInit(rng *rand.Rand, p GenerateParams) S
	Edit(ec *engine.ExecutionContext, in I, st S, rng *rand.Rand, p GenerateParams) (I, S)
}

// Distribution is a workload model: a generator and its editor.
type Distribution[I, S any] interface {
	Generator[I]
	Editor[I, S]
}

// Computer is a pure computation over an input.
type Computer[I, O any] interface {
	Compute(ec *engine.ExecutionContext, in I) O
}

// DemandComputer is a pure computation whose output is lazily produced;
// it forces exactly as much of it as d asks for.
type DemandComputer[I, O any] interface {
	ComputeDemand(ec *engine.ExecutionContext, in I, d collections.Demand) O
}

// Observer reduces an output to a plain value that can be compared across
// engines. It must force every art it reads through ec.
type Observer[O any] func(ec *engine.ExecutionContext, out O) any
