package lab

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"
)

// RunKey uniquely identifies a reproducible lab run. Two runs with the
// same RunKey and identical parameters MUST produce identical inputs.
type RunKey uint64

// NewRunKey folds a seed list into a RunKey. The order of seeds matters.
func NewRunKey(seeds []uint64) RunKey {
	h := fnv.New64a()
	for _, s := range seeds {
		h.Write([]byte(strconv.FormatUint(s, 10)))
		h.Write([]byte{0})
	}
	return RunKey(h.Sum64())
}

// CloneableRNG is a deterministic RNG whose state can be copied, so two
// engines can replay exactly the same random decisions.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type CloneableRNG struct {
	src  rand.PCG
	rand *rand.Rand
}

// NewCloneableRNG creates an RNG from a RunKey.
func NewCloneableRNG(key RunKey) *CloneableRNG {
	g := &CloneableRNG{src: *rand.NewPCG(uint64(key), fnv1a64("inclab"))}
	g.rand = rand.New(&g.src)
	return g
}

// Clone returns an independent RNG in the same state.
func (g *CloneableRNG) Clone() *CloneableRNG {
	c := &CloneableRNG{src: g.src}
	c.rand = rand.New(&c.src)
	return c
}

// Rand returns the generator view of the RNG. Draws advance g.
func (g *CloneableRNG) Rand() *rand.Rand { return g.rand }

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
