// Package catalog is the master table of lab experiments: each entry binds
// a named workload distribution to one computation over it.
package catalog

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"

	"github.com/inference-sim/inclab/lab"
	"github.com/inference-sim/inclab/lab/collections"
	"github.com/inference-sim/inclab/lab/engine"
)

// UniformPrepend generates a list by prepending uniformly random elements,
// and edits it by prepending one more. Every gauge-th element is preceded
// by a named boundary whose cell holds the rest of the list.
//
// The edit state is the index of the next element to prepend.
type UniformPrepend struct{}

// Generate prepends p.Size elements to the empty list.
func (UniformPrepend) Generate(ec *engine.ExecutionContext, rng *rand.Rand, p lab.GenerateParams) collections.List {
	l := collections.Nil()
	for i := range p.Size {
		l = prepend(ec, l, i, rng, p)
	}
	return l
}

// EditInit returns p.Size: the generated list already holds indices below it.
func (UniformPrepend) EditInit(_ *rand.Rand, p lab.GenerateParams) int {
	return p.Size
}

// Edit prepends element next and returns next+1.
func (UniformPrepend) Edit(ec *engine.ExecutionContext, l collections.List, next int, rng *rand.Rand, p lab.GenerateParams) (collections.List, int) {
	return prepend(ec, l, next, rng, p), next + 1
}

func prepend(ec *engine.ExecutionContext, l collections.List, i int, rng *rand.Rand, p lab.GenerateParams) collections.List {
	elem := rng.IntN(p.Size * 100)
	if i%p.Gauge == 0 {
		n := boundaryName(l, i, elem, p.NominalStrategy)
		l = collections.Named(n, collections.ArtList(engine.Cell(ec, n, l)))
	}
	return collections.Cons(elem, l)
}

func boundaryName(l collections.List, i, elem int, s lab.NominalStrategy) engine.Name {
	if s != lab.ByContent {
		return engine.NameOfInt(i)
	}
	h := fnv.New64a()
	h.Write([]byte(strconv.Itoa(elem)))
	h.Write([]byte{0})
	h.Write([]byte(headBoundary(l).String()))
	return engine.NameOfString(strconv.FormatUint(h.Sum64(), 16))
}

// headBoundary returns the first boundary name of l without forcing
// anything, or the zero name if l has no boundary before its first art.
func headBoundary(l collections.List) engine.Name {
	for l.Kind() == collections.ListCons {
		l = l.Tail()
	}
	if l.Kind() == collections.ListName {
		return l.Name()
	}
	return engine.Name{}
}
