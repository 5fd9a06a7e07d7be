package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/inference-sim/inclab/lab"
	"github.com/inference-sim/inclab/lab/collections"
	"github.com/inference-sim/inclab/lab/engine"
)

const docBase = "https://pkg.go.dev/github.com/inference-sim/inclab/lab/collections#"

var (
	treeOfListNs = engine.NameOfString("tree_of_list")
	mergesortNs  = engine.NameOfString("mergesort")
)

func square(x int) int { return x * x }

func divisibleBy3(x int) bool { return x%3 == 0 }

func maxOf(x, y int) int {
	if x > y {
		return x
	}
	return y
}

func sumOf(x, y int) int { return x + y }

// LazyMap squares every element, forcing only the demanded prefix.
type LazyMap struct{}

func (LazyMap) ComputeDemand(ec *engine.ExecutionContext, in collections.List, d collections.Demand) collections.List {
	out := collections.MapLazy(ec, in, square)
	collections.DemandList(ec, out, d)
	return out
}

// EagerMap squares every element.
type EagerMap struct{}

func (EagerMap) Compute(ec *engine.ExecutionContext, in collections.List) collections.List {
	return collections.MapEager(ec, in, square)
}

// LazyFilter keeps multiples of three, forcing only the demanded prefix.
type LazyFilter struct{}

func (LazyFilter) ComputeDemand(ec *engine.ExecutionContext, in collections.List, d collections.Demand) collections.List {
	out := collections.FilterLazy(ec, in, divisibleBy3)
	collections.DemandList(ec, out, d)
	return out
}

// EagerFilter keeps multiples of three.
type EagerFilter struct{}

func (EagerFilter) Compute(ec *engine.ExecutionContext, in collections.List) collections.List {
	return collections.FilterEager(ec, in, divisibleBy3)
}

// ListTree converts the list into a level-balanced tree.
type ListTree struct{}

func (ListTree) Compute(ec *engine.ExecutionContext, in collections.List) collections.Tree {
	return collections.TreeOfList(ec, in)
}

// ListTreeMax folds the tree of the list with max.
type ListTreeMax struct{}

func (ListTreeMax) Compute(ec *engine.ExecutionContext, in collections.List) int {
	tree := engine.Ns(ec, treeOfListNs, func() collections.Tree { return collections.TreeOfList(ec, in) })
	return collections.FoldTree(ec, tree, 0, maxOf)
}

// ListTreeSum folds the tree of the list with +.
type ListTreeSum struct{}

func (ListTreeSum) Compute(ec *engine.ExecutionContext, in collections.List) int {
	tree := engine.Ns(ec, treeOfListNs, func() collections.Tree { return collections.TreeOfList(ec, in) })
	return collections.FoldTree(ec, tree, 0, sumOf)
}

func mergesort(ec *engine.ExecutionContext, s collections.MergeStrategy, in collections.List) collections.List {
	tree := engine.Ns(ec, treeOfListNs, func() collections.Tree { return collections.TreeOfList(ec, in) })
	return engine.Ns(ec, mergesortNs, func() collections.List { return collections.MergesortWith(ec, s, tree) })
}

// EagerMergesort sorts the list with Merge and forces the whole sorted
// output.
type EagerMergesort struct {
	Merge collections.MergeStrategy
}

func (c EagerMergesort) Compute(ec *engine.ExecutionContext, in collections.List) collections.List {
	out := mergesort(ec, c.Merge, in)
	collections.DemandList(ec, out, collections.DemandAll())
	return out
}

// LazyMergesort sorts the list with Merge, forcing only the demanded
// prefix.
type LazyMergesort struct {
	Merge collections.MergeStrategy
}

func (c LazyMergesort) ComputeDemand(ec *engine.ExecutionContext, in collections.List, d collections.Demand) collections.List {
	out := mergesort(ec, c.Merge, in)
	collections.DemandList(ec, out, d)
	return out
}

// ListReverse reverses the list.
type ListReverse struct{}

func (ListReverse) Compute(ec *engine.ExecutionContext, in collections.List) collections.List {
	return collections.Reverse(ec, in, collections.Nil())
}

func observeList(ec *engine.ExecutionContext, l collections.List) any {
	return collections.Elems(ec, l)
}

func observeTree(ec *engine.ExecutionContext, t collections.Tree) any {
	return collections.ShapeOf(ec, t)
}

func observeInt(_ *engine.ExecutionContext, x int) any { return x }

func listLab[O any](name, doc string, c lab.Computer[collections.List, O], observe lab.Observer[O]) lab.LabDef {
	return lab.New[collections.List, int, O](name, docBase+doc, UniformPrepend{}, c, observe)
}

func listDemandLab[O any](name, doc string, c lab.DemandComputer[collections.List, O], observe lab.Observer[O]) lab.LabDef {
	return lab.NewDemand[collections.List, int, O](name, docBase+doc, UniformPrepend{}, c, observe)
}

// AllLabs returns the master list of labs, in catalog order.
func AllLabs() []lab.LabDef {
	return []lab.LabDef{
		listDemandLab[collections.List]("list-lazy-map", "MapLazy", LazyMap{}, observeList),
		listDemandLab[collections.List]("list-lazy-filter", "FilterLazy", LazyFilter{}, observeList),
		listLab[collections.Tree]("list-tree", "TreeOfList", ListTree{}, observeTree),
		listLab[int]("list-tree-max", "FoldTree", ListTreeMax{}, observeInt),
		listLab[int]("list-tree-sum", "FoldTree", ListTreeSum{}, observeInt),
		listLab[collections.List]("list-eager-mergesort3", "MergeByHeads", EagerMergesort{collections.MergeByHeads}, observeList),
		listDemandLab[collections.List]("list-lazy-mergesort3", "MergeByHeads", LazyMergesort{collections.MergeByHeads}, observeList),
		listLab[collections.List]("list-eager-mergesort2", "MergeByStep", EagerMergesort{collections.MergeByStep}, observeList),
		listDemandLab[collections.List]("list-lazy-mergesort2", "MergeByStep", LazyMergesort{collections.MergeByStep}, observeList),
		listLab[collections.List]("list-eager-mergesort1", "MergeStrict", EagerMergesort{collections.MergeStrict}, observeList),
		listDemandLab[collections.List]("list-lazy-mergesort1", "MergeStrict", LazyMergesort{collections.MergeStrict}, observeList),
		listLab[collections.List]("list-eager-map", "MapEager", EagerMap{}, observeList),
		listLab[collections.List]("list-eager-filter", "FilterEager", EagerFilter{}, observeList),
		listLab[collections.List]("list-reverse", "Reverse", ListReverse{}, observeList),
	}
}

// Select returns the labs named in names, in catalog order. An empty
// names selects every lab.
func Select(labs []lab.LabDef, names []string) ([]lab.LabDef, error) {
	if len(names) == 0 {
		return labs, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []lab.LabDef
	for _, l := range labs {
		if want[l.Name()] {
			out = append(out, l)
			delete(want, l.Name())
		}
	}
	if len(want) > 0 {
		unknown := slices.Sorted(maps.Keys(want))
		return nil, fmt.Errorf("unknown lab %s", strings.Join(unknown, ", "))
	}
	return out, nil
}
