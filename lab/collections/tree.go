package collections

import (
	"math"
	"slices"

	"github.com/inference-sim/inclab/lab/engine"
)

// TreeKind discriminates the variants of Tree.
type TreeKind int

const (
	// TreeLeaf holds a run of elements between two boundaries.
	TreeLeaf TreeKind = iota
	// TreeBin joins two subtrees under a named boundary.
	TreeBin
)

// Tree is a persistent binary tree. A Bin is named by the list boundary
// it was built from and carries that boundary's level; levels never
// increase from a Bin to its children.
type Tree struct {
	kind  TreeKind
	elems []int
	name  engine.Name
	lev   int
	left  engine.Art[Tree]
	right engine.Art[Tree]
}

// Leaf returns a leaf holding elems in order.
func Leaf(elems []int) Tree { return Tree{kind: TreeLeaf, elems: elems} }

// Bin joins two subtrees under the named boundary n of level lev.
func Bin(n engine.Name, lev int, left, right engine.Art[Tree]) Tree {
	return Tree{kind: TreeBin, name: n, lev: lev, left: left, right: right}
}

// Kind returns the variant of t.
func (t Tree) Kind() TreeKind { return t.kind }

// Elems returns the elements of a leaf.
func (t Tree) Elems() []int { return t.elems }

// Name returns the boundary name of a Bin.
func (t Tree) Name() engine.Name { return t.name }

// Level returns the level of a Bin.
func (t Tree) Level() int { return t.lev }

// Reflect implements engine.Reflector.
func (t Tree) Reflect() engine.Val {
	if t.kind == TreeLeaf {
		return engine.ValConstr{Name: engine.NameOfString("Leaf"), Vals: []engine.Val{engine.ReflectValue(t.elems)}}
	}
	return engine.ValConstr{Name: engine.NameOfString("Bin"), Vals: []engine.Val{
		engine.ValString{S: t.name.String()},
		engine.ValNat{N: uint64(t.lev)},
		t.left.Reflect(),
		t.right.Reflect(),
	}}
}

type built struct {
	Tree Tree
	Rest List
}

// Reflect implements engine.Reflector as the pair (tree, rest).
func (b built) Reflect() engine.Val {
	return engine.ValTuple{Vals: []engine.Val{b.Tree.Reflect(), b.Rest.Reflect()}}
}

type buildArg struct {
	Rest List
	Lev  int
}

// TreeOfList builds a tree whose in-order leaves hold the elements of l.
// The shape depends only on the boundary names of l, so an edit that
// leaves a region of the list intact leaves its subtree intact too.
func TreeOfList(ec *engine.ExecutionContext, l List) Tree {
	first, rest := takeLeaf(ec, l)
	return buildTree(ec, Leaf(first), rest, math.MaxInt).Tree
}

// buildTree folds l into acc until it meets a boundary whose level is at
// least parentLev, which is left unconsumed for the caller.
func buildTree(ec *engine.ExecutionContext, acc Tree, l List, parentLev int) built {
	for {
		l = skipArtsKeepNames(ec, l)
		if l.kind != ListName {
			return built{Tree: acc, Rest: l}
		}
		n := l.name
		lev := n.Level()
		if lev >= parentLev {
			return built{Tree: acc, Rest: l}
		}
		n1, n2 := n.Fork()
		right := engine.Memo(ec, n, buildArg{Rest: *l.tail, Lev: lev}, func(a buildArg) built {
			elems, rest := takeLeaf(ec, a.Rest)
			return buildTree(ec, Leaf(elems), rest, a.Lev)
		})
		acc = Bin(n, lev, engine.Cell(ec, n1, acc), engine.Cell(ec, n2, right.Tree))
		l = right.Rest
	}
}

// takeLeaf collects elements up to the next boundary or the end of l.
func takeLeaf(ec *engine.ExecutionContext, l List) ([]int, List) {
	var elems []int
	for {
		switch l.kind {
		case ListCons:
			elems = append(elems, l.elem)
			l = *l.tail
		case ListArt:
			l = engine.Force(ec, l.art)
		default:
			return elems, l
		}
	}
}

func skipArtsKeepNames(ec *engine.ExecutionContext, l List) List {
	for l.kind == ListArt {
		l = engine.Force(ec, l.art)
	}
	return l
}

// FoldTree combines every element of t with op, starting from zero.
// Each Bin's result is memoized under the Bin's name.
func FoldTree(ec *engine.ExecutionContext, t Tree, zero int, op func(int, int) int) int {
	if t.kind == TreeLeaf {
		acc := zero
		for _, x := range t.elems {
			acc = op(acc, x)
		}
		return acc
	}
	return engine.Memo(ec, t.name, t, func(t Tree) int {
		l := FoldTree(ec, engine.Force(ec, t.left), zero, op)
		r := FoldTree(ec, engine.Force(ec, t.right), zero, op)
		return op(l, r)
	})
}

// MergeStrategy selects how Mergesort suspends and names the merge at
// each Bin.
type MergeStrategy int

const (
	// MergeStrict merges eagerly. Only the sort of each Bin is memoized.
	MergeStrict MergeStrategy = iota + 1
	// MergeByStep suspends every merge step in a thunk named by the Bin
	// and the step index.
	MergeByStep
	// MergeByHeads suspends every merge step in a thunk named by the Bin
	// and the positions of both input heads.
	MergeByHeads
)

type sortArg struct {
	T Tree
	S MergeStrategy
}

type mergeArg struct {
	A, B List
	I, J int
}

// Mergesort returns the elements of t in ascending order using
// MergeByStep.
func Mergesort(ec *engine.ExecutionContext, t Tree) List {
	return MergesortWith(ec, MergeByStep, t)
}

// MergesortWith returns the elements of t in ascending order. The sort at
// each Bin is memoized under the Bin's name; s decides whether the merge
// output is built eagerly or produced lazily one step at a time.
func MergesortWith(ec *engine.ExecutionContext, s MergeStrategy, t Tree) List {
	if t.kind == TreeLeaf {
		return ListOfSlice(slices.Sorted(slices.Values(t.elems)))
	}
	return engine.Memo(ec, t.name, sortArg{T: t, S: s}, func(a sortArg) List {
		l := MergesortWith(ec, a.S, engine.Force(ec, a.T.left))
		r := MergesortWith(ec, a.S, engine.Force(ec, a.T.right))
		if a.S == MergeStrict {
			return ListOfSlice(mergeSlices(Elems(ec, l), Elems(ec, r)))
		}
		return merge(ec, a.S, a.T.name, mergeArg{A: l, B: r})
	})
}

func mergeSlices(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if a[0] <= b[0] {
			out, a = append(out, a[0]), a[1:]
		} else {
			out, b = append(out, b[0]), b[1:]
		}
	}
	out = append(out, a...)
	return append(out, b...)
}

// stepName names the thunk holding the merge output after step m.
func (s MergeStrategy) stepName(n engine.Name, m mergeArg) engine.Name {
	if s == MergeByHeads {
		return engine.NamePair(n, engine.NamePair(engine.NameOfInt(m.I), engine.NameOfInt(m.J)))
	}
	return engine.NamePair(n, engine.NameOfInt(m.I+m.J))
}

func merge(ec *engine.ExecutionContext, s MergeStrategy, n engine.Name, m mergeArg) List {
	a, b := skipArts(ec, m.A), skipArts(ec, m.B)
	if a.kind == ListNil {
		return b
	}
	if b.kind == ListNil {
		return a
	}
	var x int
	next := mergeArg{A: a, B: b, I: m.I, J: m.J}
	if a.elem <= b.elem {
		x, next.A, next.I = a.elem, *a.tail, m.I+1
	} else {
		x, next.B, next.J = b.elem, *b.tail, m.J+1
	}
	rest := engine.Thunk(ec, s.stepName(n, m), next, func(m mergeArg) List {
		return merge(ec, s, n, m)
	})
	return Cons(x, ArtList(rest))
}

// TreeShape is a plain snapshot of a Tree with every art forced.
type TreeShape struct {
	Leaf  []int
	Name  string
	Level int
	Left  *TreeShape
	Right *TreeShape
}

// ShapeOf forces every art of t and returns its plain shape.
func ShapeOf(ec *engine.ExecutionContext, t Tree) *TreeShape {
	if t.kind == TreeLeaf {
		return &TreeShape{Leaf: t.elems}
	}
	return &TreeShape{
		Name:  t.name.String(),
		Level: t.lev,
		Left:  ShapeOf(ec, engine.Force(ec, t.left)),
		Right: ShapeOf(ec, engine.Force(ec, t.right)),
	}
}

// InOrder returns the elements of t in leaf order.
func InOrder(ec *engine.ExecutionContext, t Tree) []int {
	if t.kind == TreeLeaf {
		return slices.Clone(t.elems)
	}
	out := InOrder(ec, engine.Force(ec, t.left))
	return append(out, InOrder(ec, engine.Force(ec, t.right))...)
}
