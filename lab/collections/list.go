// Package collections holds the persistent list and tree structures the lab
// workloads operate on, and the pure computations over them.
//
// Every structure may contain named boundaries (a Name followed by an Art).
// The incremental engine memoizes work at these boundaries; the naive engine
// treats them as ordinary structure.
package collections

import (
	"github.com/inference-sim/inclab/lab/engine"
)

// ListKind discriminates the variants of List.
type ListKind int

const (
	// ListNil is the empty list.
	ListNil ListKind = iota
	// ListCons is an element followed by the rest of the list.
	ListCons
	// ListName marks a boundary; its tail is the named rest.
	ListName
	// ListArt holds the rest of the list in an art.
	ListArt
)

// List is a persistent list of ints. Values are immutable; sharing a tail
// between two lists is always safe.
type List struct {
	kind ListKind
	elem int
	name engine.Name
	art  engine.Art[List]
	tail *List
}

// Nil returns the empty list.
func Nil() List { return List{kind: ListNil} }

// Cons prepends x to l.
func Cons(x int, l List) List { return List{kind: ListCons, elem: x, tail: &l} }

// Named marks l with the boundary name n.
func Named(n engine.Name, l List) List { return List{kind: ListName, name: n, tail: &l} }

// ArtList wraps an art holding the rest of the list.
func ArtList(a engine.Art[List]) List { return List{kind: ListArt, art: a} }

// Kind returns the variant of l.
func (l List) Kind() ListKind { return l.kind }

// Elem returns the head element of a Cons.
func (l List) Elem() int { return l.elem }

// Name returns the boundary name of a Name node.
func (l List) Name() engine.Name { return l.name }

// Art returns the art of an Art node.
func (l List) Art() engine.Art[List] { return l.art }

// Tail returns the rest of a Cons or Name node, and Nil otherwise.
func (l List) Tail() List {
	if l.tail == nil {
		return Nil()
	}
	return *l.tail
}

// Reflect implements engine.Reflector.
func (l List) Reflect() engine.Val {
	switch l.kind {
	case ListCons:
		return engine.ValConstr{Name: engine.NameOfString("Cons"), Vals: []engine.Val{
			engine.ReflectValue(l.elem), l.tail.Reflect(),
		}}
	case ListName:
		return engine.ValConstr{Name: engine.NameOfString("Name"), Vals: []engine.Val{
			engine.ValString{S: l.name.String()}, l.tail.Reflect(),
		}}
	case ListArt:
		return engine.ValConstr{Name: engine.NameOfString("Art"), Vals: []engine.Val{l.art.Reflect()}}
	}
	return engine.ValConstr{Name: engine.NameOfString("Nil")}
}

// ListOfSlice builds a list without boundaries holding xs in order.
func ListOfSlice(xs []int) List {
	l := Nil()
	for i := len(xs) - 1; i >= 0; i-- {
		l = Cons(xs[i], l)
	}
	return l
}

// Elems forces the whole list and returns its elements in order.
// Boundaries are skipped.
func Elems(ec *engine.ExecutionContext, l List) []int {
	var out []int
	for {
		switch l.kind {
		case ListNil:
			return out
		case ListCons:
			out = append(out, l.elem)
			l = *l.tail
		case ListName:
			l = *l.tail
		case ListArt:
			l = engine.Force(ec, l.art)
		}
	}
}

// Boundaries forces the whole list and returns its boundary names in order.
func Boundaries(ec *engine.ExecutionContext, l List) []engine.Name {
	var out []engine.Name
	for {
		switch l.kind {
		case ListNil:
			return out
		case ListName:
			out = append(out, l.name)
			l = *l.tail
		case ListCons:
			l = *l.tail
		case ListArt:
			l = engine.Force(ec, l.art)
		}
	}
}

// Len forces the whole list and counts its elements.
func Len(ec *engine.ExecutionContext, l List) int { return len(Elems(ec, l)) }

// skipArts forces arts and drops boundaries until l is Nil or Cons.
func skipArts(ec *engine.ExecutionContext, l List) List {
	for {
		switch l.kind {
		case ListName:
			l = *l.tail
		case ListArt:
			l = engine.Force(ec, l.art)
		default:
			return l
		}
	}
}
