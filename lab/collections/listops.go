package collections

import (
	"strconv"

	"github.com/inference-sim/inclab/lab/engine"
)

// MapEager applies f to every element. At each boundary the rest of the
// output is computed by a memoized thunk, so an edit to the input only
// re-maps the segments it touched.
func MapEager(ec *engine.ExecutionContext, l List, f func(int) int) List {
	switch l.kind {
	case ListCons:
		return Cons(f(l.elem), MapEager(ec, *l.tail, f))
	case ListName:
		n1, n2 := l.name.Fork()
		rest := engine.Memo(ec, n2, *l.tail, func(tl List) List { return MapEager(ec, tl, f) })
		return Named(l.name, ArtList(engine.Cell(ec, n1, rest)))
	case ListArt:
		return MapEager(ec, engine.Force(ec, l.art), f)
	}
	return Nil()
}

// MapLazy applies f to every element up to the first boundary and
// suspends the rest of the output in a thunk named by that boundary.
func MapLazy(ec *engine.ExecutionContext, l List, f func(int) int) List {
	switch l.kind {
	case ListCons:
		return Cons(f(l.elem), MapLazy(ec, *l.tail, f))
	case ListName:
		rest := engine.Thunk(ec, l.name, *l.tail, func(tl List) List { return MapLazy(ec, tl, f) })
		return Named(l.name, ArtList(rest))
	case ListArt:
		return MapLazy(ec, engine.Force(ec, l.art), f)
	}
	return Nil()
}

// FilterEager keeps the elements satisfying keep, memoizing at boundaries.
func FilterEager(ec *engine.ExecutionContext, l List, keep func(int) bool) List {
	switch l.kind {
	case ListCons:
		rest := FilterEager(ec, *l.tail, keep)
		if keep(l.elem) {
			return Cons(l.elem, rest)
		}
		return rest
	case ListName:
		n1, n2 := l.name.Fork()
		rest := engine.Memo(ec, n2, *l.tail, func(tl List) List { return FilterEager(ec, tl, keep) })
		return Named(l.name, ArtList(engine.Cell(ec, n1, rest)))
	case ListArt:
		return FilterEager(ec, engine.Force(ec, l.art), keep)
	}
	return Nil()
}

// FilterLazy keeps the elements satisfying keep up to the first boundary
// and suspends the rest.
func FilterLazy(ec *engine.ExecutionContext, l List, keep func(int) bool) List {
	switch l.kind {
	case ListCons:
		rest := FilterLazy(ec, *l.tail, keep)
		if keep(l.elem) {
			return Cons(l.elem, rest)
		}
		return rest
	case ListName:
		rest := engine.Thunk(ec, l.name, *l.tail, func(tl List) List { return FilterLazy(ec, tl, keep) })
		return Named(l.name, ArtList(rest))
	case ListArt:
		return FilterLazy(ec, engine.Force(ec, l.art), keep)
	}
	return Nil()
}

type reverseArg struct {
	Rest List
	Acc  List
}

// Reverse prepends the elements of l, in reverse order, onto acc. Each
// boundary of l becomes a boundary of the accumulator.
func Reverse(ec *engine.ExecutionContext, l, acc List) List {
	for {
		switch l.kind {
		case ListNil:
			return acc
		case ListCons:
			acc = Cons(l.elem, acc)
			l = *l.tail
		case ListName:
			n1, n2 := l.name.Fork()
			acc = Named(l.name, ArtList(engine.Cell(ec, n1, acc)))
			return engine.Memo(ec, n2, reverseArg{Rest: *l.tail, Acc: acc}, func(a reverseArg) List {
				return Reverse(ec, a.Rest, a.Acc)
			})
		case ListArt:
			l = engine.Force(ec, l.art)
		}
	}
}

// Demand bounds how many elements of a lazily produced list are forced.
// The zero value demands nothing; use DemandAll for an unbounded demand.
type Demand struct {
	n   int
	all bool
}

// DemandN demands the first n elements.
func DemandN(n int) Demand { return Demand{n: n} }

// DemandAll demands every element.
func DemandAll() Demand { return Demand{all: true} }

// Unbounded reports whether d demands every element.
func (d Demand) Unbounded() bool { return d.all }

// N returns the element bound of a finite demand.
func (d Demand) N() int { return d.n }

// String returns "all" or the element bound.
func (d Demand) String() string {
	if d.all {
		return "all"
	}
	return strconv.Itoa(d.n)
}

// DemandState tells whether a demanded list was forced to its end.
type DemandState int

const (
	// Forced means the whole list was forced.
	Forced DemandState = iota
	// Pending means structure past the demanded prefix remains unforced.
	Pending
)

// Demanded is the observable result of forcing a list under a demand.
type Demanded struct {
	Elems []int
	State DemandState
}

// DemandList forces exactly the elements d asks for, in order, and
// nothing beyond them.
func DemandList(ec *engine.ExecutionContext, l List, d Demand) Demanded {
	var out Demanded
	for {
		if !d.all && len(out.Elems) >= d.n {
			if l.kind == ListNil {
				out.State = Forced
			} else {
				out.State = Pending
			}
			return out
		}
		switch l.kind {
		case ListNil:
			out.State = Forced
			return out
		case ListCons:
			out.Elems = append(out.Elems, l.elem)
			l = *l.tail
		case ListName:
			l = *l.tail
		case ListArt:
			l = engine.Force(ec, l.art)
		}
	}
}
