package engine

// Art is a handle to a value that is either stored (a cell) or suspended
// (a thunk). In incremental mode the handle is a DCG location; in naive
// mode it carries the value or the suspended computation directly.
type Art[T any] struct {
	loc   *Loc
	cell  *T
	thunk func() T
}

// Loc returns the DCG location of an incremental art.
func (a Art[T]) Loc() (Loc, bool) {
	if a.loc == nil {
		return Loc{}, false
	}
	return *a.loc, true
}

// Reflect returns a reference to the art's location, or the reflected
// content of a naive cell.
func (a Art[T]) Reflect() Val {
	switch {
	case a.loc != nil:
		return ValArt{Loc: *a.loc}
	case a.cell != nil:
		return ReflectValue(*a.cell)
	}
	return ValTODO{}
}

// Cell allocates a named cell holding v. Re-allocating a name with an
// equal value is a no-op; a different value dirties every dependent.
func Cell[T any](ec *ExecutionContext, n Name, v T) Art[T] {
	if !ec.incremental() {
		ec.cnt.Alloc++
		return Art[T]{cell: &v}
	}
	return Art[T]{loc: ec.alloc(n, KindRefCell, v, nil, nil)}
}

// Thunk allocates a named suspended computation of fn(arg). In
// incremental mode the thunk is re-used as long as arg is unchanged.
// fn must be a pure function of arg and of what it forces.
func Thunk[A, T any](ec *ExecutionContext, n Name, arg A, fn func(A) T) Art[T] {
	if !ec.incremental() {
		ec.cnt.Alloc++
		return Art[T]{thunk: func() T { return fn(arg) }}
	}
	return Art[T]{loc: ec.alloc(n, KindThunk, nil, arg, func() any { return fn(arg) })}
}

// Force returns the value of an art, evaluating or re-validating it as
// needed.
func Force[T any](ec *ExecutionContext, a Art[T]) T {
	switch {
	case a.loc != nil:
		if ec.dcg == nil {
			panic("engine: force of an incremental art with no DCG in use")
		}
		if ec.peeking {
			return ec.peek(a.loc).(T)
		}
		return ec.force(a.loc).(T)
	case a.thunk != nil:
		ec.cnt.Eval++
		return a.thunk()
	case a.cell != nil:
		return *a.cell
	}
	panic("engine: force of a zero Art")
}

// Memo allocates a named thunk of fn(arg) and forces it.
func Memo[A, T any](ec *ExecutionContext, n Name, arg A, fn func(A) T) T {
	return Force(ec, Thunk(ec, n, arg, fn))
}

// Ns runs body with n appended to the current allocation path.
func Ns[T any](ec *ExecutionContext, n Name, body func() T) T {
	saved := ec.path
	ec.path = saved.Extend(n)
	defer func() { ec.path = saved }()
	return body()
}
