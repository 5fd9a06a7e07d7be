package engine

import (
	"fmt"
	"reflect"
)

// Mode is the evaluation strategy currently in effect.
type Mode int

const (
	// Naive recomputes every thunk on every force; nothing is memoized.
	Naive Mode = iota
	// Incremental memoizes thunks in a DCG and re-uses what an edit leaves intact.
	Incremental
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Incremental {
		return "incremental"
	}
	return "naive"
}

// Cnt counts engine-internal work.
type Cnt struct {
	Alloc uint64 `json:"alloc"` // fresh or changed allocations
	Reuse uint64 `json:"reuse"` // allocations that matched an existing location
	Eval  uint64 `json:"eval"`  // thunk evaluations
	Hit   uint64 `json:"hit"`   // forces answered from the memo table
	Dirty uint64 `json:"dirty"` // edges marked dirty
	Clean uint64 `json:"clean"` // dirty edges proven clean
}

// Add returns the field-wise sum of c and o.
func (c Cnt) Add(o Cnt) Cnt {
	return Cnt{
		Alloc: c.Alloc + o.Alloc,
		Reuse: c.Reuse + o.Reuse,
		Eval:  c.Eval + o.Eval,
		Hit:   c.Hit + o.Hit,
		Dirty: c.Dirty + o.Dirty,
		Clean: c.Clean + o.Clean,
	}
}

type node struct {
	loc      *Loc
	kind     NodeKind
	val      any
	hasVal   bool
	arg      any
	producer func() any
	succs    []*edge
	preds    []*edge
	onStack  bool
}

type edge struct {
	src      *node
	dst      *node
	effect   Effect
	dirty    bool
	observed any
}

// DCG is the demanded computation graph of the incremental engine. A DCG is
// only ever read or written through the ExecutionContext it is in use by.
type DCG struct {
	table map[string]*node
	stack []*node
}

// NewDCG creates an empty DCG.
func NewDCG() *DCG {
	return &DCG{table: make(map[string]*node)}
}

// Len returns the number of locations in the DCG.
func (d *DCG) Len() int { return len(d.table) }

// ExecutionContext is the single evaluation context shared by both
// engines. The DCG in use determines the mode: nil means naive.
//
// Thread-safety: NOT thread-safe. Must be used from one goroutine.
type ExecutionContext struct {
	dcg     *DCG
	path    Path
	cnt     Cnt
	tracing bool
	trace   [][]TraceEntry
	peeking bool
}

// NewExecutionContext creates a context in naive mode.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{trace: [][]TraceEntry{nil}}
}

// Use installs d as the DCG in use and returns the previously installed
// one. Passing nil switches to naive mode. The trace buffer is reset.
func (ec *ExecutionContext) Use(d *DCG) *DCG {
	prev := ec.dcg
	ec.dcg = d
	ec.path = nil
	ec.trace = [][]TraceEntry{nil}
	return prev
}

// Mode reports the current evaluation mode.
func (ec *ExecutionContext) Mode() Mode {
	if ec.dcg != nil {
		return Incremental
	}
	return Naive
}

// SetTracing turns trace recording on or off. Only incremental
// executions produce trace entries.
func (ec *ExecutionContext) SetTracing(on bool) { ec.tracing = on }

// TakeTrace returns the trace recorded since the last call and clears it.
func (ec *ExecutionContext) TakeTrace() []TraceEntry {
	tr := ec.trace[0]
	ec.trace = [][]TraceEntry{nil}
	return tr
}

// Count runs thunk and returns its result with the engine work it caused.
func Count[X any](ec *ExecutionContext, thunk func() X) (X, Cnt) {
	saved := ec.cnt
	ec.cnt = Cnt{}
	x := thunk()
	got := ec.cnt
	ec.cnt = saved.Add(got)
	return x, got
}

// Observe runs fn without disturbing the DCG: memoized values are read
// when they are known to be current, anything else is recomputed
// naively and discarded. No trace is recorded.
func Observe[X any](ec *ExecutionContext, fn func() X) X {
	savedPeek, savedTracing := ec.peeking, ec.tracing
	ec.peeking, ec.tracing = true, false
	defer func() { ec.peeking, ec.tracing = savedPeek, savedTracing }()
	return fn()
}

// ReflectGraph snapshots the DCG in use. Returns nil in naive mode.
func (ec *ExecutionContext) ReflectGraph() *Graph {
	if ec.dcg == nil {
		return nil
	}
	g := &Graph{Table: make(map[string]*GraphNode, len(ec.dcg.table))}
	for key, n := range ec.dcg.table {
		gn := &GraphNode{Loc: *n.loc, Kind: n.kind, HasValue: n.hasVal}
		if n.hasVal {
			gn.Value = ReflectValue(n.val)
		}
		for _, e := range n.succs {
			gn.Succs = append(gn.Succs, Succ{Loc: *e.dst.loc, Effect: e.effect, Dirty: e.dirty})
		}
		g.Table[key] = gn
	}
	return g
}

func (ec *ExecutionContext) incremental() bool {
	return ec.dcg != nil && !ec.peeking
}

func (ec *ExecutionContext) current() *node {
	s := ec.dcg.stack
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

func locOf(n *node) *Loc {
	if n == nil {
		return nil
	}
	l := *n.loc
	return &l
}

func (ec *ExecutionContext) record(e TraceEntry) {
	if !ec.tracing {
		return
	}
	top := len(ec.trace) - 1
	ec.trace[top] = append(ec.trace[top], e)
}

// nested runs body and returns the trace entries it recorded.
func (ec *ExecutionContext) nested(body func()) []TraceEntry {
	if !ec.tracing {
		body()
		return nil
	}
	ec.trace = append(ec.trace, nil)
	body()
	top := len(ec.trace) - 1
	ext := ec.trace[top]
	ec.trace = ec.trace[:top]
	return ext
}

func edgeOf(src, dst *node, eff Effect, dirty bool) TraceEdge {
	return TraceEdge{Loc: locOf(src), Succ: Succ{Loc: *dst.loc, Effect: eff, Dirty: dirty}}
}

func (ec *ExecutionContext) addEdge(src, dst *node, eff Effect, observed any) {
	if src == nil {
		return
	}
	e := &edge{src: src, dst: dst, effect: eff, observed: observed}
	src.succs = append(src.succs, e)
	dst.preds = append(dst.preds, e)
}

func (ec *ExecutionContext) alloc(name Name, kind NodeKind, val, arg any, producer func() any) *Loc {
	d := ec.dcg
	loc := &Loc{Path: ec.path, Name: name}
	parent := ec.current()
	n, exists := d.table[loc.Key()]
	allocCase := LocExists
	var ext []TraceEntry
	switch {
	case !exists:
		allocCase = LocFresh
		n = &node{loc: loc}
		d.table[loc.Key()] = n
		ec.cnt.Alloc++
		n.set(kind, val, arg, producer)
	case n.kind == KindRefCell && kind == KindRefCell && reflect.DeepEqual(n.val, val):
		ec.cnt.Reuse++
	case n.kind == KindThunk && kind == KindThunk && reflect.DeepEqual(n.arg, arg):
		ec.cnt.Reuse++
	default:
		ec.cnt.Alloc++
		ext = ec.nested(func() {
			ec.removeSuccs(n)
			n.set(kind, val, arg, producer)
			ec.dirtyPreds(n)
		})
	}
	ec.addEdge(parent, n, EffectAlloc, nil)
	ec.record(TraceEntry{
		Effect: TraceEffect{Kind: TraceAlloc, AllocCase: allocCase, AllocKind: kind},
		Edge:   edgeOf(parent, n, EffectAlloc, false),
		Extent: ext,
	})
	return n.loc
}

func (n *node) set(kind NodeKind, val, arg any, producer func() any) {
	n.kind = kind
	n.val = val
	n.hasVal = kind == KindRefCell
	n.arg = arg
	n.producer = producer
}

func (ec *ExecutionContext) dirtyPreds(n *node) {
	for _, e := range n.preds {
		if e.dirty {
			continue
		}
		e.dirty = true
		ec.cnt.Dirty++
		ec.record(TraceEntry{Effect: TraceEffect{Kind: TraceDirty}, Edge: edgeOf(e.src, n, e.effect, true)})
		ec.dirtyPreds(e.src)
	}
}

func (ec *ExecutionContext) removeSuccs(n *node) {
	for _, e := range n.succs {
		e.dst.preds = removeEdge(e.dst.preds, e)
		ec.record(TraceEntry{Effect: TraceEffect{Kind: TraceRemove}, Edge: edgeOf(n, e.dst, e.effect, e.dirty)})
	}
	n.succs = nil
}

func removeEdge(edges []*edge, target *edge) []*edge {
	for i, e := range edges {
		if e == target {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

func (ec *ExecutionContext) lookup(loc *Loc) *node {
	n, ok := ec.dcg.table[loc.Key()]
	if !ok {
		panic(fmt.Sprintf("engine: location %s is not in the DCG in use", loc))
	}
	return n
}

func (ec *ExecutionContext) eval(n *node) {
	if n.onStack {
		panic(fmt.Sprintf("engine: cyclic force of %s", n.loc))
	}
	ec.removeSuccs(n)
	ec.cnt.Eval++
	d := ec.dcg
	d.stack = append(d.stack, n)
	n.onStack = true
	savedPath := ec.path
	ec.path = n.loc.Path
	n.val = n.producer()
	n.hasVal = true
	ec.path = savedPath
	n.onStack = false
	d.stack = d.stack[:len(d.stack)-1]
}

// refresh brings n up to date and reports whether it was re-evaluated.
func (ec *ExecutionContext) refresh(n *node) bool {
	if n.kind == KindRefCell {
		return false
	}
	if !n.hasVal {
		ec.eval(n)
		return true
	}
	for _, e := range n.succs {
		if !e.dirty {
			continue
		}
		if e.effect == EffectAlloc {
			e.dirty = false
			ec.cnt.Clean++
			ec.record(TraceEntry{Effect: TraceEffect{Kind: TraceCleanEdge}, Edge: edgeOf(n, e.dst, e.effect, false)})
			continue
		}
		var changed bool
		ext := ec.nested(func() {
			ec.refresh(e.dst)
			changed = !reflect.DeepEqual(e.dst.val, e.observed)
		})
		ec.record(TraceEntry{Effect: TraceEffect{Kind: TraceCleanRec}, Edge: edgeOf(n, e.dst, e.effect, true), Extent: ext})
		if changed {
			ext := ec.nested(func() { ec.eval(n) })
			ec.record(TraceEntry{Effect: TraceEffect{Kind: TraceCleanEval}, Edge: edgeOf(n, e.dst, e.effect, true), Extent: ext})
			return true
		}
		e.dirty = false
		ec.cnt.Clean++
		ec.record(TraceEntry{Effect: TraceEffect{Kind: TraceCleanEdge}, Edge: edgeOf(n, e.dst, e.effect, false)})
	}
	return false
}

func (ec *ExecutionContext) force(loc *Loc) any {
	n := ec.lookup(loc)
	parent := ec.current()
	var fc ForceCase
	var ext []TraceEntry
	switch {
	case n.kind == KindRefCell:
		fc = RefGet
	case !n.hasVal:
		fc = CompCacheMiss
		ext = ec.nested(func() { ec.eval(n) })
	default:
		fc = CompCacheHit
		ext = ec.nested(func() {
			if ec.refresh(n) {
				fc = CompCacheMiss
			}
		})
		if fc == CompCacheHit {
			ec.cnt.Hit++
		}
	}
	ec.addEdge(parent, n, EffectForce, n.val)
	ec.record(TraceEntry{
		Effect: TraceEffect{Kind: TraceForce, ForceCase: fc},
		Edge:   edgeOf(parent, n, EffectForce, false),
		Extent: ext,
	})
	return n.val
}

func hasDirtySucc(n *node) bool {
	for _, e := range n.succs {
		if e.dirty {
			return true
		}
	}
	return false
}

func (ec *ExecutionContext) peek(loc *Loc) any {
	n := ec.lookup(loc)
	if n.kind == KindRefCell || (n.hasVal && !hasDirtySucc(n)) {
		return n.val
	}
	return n.producer()
}
