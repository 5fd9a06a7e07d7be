package engine

// Reflection types are plain data snapshots of the DCG and of the trace of
// low-level effects. They hold no references into live engine state, so a
// snapshot captured during one round stays valid after later rounds.

// Effect tags a DCG edge.
type Effect int

const (
	// EffectAlloc marks an edge from a node to a location it allocated.
	EffectAlloc Effect = iota
	// EffectForce marks an edge from a node to a location it forced.
	EffectForce
)

// String returns the edge effect name.
func (e Effect) String() string {
	if e == EffectAlloc {
		return "alloc"
	}
	return "force"
}

// NodeKind distinguishes mutable input cells from memoized computations.
type NodeKind int

const (
	// KindRefCell is a named cell holding a value.
	KindRefCell NodeKind = iota
	// KindThunk is a named, memoized suspended computation.
	KindThunk
)

// Succ is one reflected successor edge.
type Succ struct {
	Loc    Loc
	Effect Effect
	Dirty  bool
}

// GraphNode is one reflected DCG location.
type GraphNode struct {
	Loc      Loc
	Kind     NodeKind
	HasValue bool
	Value    Val
	Succs    []Succ
}

// Graph is a reflected DCG: a table from location key to node.
type Graph struct {
	Table map[string]*GraphNode
}

// Node looks up a location; ok is false if the location is absent.
func (g *Graph) Node(l Loc) (*GraphNode, bool) {
	if g == nil {
		return nil, false
	}
	n, ok := g.Table[l.Key()]
	return n, ok
}

// TraceKind is the top-level classification of a trace effect.
type TraceKind int

const (
	// TraceCleanRec re-validates the target of a dirty force edge.
	TraceCleanRec TraceKind = iota
	// TraceCleanEval re-evaluates the source of an edge whose target changed.
	TraceCleanEval
	// TraceCleanEdge clears the dirty flag of an edge.
	TraceCleanEdge
	// TraceDirty marks an edge dirty after its target changed.
	TraceDirty
	// TraceRemove drops an edge before its source is re-evaluated or re-allocated.
	TraceRemove
	// TraceAlloc allocates a cell or thunk.
	TraceAlloc
	// TraceForce reads a cell or forces a thunk.
	TraceForce
)

// AllocCase says whether an allocation created or re-used a location.
type AllocCase int

const (
	// LocFresh created a new location.
	LocFresh AllocCase = iota
	// LocExists found the location already in the DCG.
	LocExists
)

// ForceCase classifies a force effect.
type ForceCase int

const (
	// CompCacheMiss evaluated the thunk.
	CompCacheMiss ForceCase = iota
	// CompCacheHit returned the thunk's cached result.
	CompCacheHit
	// RefGet read a cell.
	RefGet
)

// TraceEffect is the effect recorded by one trace entry. AllocCase and
// AllocKind are meaningful for TraceAlloc, ForceCase for TraceForce.
type TraceEffect struct {
	Kind      TraceKind
	AllocCase AllocCase
	AllocKind NodeKind
	ForceCase ForceCase
}

// TraceEdge is the DCG edge an effect concerns. Loc is the source node,
// nil when the effect originates outside any node (at the root).
type TraceEdge struct {
	Loc  *Loc
	Succ Succ
}

// TraceEntry is one chronological effect record. Extent holds the
// effects that happened while this one was in progress.
type TraceEntry struct {
	Effect TraceEffect
	Edge   TraceEdge
	Extent []TraceEntry
}

// Val is a reflected value. The concrete types form a closed set:
// ValConstr, ValStruct, ValTuple, ValVec, ValNat, ValString, ValArt, ValTODO.
type Val interface {
	isVal()
}

// ValConstr is a tagged variant with positional fields.
type ValConstr struct {
	Name Name
	Vals []Val
}

// Field is a named field of a ValStruct.
type Field struct {
	Name Name
	Val  Val
}

// ValStruct is a record with named fields.
type ValStruct struct {
	Name   Name
	Fields []Field
}

// ValTuple is a fixed-size tuple.
type ValTuple struct{ Vals []Val }

// ValVec is a variable-length sequence.
type ValVec struct{ Vals []Val }

// ValNat is a natural-number constant.
type ValNat struct{ N uint64 }

// ValString is a string constant.
type ValString struct{ S string }

// ValArt is a reference to another DCG location. It is not expanded.
type ValArt struct{ Loc Loc }

// ValTODO stands for a value the engine cannot reflect.
type ValTODO struct{}

func (ValConstr) isVal() {}
func (ValStruct) isVal() {}
func (ValTuple) isVal()  {}
func (ValVec) isVal()    {}
func (ValNat) isVal()    {}
func (ValString) isVal() {}
func (ValArt) isVal()    {}
func (ValTODO) isVal()   {}

// Reflector is implemented by values that know their reflected shape.
type Reflector interface {
	Reflect() Val
}

// ReflectValue reflects an arbitrary Go value.
func ReflectValue(v any) Val {
	switch x := v.(type) {
	case nil:
		return ValTODO{}
	case Reflector:
		return x.Reflect()
	case int:
		if x < 0 {
			return ValString{S: itoa(x)}
		}
		return ValNat{N: uint64(x)}
	case uint64:
		return ValNat{N: x}
	case string:
		return ValString{S: x}
	case bool:
		if x {
			return ValConstr{Name: NameOfString("true")}
		}
		return ValConstr{Name: NameOfString("false")}
	case []int:
		vals := make([]Val, len(x))
		for i, e := range x {
			vals[i] = ReflectValue(e)
		}
		return ValVec{Vals: vals}
	}
	return ValTODO{}
}

func itoa(i int) string { return NameOfInt(i).sym }
