package labviz

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/inference-sim/inclab/lab/engine"
)

// ErrDanglingLoc is returned when an edge of a reflected DCG points at a
// location missing from the graph table.
var ErrDanglingLoc = errors.New("dangling location in reflected DCG")

const traceEffectDoc = "https://pkg.go.dev/github.com/inference-sim/inclab/lab/engine#TraceEffect"

// OfName renders a name as text, with a class derived from its symbol so
// related names can be highlighted together.
func OfName(n engine.Name) Div {
	return Div{
		Tag:     "name",
		Classes: []string{cssClass("n-", n.String())},
		Text:    n.String(),
	}
}

// OfPath renders each name of a path.
func OfPath(p engine.Path) Div {
	d := Div{Tag: "path"}
	for _, n := range p {
		d.Extent = append(d.Extent, OfName(n))
	}
	return d
}

// OfLoc renders a location as its path followed by its name.
func OfLoc(l engine.Loc) Div {
	return Div{Tag: "loc", Extent: []Div{OfPath(l.Path), OfName(l.Name)}}
}

func ofOpLoc(l *engine.Loc) Div {
	d := Div{Tag: "oploc"}
	if l != nil {
		d.Extent = []Div{OfLoc(*l)}
	} else {
		d.Classes = []string{"root"}
	}
	return d
}

// OfSucc renders a successor edge with its effect and dirty bit as classes.
func OfSucc(s engine.Succ) Div {
	eff := "succ-force"
	if s.Effect == engine.EffectAlloc {
		eff = "succ-alloc"
	}
	dirty := "succ-not-dirty"
	if s.Dirty {
		dirty = "succ-dirty"
	}
	return Div{Tag: "succ", Classes: []string{eff, dirty}, Extent: []Div{OfLoc(s.Loc)}}
}

// OfEdge renders a trace edge: the source location (if any) and the successor.
func OfEdge(e engine.TraceEdge) Div {
	return Div{Tag: "edge", Extent: []Div{ofOpLoc(e.Loc), OfSucc(e.Succ)}}
}

// OfValue mirrors the shape of a reflected value. An art renders only the
// location it refers to; it is not dereferenced.
func OfValue(v engine.Val) Div {
	switch x := v.(type) {
	case engine.ValConstr:
		d := Div{Tag: "val-constr", Classes: []string{cssClass("constr-", x.Name.String())}, Text: x.Name.String()}
		for _, c := range x.Vals {
			d.Extent = append(d.Extent, OfValue(c))
		}
		return d
	case engine.ValStruct:
		d := Div{Tag: "val-struct", Classes: []string{cssClass("struct-", x.Name.String())}, Text: x.Name.String()}
		for _, f := range x.Fields {
			d.Extent = append(d.Extent, Div{Tag: "val-field", Extent: []Div{OfName(f.Name), OfValue(f.Val)}})
		}
		return d
	case engine.ValTuple:
		d := Div{Tag: "val-tuple", Classes: []string{"tuple-" + strconv.Itoa(len(x.Vals))}}
		for _, c := range x.Vals {
			d.Extent = append(d.Extent, OfValue(c))
		}
		return d
	case engine.ValVec:
		d := Div{Tag: "val-vec", Classes: []string{"vec-" + strconv.Itoa(len(x.Vals))}}
		for _, c := range x.Vals {
			d.Extent = append(d.Extent, OfValue(c))
		}
		return d
	case engine.ValNat:
		s := strconv.FormatUint(x.N, 10)
		return Div{Tag: "val-const", Classes: []string{"const-" + s}, Text: s}
	case engine.ValString:
		return Div{Tag: "val-const", Classes: []string{cssClass("const-", x.S)}, Text: strconv.Quote(x.S)}
	case engine.ValArt:
		return Div{Tag: "val-art", Text: x.Loc.String(), Extent: []Div{OfLoc(x.Loc)}}
	}
	return Div{Tag: "val-TODO"}
}

// AllocTree renders the tree of locations reachable from loc along
// allocation edges.
func AllocTree(g *engine.Graph, loc engine.Loc) (Div, error) {
	return edgeTree(g, map[string]bool{}, loc, engine.EffectAlloc)
}

// ForceTree renders the tree of locations reachable from loc along force
// edges.
func ForceTree(g *engine.Graph, loc engine.Loc) (Div, error) {
	return edgeTree(g, map[string]bool{}, loc, engine.EffectForce)
}

func edgeTree(g *engine.Graph, visited map[string]bool, loc engine.Loc, eff engine.Effect) (Div, error) {
	d := Div{Tag: eff.String() + "-tree", Extent: []Div{OfLoc(loc)}}
	nd, ok := g.Node(loc)
	if !ok {
		return Div{}, fmt.Errorf("%w: %s", ErrDanglingLoc, loc)
	}
	if visited[loc.Key()] {
		d.Classes = append(d.Classes, "visited", "no-extent")
		return d, nil
	}
	visited[loc.Key()] = true
	for _, s := range nd.Succs {
		if s.Effect != eff {
			continue
		}
		sub, err := edgeTree(g, visited, s.Loc, eff)
		if err != nil {
			return Div{}, err
		}
		d.Extent = append(d.Extent, sub)
	}
	if len(d.Extent) == 1 {
		d.Classes = append(d.Classes, "no-extent")
	}
	return d, nil
}

// OfTrace renders one trace entry and, nested under tr-extent, the entries
// recorded while it was in progress.
func OfTrace(tr engine.TraceEntry) Div {
	class, label := traceLabels(tr.Effect)
	d := Div{
		Tag:     "trace",
		Classes: []string{class},
		Extent: []Div{
			{Tag: "tr-effect", Text: label, Href: traceEffectDoc},
			{Tag: "tr-symbols", Text: traceSymbol(tr.Effect)},
			OfEdge(tr.Edge),
		},
	}
	if tr.Effect.Kind == engine.TraceAlloc {
		if tr.Effect.AllocKind == engine.KindRefCell {
			d.Classes = append(d.Classes, "alloc-kind-refcell")
		} else {
			d.Classes = append(d.Classes, "alloc-kind-thunk")
		}
	}
	if len(tr.Extent) == 0 {
		d.Classes = append(d.Classes, "no-extent")
		return d
	}
	d.Classes = append(d.Classes, "has-extent")
	ext := Div{Tag: "tr-extent"}
	for _, sub := range tr.Extent {
		ext.Extent = append(ext.Extent, OfTrace(sub))
	}
	d.Extent = append(d.Extent, ext)
	return d
}

func traceLabels(e engine.TraceEffect) (class, label string) {
	switch e.Kind {
	case engine.TraceCleanRec:
		return "tr-clean-rec", "CleanRec"
	case engine.TraceCleanEval:
		return "tr-clean-eval", "CleanEval"
	case engine.TraceCleanEdge:
		return "tr-clean-edge", "CleanEdge"
	case engine.TraceDirty:
		return "tr-dirty", "Dirty"
	case engine.TraceRemove:
		return "tr-remove", "Remove"
	case engine.TraceAlloc:
		if e.AllocCase == engine.LocFresh {
			return "tr-alloc-loc-fresh", "Alloc(LocFresh)"
		}
		return "tr-alloc-loc-exists", "Alloc(LocExists)"
	}
	switch e.ForceCase {
	case engine.CompCacheMiss:
		return "tr-force-compcache-miss", "Force(CompCacheMiss)"
	case engine.CompCacheHit:
		return "tr-force-compcache-hit", "Force(CompCacheHit)"
	}
	return "tr-force-refget", "Force(RefGet)"
}

func traceSymbol(e engine.TraceEffect) string {
	if e.Kind != engine.TraceAlloc {
		return ""
	}
	if e.AllocKind == engine.KindRefCell {
		return "▣"
	}
	return "◯"
}

// EdgeForest renders, for every top-level trace entry whose edge has effect
// eff, the alloc or force tree rooted at the entry's target in g.
func EdgeForest(g *engine.Graph, traces []engine.TraceEntry, eff engine.Effect) ([]Div, error) {
	var out []Div
	for _, tr := range traces {
		if tr.Edge.Succ.Effect != eff {
			continue
		}
		var (
			d   Div
			err error
		)
		if eff == engine.EffectAlloc {
			d, err = AllocTree(g, tr.Edge.Succ.Loc)
		} else {
			d, err = ForceTree(g, tr.Edge.Succ.Loc)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
