package labviz

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/inclab/lab/engine"
)

func nm(s string) engine.Name { return engine.NameOfString(s) }

// traced runs a memoized computation that allocates a cell and an inner
// thunk, forcing the cell twice, and returns the recorded top-level
// trace and a graph snapshot.
func traced(t *testing.T) ([]engine.TraceEntry, *engine.Graph) {
	t.Helper()
	ec := engine.NewExecutionContext()
	ec.Use(engine.NewDCG())
	ec.SetTracing(true)
	got := engine.Memo(ec, nm("outer"), 2, func(x int) int {
		c := engine.Cell(ec, nm("c"), x)
		inner := engine.Thunk(ec, nm("inner"), x, func(int) int { return engine.Force(ec, c) * 10 })
		return engine.Force(ec, inner) + engine.Force(ec, c)
	})
	require.Equal(t, 22, got)
	return ec.TakeTrace(), ec.ReflectGraph()
}

func TestOfSucc_Classes(t *testing.T) {
	tests := []struct {
		name string
		succ engine.Succ
		want []string
	}{
		{"alloc clean", engine.Succ{Effect: engine.EffectAlloc}, []string{"succ-alloc", "succ-not-dirty"}},
		{"force dirty", engine.Succ{Effect: engine.EffectForce, Dirty: true}, []string{"succ-force", "succ-dirty"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := OfSucc(tt.succ)
			assert.Equal(t, "succ", d.Tag)
			assert.Equal(t, tt.want, d.Classes)
			require.Len(t, d.Extent, 1)
			assert.Equal(t, "loc", d.Extent[0].Tag)
		})
	}
}

func TestOfLoc_PathThenName(t *testing.T) {
	loc := engine.Loc{Path: engine.Path{nm("compute"), nm("tree_of_list")}, Name: nm("(3,1)")}

	d := OfLoc(loc)

	require.Len(t, d.Extent, 2)
	assert.Equal(t, "path", d.Extent[0].Tag)
	require.Len(t, d.Extent[0].Extent, 2)
	assert.Equal(t, "compute", d.Extent[0].Extent[0].Text)
	assert.Equal(t, "name", d.Extent[1].Tag)
	assert.Equal(t, "(3,1)", d.Extent[1].Text)
	assert.Equal(t, []string{"n-_3_1_"}, d.Extent[1].Classes)
}

func TestOfValue_MirrorsShapeAndStopsAtArt(t *testing.T) {
	// GIVEN a constructor holding a constant, a vector and an art
	loc := engine.Loc{Name: nm("5")}
	v := engine.ValConstr{Name: nm("Cons"), Vals: []engine.Val{
		engine.ValNat{N: 7},
		engine.ValVec{Vals: []engine.Val{engine.ValString{S: "x"}}},
		engine.ValArt{Loc: loc},
	}}

	// WHEN rendered
	d := OfValue(v)

	// THEN one node per sub-value, and the art shows only its location
	assert.Equal(t, "val-constr", d.Tag)
	assert.Equal(t, []string{"constr-Cons"}, d.Classes)
	require.Len(t, d.Extent, 3)
	assert.Equal(t, "7", d.Extent[0].Text)
	assert.Equal(t, []string{"vec-1"}, d.Extent[1].Classes)
	assert.Equal(t, `"x"`, d.Extent[1].Extent[0].Text)
	art := d.Extent[2]
	assert.Equal(t, "val-art", art.Tag)
	require.Len(t, art.Extent, 1)
	assert.Equal(t, "loc", art.Extent[0].Tag)
	assert.Equal(t, "val-TODO", OfValue(engine.ValTODO{}).Tag)
}

func TestOfTrace_ClassifiesEffects(t *testing.T) {
	// GIVEN the trace of a memoized computation
	traces, _ := traced(t)

	// WHEN the top-level entries are rendered
	require.Len(t, traces, 2)
	alloc := OfTrace(traces[0])
	force := OfTrace(traces[1])

	// THEN the thunk allocation is a fresh leaf
	assert.Equal(t, []string{"tr-alloc-loc-fresh", "alloc-kind-thunk", "no-extent"}, alloc.Classes)
	sym, ok := alloc.Find("tr-symbols")
	require.True(t, ok)
	assert.Equal(t, "◯", sym.Text)

	// AND the force is a cache miss whose extent holds the nested effects
	assert.Equal(t, []string{"tr-force-compcache-miss", "has-extent"}, force.Classes)
	eff, ok := force.Find("tr-effect")
	require.True(t, ok)
	assert.Equal(t, "Force(CompCacheMiss)", eff.Text)
	ext, ok := force.Find("tr-extent")
	require.True(t, ok)
	require.Len(t, ext.Extent, 4)
	assert.True(t, ext.Extent[0].HasClass("alloc-kind-refcell"))
	assert.True(t, ext.Extent[0].HasClass("tr-alloc-loc-fresh"))
	assert.True(t, ext.Extent[2].HasClass("tr-force-compcache-miss"))
	assert.True(t, ext.Extent[3].HasClass("tr-force-refget"))
	assert.True(t, ext.Extent[3].HasClass("no-extent"))
}

func TestOfTrace_RootEdgeHasNoSource(t *testing.T) {
	traces, _ := traced(t)

	oploc, ok := OfTrace(traces[0]).Find("oploc")

	require.True(t, ok)
	assert.Empty(t, oploc.Extent)
	assert.True(t, oploc.HasClass("root"))
}

func TestAllocAndForceTrees(t *testing.T) {
	_, g := traced(t)
	outer := engine.Loc{Name: nm("outer")}

	t.Run("alloc", func(t *testing.T) {
		d, err := AllocTree(g, outer)
		require.NoError(t, err)
		// outer allocated c and inner, neither allocated anything
		assert.Equal(t, 3, d.Count("alloc-tree"))
		assert.False(t, d.HasClass("no-extent"))
		assert.True(t, d.Extent[1].HasClass("no-extent"))
	})

	t.Run("force", func(t *testing.T) {
		d, err := ForceTree(g, outer)
		require.NoError(t, err)
		// outer forced inner (which forced c) and then c again
		assert.Equal(t, 4, d.Count("force-tree"))
		require.Len(t, d.Extent, 3)
		assert.True(t, d.Extent[2].HasClass("visited"))
	})
}

func TestEdgeTree_DanglingLoc(t *testing.T) {
	g := &engine.Graph{Table: map[string]*engine.GraphNode{}}
	a := engine.Loc{Name: nm("a")}
	b := engine.Loc{Name: nm("b")}
	g.Table[a.Key()] = &engine.GraphNode{Loc: a, Succs: []engine.Succ{{Loc: b, Effect: engine.EffectForce}}}

	_, err := ForceTree(g, a)

	assert.True(t, errors.Is(err, ErrDanglingLoc))
	assert.Contains(t, err.Error(), "b")
}

func TestEdgeForest_OnlyMatchingRoots(t *testing.T) {
	traces, g := traced(t)

	allocs, err := EdgeForest(g, traces, engine.EffectAlloc)
	require.NoError(t, err)
	forces, err := EdgeForest(g, traces, engine.EffectForce)
	require.NoError(t, err)

	require.Len(t, allocs, 1)
	require.Len(t, forces, 1)
	assert.Equal(t, "alloc-tree", allocs[0].Tag)
	assert.Equal(t, "force-tree", forces[0].Tag)
}

func TestOfValue_StructAndTuple(t *testing.T) {
	// GIVEN a record with one field and a pair
	rec := engine.ValStruct{Name: nm("Demand"), Fields: []engine.Field{{Name: nm("n"), Val: engine.ValNat{N: 3}}}}
	pair := engine.ValTuple{Vals: []engine.Val{rec, engine.ValString{S: "rest"}}}

	// WHEN rendered
	d := OfValue(pair)

	// THEN the tuple holds the struct, whose field pairs a name with a value
	assert.Equal(t, "val-tuple", d.Tag)
	assert.Equal(t, []string{"tuple-2"}, d.Classes)
	require.Len(t, d.Extent, 2)
	st := d.Extent[0]
	assert.Equal(t, "val-struct", st.Tag)
	assert.Equal(t, []string{"struct-Demand"}, st.Classes)
	assert.Equal(t, "Demand", st.Text)
	require.Len(t, st.Extent, 1)
	field := st.Extent[0]
	assert.Equal(t, "val-field", field.Tag)
	require.Len(t, field.Extent, 2)
	assert.Equal(t, "name", field.Extent[0].Tag)
	assert.Equal(t, "n", field.Extent[0].Text)
	assert.Equal(t, "3", field.Extent[1].Text)
	assert.Equal(t, `"rest"`, d.Extent[1].Text)
}

func TestWriteHTMLAll_WritesEachInOrder(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteHTMLAll(&buf, []Div{{Tag: "first"}, {Tag: "second"}}))

	assert.Equal(t, "<div class=\"first\"></div>\n<div class=\"second\"></div>\n", buf.String())
}

func TestWriteHTML_EscapesAndNests(t *testing.T) {
	d := Div{
		Tag:     "val-const",
		Classes: []string{"const-x"},
		Text:    `<b>"hi"</b>`,
		Extent:  []Div{{Tag: "tr-effect", Text: "Dirty", Href: "https://example.com/?a=1&b=2"}},
	}
	var buf bytes.Buffer

	require.NoError(t, WriteHTML(&buf, d))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<div class="val-const const-x">&lt;b&gt;&#34;hi&#34;&lt;/b&gt;`))
	assert.Contains(t, out, `<a href="https://example.com/?a=1&amp;b=2">Dirty</a>`)
	assert.Equal(t, 2, strings.Count(out, "</div>"))
}

func TestPageHead_HasThreeToggles(t *testing.T) {
	head := pageHead("a<b")

	assert.Contains(t, head, "<title>a&lt;b</title>")
	for _, c := range []string{"show-paths", "show-names", "show-effects"} {
		assert.Contains(t, head, "toggle('"+c+"')")
	}
}
