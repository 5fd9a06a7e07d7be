package engine

import (
	"fmt"
	"hash/fnv"
	"math/bits"
	"strconv"
	"strings"
)

// Name is a symbolic identifier for a location in the DCG.
// Two names are the same location component iff their symbols are equal.
type Name struct {
	sym string
}

// NameOfString creates a name from a string symbol.
func NameOfString(s string) Name { return Name{sym: s} }

// NameOfInt creates a name from an integer counter.
func NameOfInt(i int) Name { return Name{sym: strconv.Itoa(i)} }

// NamePair combines two names into one.
func NamePair(a, b Name) Name { return Name{sym: "(" + a.sym + "," + b.sym + ")"} }

// Fork derives two distinct names from n, conventionally used for the
// two halves of a structure that both need a location of their own.
func (n Name) Fork() (Name, Name) {
	return Name{sym: n.sym + ".L"}, Name{sym: n.sym + ".R"}
}

// String returns the symbol of the name.
func (n Name) String() string { return n.sym }

// IsZero reports whether n is the empty name.
func (n Name) IsZero() bool { return n.sym == "" }

// Hash returns a 64-bit FNV-1a hash of the name symbol.
func (n Name) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(n.sym))
	return h.Sum64()
}

// Level returns a deterministic pseudo-random level for the name: the
// number of trailing zero bits of its hash, capped at 31. Levels are
// geometrically distributed, which keeps level-ordered trees balanced in
// expectation while staying stable across edits.
func (n Name) Level() int {
	lev := bits.TrailingZeros64(n.Hash())
	if lev > 31 {
		lev = 31
	}
	return lev
}

// Path is the namespace prefix under which locations are allocated.
type Path []Name

// Extend returns a new path with n appended. p is not modified.
func (p Path) Extend(n Name) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, n)
}

// String renders the path as names separated by '/'.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = n.sym
	}
	return strings.Join(parts, "/")
}

// Loc identifies one node of the DCG.
type Loc struct {
	Path Path
	Name Name
}

// Key returns the table key of the location.
func (l Loc) Key() string {
	return l.Path.String() + "#" + l.Name.sym
}

// String renders the location for display.
func (l Loc) String() string {
	if len(l.Path) == 0 {
		return l.Name.sym
	}
	return fmt.Sprintf("%s/%s", l.Path, l.Name.sym)
}
