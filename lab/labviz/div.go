// Package labviz renders reflected engine state (DCG snapshots and effect
// traces) as nested Div trees and writes them out as static HTML reports.
//
// A Div is a restricted <div>: Tag names the reflected datatype, Classes carry
// the sub-case bits used for styling, and Extent holds the reflections of any
// substructure. The renderers never touch live engine state; they only read
// the snapshots captured in each lab.Sample.
package labviz

import (
	"strings"
)

// Div is one node of a rendering tree.
type Div struct {
	Tag     string
	Classes []string
	Extent  []Div
	// Text is written before the extent; empty means no text.
	Text string
	// Href turns Text into a link when set.
	Href string
}

// HasClass reports whether c is one of d's classes.
func (d Div) HasClass(c string) bool {
	for _, x := range d.Classes {
		if x == c {
			return true
		}
	}
	return false
}

// Find returns the first div in d's subtree (d included, preorder) whose tag
// is tag.
func (d Div) Find(tag string) (Div, bool) {
	if d.Tag == tag {
		return d, true
	}
	for _, c := range d.Extent {
		if f, ok := c.Find(tag); ok {
			return f, true
		}
	}
	return Div{}, false
}

// Count returns the number of divs in d's subtree tagged tag.
func (d Div) Count(tag string) int {
	n := 0
	if d.Tag == tag {
		n++
	}
	for _, c := range d.Extent {
		n += c.Count(tag)
	}
	return n
}

// cssClass maps an arbitrary symbol to a string usable as a CSS class.
func cssClass(prefix, s string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
