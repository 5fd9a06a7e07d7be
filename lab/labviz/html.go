package labviz

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"
)

// WriteHTML serializes d and its extent as nested <div> elements. Tag and
// classes become the class attribute; text is escaped.
func WriteHTML(w io.Writer, d Div) error {
	bw := bufio.NewWriter(w)
	writeDiv(bw, d)
	return bw.Flush()
}

// WriteHTMLAll serializes each div in order.
func WriteHTMLAll(w io.Writer, ds []Div) error {
	bw := bufio.NewWriter(w)
	for _, d := range ds {
		writeDiv(bw, d)
	}
	return bw.Flush()
}

// writeDiv ignores write errors; bufio.Writer keeps the first one and
// reports it from Flush.
func writeDiv(w *bufio.Writer, d Div) {
	class := d.Tag
	if len(d.Classes) > 0 {
		class += " " + strings.Join(d.Classes, " ")
	}
	fmt.Fprintf(w, "<div class=\"%s\">", html.EscapeString(class))
	if d.Text != "" {
		if d.Href != "" {
			fmt.Fprintf(w, "<a href=\"%s\">%s</a>", html.EscapeString(d.Href), html.EscapeString(d.Text))
		} else {
			w.WriteString(html.EscapeString(d.Text))
		}
	}
	for _, c := range d.Extent {
		writeDiv(w, c)
	}
	w.WriteString("</div>\n")
}

// pageHead returns the document prologue: embedded styling and the three
// overlay toggles (paths, names, effects).
func pageHead(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { background: #552266; font-family: sans-serif; margin: 0; padding: 0; }
a { text-decoration: none; }
a:hover { text-decoration: underline; }
hr { float: left; clear: both; width: 0; border: none; }
.toolbar { background: #331144; color: #ccaadd; padding: 4px; font-size: 12px; }
.lab-name, .lab-name:visited { color: #ccaadd; margin: 1px; padding: 1px; }
.lab-name:hover { color: white; }
.page-title { font-size: 24px; }
table.summary { margin: 8px; border-collapse: collapse; background: #dddddd; font-size: 13px; }
table.summary td, table.summary th { border: solid 1px #552266; padding: 3px 6px; }
.mismatch { background: #ff8888; }
.lab-traces { font-size: 12px; color: black; border: solid black 1px; padding: 2px; background: yellow; }
.lab-traces:hover { background: white; }
.batch-name { font-size: 16px; border: solid; display: inline; padding: 3px; margin: 3px; float: left; background: #aa88aa; width: 32px; }
.time-ns, .time-ms { font-size: 20px; display: inline; }
.editor { font-size: 14px; border: solid; display: block; padding: 1px; margin: 1px; float: left; width: 10%%; background: #aaaaaa; }
.archivist { font-size: 14px; border: solid; display: block; padding: 1px; margin: 1px; float: left; width: 85%%; background: #dddddd; }
.traces { font-size: 8px; border-top: solid 1px; display: block; float: left; width: 100%%; }
.trace, .force-tree, .alloc-tree { display: inline-block; border: solid 1px red; font-size: 0; margin: 1px; border-radius: 5px; }
.no-extent { padding: 3px; }
.visited { border-style: dashed; }
.tr-effect, .tr-symbols, .path, .name, .oploc { display: none; font-size: 10px; }
.tr-effect { background: white; border-radius: 2px; }
body.show-effects .tr-effect, body.show-effects .tr-symbols { display: inline; }
body.show-paths .path { display: inline-block; border: solid 1px #664466; }
body.show-names .name { display: inline-block; background: white; }
.tr-clean-rec { border-color: #8888ff; }
.tr-clean-eval { border-color: #ff88ff; }
.tr-clean-edge { border-color: #88ffff; }
.tr-dirty { border-color: #ff0000; background: #ffcccc; }
.tr-remove { border-color: #444444; }
.tr-alloc-loc-fresh { border-color: #008800; background: #ccffcc; }
.tr-alloc-loc-exists { border-color: #008800; }
.tr-force-compcache-miss { border-color: #0000ff; background: #ccccff; }
.tr-force-compcache-hit { border-color: #0000ff; }
.tr-force-refget { border-color: #888800; }
.succ-dirty { color: red; }
.archivist-alloc-tree-post-edit, .archivist-force-tree-post-edit,
.archivist-alloc-tree-post-update, .archivist-force-tree-post-update { display: inline-block; vertical-align: top; margin: 2px; }
.archivist-update-sep { display: inline-block; width: 4px; background: black; }
.val-constr, .val-struct, .val-tuple, .val-vec, .val-const, .val-art { display: inline-block; border: solid 1px #888888; font-size: 10px; margin: 1px; }
</style>
<script>
function toggle(c) { document.body.classList.toggle(c); }
</script>
</head>
<body>
<div class="toolbar">
<label><input type="checkbox" onclick="toggle('show-paths')"> paths</label>
<label><input type="checkbox" onclick="toggle('show-names')"> names</label>
<label><input type="checkbox" onclick="toggle('show-effects')"> effects</label>
</div>
`, html.EscapeString(title))
}

const pageTail = "</body>\n</html>\n"
