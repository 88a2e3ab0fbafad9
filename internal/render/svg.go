// Package render serializes a scene element tree into an SVG document.
// The renderer is a pure sink: it reads the tree and writes text, so tests
// can swap it for direct tree inspection.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kafkaviz/kafkaviz-server-go/internal/scene"
)

// SVG renders the tree rooted at root into a standalone SVG document with
// the given viewport. Output is deterministic: attributes are emitted in
// sorted order and floats with fixed precision.
func SVG(root *scene.Element, width, height float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s" width="%s" height="%s">`,
		num(width), num(height), num(width), num(height))
	b.WriteString("\n")
	if root != nil {
		writeElement(&b, root, 1)
	}
	b.WriteString("</svg>\n")
	return b.String()
}

func writeElement(b *strings.Builder, el *scene.Element, depth int) {
	// Fully transparent subtrees are skipped rather than emitted.
	if el.PropOr("opacity", 1) <= 0 {
		return
	}

	indent := strings.Repeat("  ", depth)
	switch el.Kind() {
	case scene.KindGroup:
		b.WriteString(indent)
		b.WriteString("<g")
		writeTransform(b, el)
		writeCommon(b, el, "x", "y", "scale")
		b.WriteString(">\n")
		for _, child := range el.Children() {
			writeElement(b, child, depth+1)
		}
		b.WriteString(indent)
		b.WriteString("</g>\n")

	case scene.KindRect:
		b.WriteString(indent)
		b.WriteString("<rect")
		writeProp(b, "x", el.PropOr("x", 0))
		writeProp(b, "y", el.PropOr("y", 0))
		writeProp(b, "width", el.PropOr("width", 0))
		writeProp(b, "height", el.PropOr("height", 0))
		writeCommon(b, el, "x", "y", "width", "height")
		b.WriteString("/>\n")

	case scene.KindCircle:
		b.WriteString(indent)
		b.WriteString("<circle")
		writeProp(b, "cx", el.PropOr("x", 0))
		writeProp(b, "cy", el.PropOr("y", 0))
		writeProp(b, "r", el.PropOr("r", 0)*el.PropOr("scale", 1))
		writeCommon(b, el, "x", "y", "r", "scale")
		b.WriteString("/>\n")

	case scene.KindLine:
		b.WriteString(indent)
		b.WriteString("<line")
		writeProp(b, "x1", el.PropOr("x1", 0))
		writeProp(b, "y1", el.PropOr("y1", 0))
		writeProp(b, "x2", el.PropOr("x2", 0))
		writeProp(b, "y2", el.PropOr("y2", 0))
		writeCommon(b, el, "x1", "y1", "x2", "y2")
		b.WriteString("/>\n")

	case scene.KindText:
		b.WriteString(indent)
		b.WriteString("<text")
		writeProp(b, "x", el.PropOr("x", 0))
		writeProp(b, "y", el.PropOr("y", 0))
		writeCommon(b, el, "x", "y")
		b.WriteString(">")
		b.WriteString(escape(el.Text()))
		b.WriteString("</text>\n")

	case scene.KindPath:
		b.WriteString(indent)
		b.WriteString("<path")
		writeCommon(b, el)
		b.WriteString("/>\n")
	}
}

// writeTransform emits a group's translate/scale transform.
func writeTransform(b *strings.Builder, el *scene.Element) {
	x := el.PropOr("x", 0)
	y := el.PropOr("y", 0)
	scale := el.PropOr("scale", 1)

	if x == 0 && y == 0 && scale == 1 {
		return
	}
	b.WriteString(` transform="`)
	if x != 0 || y != 0 {
		fmt.Fprintf(b, "translate(%s %s)", num(x), num(y))
	}
	if scale != 1 {
		if x != 0 || y != 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(b, "scale(%s)", num(scale))
	}
	b.WriteString(`"`)
}

// writeCommon emits id, opacity and the string attributes in sorted order,
// skipping the geometry props already written.
func writeCommon(b *strings.Builder, el *scene.Element, written ...string) {
	if id := el.ID(); id != "" {
		fmt.Fprintf(b, ` id="%s"`, escape(id))
	}
	if opacity := el.PropOr("opacity", 1); opacity < 1 {
		writeProp(b, "opacity", opacity)
	}

	skip := make(map[string]bool, len(written)+1)
	for _, name := range written {
		skip[name] = true
	}
	skip["opacity"] = true

	attrs := el.Attrs()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if attrs[name] == "" || name == "entity" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, ` %s="%s"`, name, escape(attrs[name]))
	}
}

func writeProp(b *strings.Builder, name string, v float64) {
	fmt.Fprintf(b, ` %s="%s"`, name, num(v))
}

// num formats a coordinate with two decimals, trimming trailing zeros.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func escape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
