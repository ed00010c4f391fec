package main

import (
	"fmt"
	"io"
	"strings"

	"docxodus/wml"
)

// dumpTree prints an indented outline of the typed document tree.
func dumpTree(w io.Writer, doc *wml.Document) {
	for i := range doc.Body {
		dumpBlock(w, &doc.Body[i], 0)
	}
}

func indent(w io.Writer, depth int) {
	io.WriteString(w, strings.Repeat("  ", depth))
}

func dumpBlock(w io.Writer, b *wml.Block, depth int) {
	indent(w, depth)
	switch b.Kind {
	case wml.BlockParagraph:
		p := b.Paragraph
		fmt.Fprintf(w, "paragraph style=%q outline=%d inlines=%d\n", p.Props.StyleID, p.Props.OutlineLevel, len(p.Content))
		for i := range p.Content {
			dumpInline(w, &p.Content[i], depth+1)
		}
	case wml.BlockTable:
		t := b.Table
		fmt.Fprintf(w, "table style=%q columns=%d rows=%d\n", t.Props.StyleID, len(t.Grid), len(t.Rows))
		for ri := range t.Rows {
			indent(w, depth+1)
			fmt.Fprintf(w, "row header=%t cells=%d\n", t.Rows[ri].Props.Header, len(t.Rows[ri].Cells))
			for ci := range t.Rows[ri].Cells {
				c := &t.Rows[ri].Cells[ci]
				indent(w, depth+2)
				fmt.Fprintf(w, "cell span=%d vmerge=%d blocks=%d\n", c.Props.GridSpan, c.Props.VMerge, len(c.Content))
				for bi := range c.Content {
					dumpBlock(w, &c.Content[bi], depth+3)
				}
			}
		}
	case wml.BlockMarker:
		dumpMarker(w, b.Marker)
	}
}

func dumpMarker(w io.Writer, m *wml.Marker) {
	if m.Name != "" {
		fmt.Fprintf(w, "marker %s id=%s name=%q\n", m.Kind, m.ID, m.Name)
		return
	}
	fmt.Fprintf(w, "marker %s id=%s\n", m.Kind, m.ID)
}

func dumpInline(w io.Writer, in *wml.Inline, depth int) {
	indent(w, depth)
	switch in.Kind {
	case wml.InlineRun:
		fmt.Fprintf(w, "run %q\n", in.Run.AsText())
	case wml.InlineHyperlink:
		h := in.Hyperlink
		fmt.Fprintf(w, "hyperlink rel=%q anchor=%q inlines=%d\n", h.RelID, h.Anchor, len(h.Content))
		for i := range h.Content {
			dumpInline(w, &h.Content[i], depth+1)
		}
	case wml.InlineRevision:
		r := in.Revision
		fmt.Fprintf(w, "revision %s author=%q inlines=%d\n", r.Kind, r.Author, len(r.Content))
		for i := range r.Content {
			dumpInline(w, &r.Content[i], depth+1)
		}
	case wml.InlineMarker:
		dumpMarker(w, in.Marker)
	}
}
