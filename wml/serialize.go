package wml

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
)

// Serialization of the typed tree back into a part document. Only what the
// model carries is written - formatting we do not parse does not survive a
// round trip, which is acceptable for the annotated copies this engine
// produces.

const wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// BuildDocumentXML renders the typed tree as a main document part.
func BuildDocumentXML(d *Document) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", wmlNamespace)
	body := root.CreateElement("w:body")

	for i := range d.Body {
		writeBlock(body, &d.Body[i])
	}
	return doc
}

func writeBlock(parent *etree.Element, blk *Block) {
	switch blk.Kind {
	case BlockParagraph:
		if blk.Paragraph != nil {
			writeParagraph(parent, blk.Paragraph)
		}
	case BlockTable:
		if blk.Table != nil {
			writeTable(parent, blk.Table)
		}
	case BlockMarker:
		if blk.Marker != nil {
			writeMarker(parent, blk.Marker)
		}
	}
}

func writeMarker(parent *etree.Element, m *Marker) {
	var el *etree.Element
	switch m.Kind {
	case MarkerBookmarkStart:
		el = parent.CreateElement("w:bookmarkStart")
		el.CreateAttr("w:name", m.Name)
	case MarkerBookmarkEnd:
		el = parent.CreateElement("w:bookmarkEnd")
	case MarkerCommentRangeStart:
		el = parent.CreateElement("w:commentRangeStart")
	case MarkerCommentRangeEnd:
		el = parent.CreateElement("w:commentRangeEnd")
	default:
		return
	}
	el.CreateAttr("w:id", m.ID)
}

func writeParagraph(parent *etree.Element, p *Paragraph) {
	el := parent.CreateElement("w:p")
	writeParagraphProperties(el, &p.Props)
	for i := range p.Content {
		writeInline(el, &p.Content[i])
	}
}

func writeInline(parent *etree.Element, in *Inline) {
	switch in.Kind {
	case InlineRun:
		if in.Run != nil {
			writeRun(parent, in.Run, false)
		}
	case InlineHyperlink:
		if in.Hyperlink != nil {
			el := parent.CreateElement("w:hyperlink")
			if in.Hyperlink.RelID != "" {
				el.CreateAttr("r:id", in.Hyperlink.RelID)
			}
			if in.Hyperlink.Anchor != "" {
				el.CreateAttr("w:anchor", in.Hyperlink.Anchor)
			}
			if in.Hyperlink.Tooltip != "" {
				el.CreateAttr("w:tooltip", in.Hyperlink.Tooltip)
			}
			for i := range in.Hyperlink.Content {
				writeInline(el, &in.Hyperlink.Content[i])
			}
		}
	case InlineRevision:
		if in.Revision != nil {
			writeRevision(parent, in.Revision)
		}
	case InlineMarker:
		if in.Marker != nil {
			writeMarker(parent, in.Marker)
		}
	}
}

func writeRevision(parent *etree.Element, rev *Revision) {
	el := parent.CreateElement("w:" + string(rev.Kind))
	if rev.Author != "" {
		el.CreateAttr("w:author", rev.Author)
	}
	if !rev.Date.IsZero() {
		el.CreateAttr("w:date", rev.Date.Format(time.RFC3339))
	}
	deleted := rev.Kind == RevisionDelete || rev.Kind == RevisionMoveFrom
	for i := range rev.Content {
		in := &rev.Content[i]
		if in.Kind == InlineRun && in.Run != nil {
			writeRun(el, in.Run, deleted)
			continue
		}
		writeInline(el, in)
	}
}

func writeRun(parent *etree.Element, r *Run, deleted bool) {
	el := parent.CreateElement("w:r")
	writeRunProperties(el, &r.Props)
	for _, c := range r.Content {
		switch c.Kind {
		case RunText:
			tag := "w:t"
			if deleted {
				tag = "w:delText"
			}
			t := el.CreateElement(tag)
			t.CreateAttr("xml:space", "preserve")
			t.SetText(c.Text)
		case RunBreak:
			br := el.CreateElement("w:br")
			if c.Break != BreakLine {
				br.CreateAttr("w:type", string(c.Break))
			}
		case RunTab:
			el.CreateElement("w:tab")
		case RunCommentReference:
			ref := el.CreateElement("w:commentReference")
			ref.CreateAttr("w:id", c.CommentID)
		case RunImage:
			if c.Image != nil {
				writeImage(el, c.Image)
			}
		}
	}
}

func writeImage(parent *etree.Element, img *Image) {
	drawing := parent.CreateElement("w:drawing")
	inline := drawing.CreateElement("wp:inline")
	ext := inline.CreateElement("wp:extent")
	ext.CreateAttr("cx", strconv.FormatInt(img.WidthEMU, 10))
	ext.CreateAttr("cy", strconv.FormatInt(img.HeightEMU, 10))
	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("name", img.Name)
	if img.Alt != "" {
		docPr.CreateAttr("descr", img.Alt)
	}
	blip := inline.CreateElement("a:blip")
	blip.CreateAttr("r:embed", img.RelID)
}

func writeRunProperties(parent *etree.Element, props *RunProperties) {
	empty := RunProperties{}
	if *props == empty {
		return
	}
	el := parent.CreateElement("w:rPr")
	if props.Bold {
		el.CreateElement("w:b")
	}
	if props.Italic {
		el.CreateElement("w:i")
	}
	if props.Underline {
		el.CreateElement("w:u").CreateAttr("w:val", "single")
	}
	if props.Strike {
		el.CreateElement("w:strike")
	}
	if props.FontFamily != "" {
		fonts := el.CreateElement("w:rFonts")
		fonts.CreateAttr("w:ascii", props.FontFamily)
		fonts.CreateAttr("w:hAnsi", props.FontFamily)
	}
	if props.SizeHalfPoints != 0 {
		el.CreateElement("w:sz").CreateAttr("w:val", strconv.Itoa(props.SizeHalfPoints))
	}
	if props.Color != "" {
		el.CreateElement("w:color").CreateAttr("w:val", props.Color)
	}
	if props.Highlight != "" {
		el.CreateElement("w:highlight").CreateAttr("w:val", props.Highlight)
	}
	if props.VertAlign != "" && props.VertAlign != VertAlignBaseline {
		el.CreateElement("w:vertAlign").CreateAttr("w:val", string(props.VertAlign))
	}
	if !props.Lang.IsRoot() {
		el.CreateElement("w:lang").CreateAttr("w:val", props.Lang.String())
	}
}

func writeParagraphProperties(parent *etree.Element, props *ParagraphProperties) {
	if props.StyleID == "" && props.Justification == "" && props.OutlineLevel == 0 &&
		props.Indent == (Indentation{}) && len(props.Tabs) == 0 &&
		props.SpacingBeforeTwips == 0 && props.SpacingAfterTwips == 0 {
		return
	}
	el := parent.CreateElement("w:pPr")
	if props.StyleID != "" {
		el.CreateElement("w:pStyle").CreateAttr("w:val", props.StyleID)
	}
	if len(props.Tabs) > 0 {
		tabs := el.CreateElement("w:tabs")
		for _, stop := range props.Tabs {
			tab := tabs.CreateElement("w:tab")
			tab.CreateAttr("w:val", string(stop.Alignment))
			tab.CreateAttr("w:pos", strconv.Itoa(stop.Position))
			if stop.Leader != "" && stop.Leader != LeaderNone {
				tab.CreateAttr("w:leader", string(stop.Leader))
			}
		}
	}
	if props.SpacingBeforeTwips != 0 || props.SpacingAfterTwips != 0 {
		spacing := el.CreateElement("w:spacing")
		if props.SpacingBeforeTwips != 0 {
			spacing.CreateAttr("w:before", strconv.Itoa(props.SpacingBeforeTwips))
		}
		if props.SpacingAfterTwips != 0 {
			spacing.CreateAttr("w:after", strconv.Itoa(props.SpacingAfterTwips))
		}
	}
	if props.Indent != (Indentation{}) {
		ind := el.CreateElement("w:ind")
		if props.Indent.Left != 0 {
			ind.CreateAttr("w:left", strconv.Itoa(props.Indent.Left))
		}
		if props.Indent.Right != 0 {
			ind.CreateAttr("w:right", strconv.Itoa(props.Indent.Right))
		}
		if props.Indent.FirstLine != 0 {
			ind.CreateAttr("w:firstLine", strconv.Itoa(props.Indent.FirstLine))
		}
		if props.Indent.Hanging != 0 {
			ind.CreateAttr("w:hanging", strconv.Itoa(props.Indent.Hanging))
		}
	}
	if props.Justification != "" {
		el.CreateElement("w:jc").CreateAttr("w:val", props.Justification)
	}
	if props.OutlineLevel > 0 {
		el.CreateElement("w:outlineLvl").CreateAttr("w:val", strconv.Itoa(props.OutlineLevel-1))
	}
}

func writeTable(parent *etree.Element, t *Table) {
	el := parent.CreateElement("w:tbl")

	pr := el.CreateElement("w:tblPr")
	if t.Props.StyleID != "" {
		pr.CreateElement("w:tblStyle").CreateAttr("w:val", t.Props.StyleID)
	}
	if t.Props.WidthTwips != 0 {
		w := pr.CreateElement("w:tblW")
		w.CreateAttr("w:w", strconv.Itoa(t.Props.WidthTwips))
		w.CreateAttr("w:type", "dxa")
	}
	writeBorders(pr, "w:tblBorders", &t.Props.Borders)

	if len(t.Grid) > 0 {
		grid := el.CreateElement("w:tblGrid")
		for _, w := range t.Grid {
			grid.CreateElement("w:gridCol").CreateAttr("w:w", strconv.Itoa(w))
		}
	}

	for i := range t.Rows {
		row := &t.Rows[i]
		tr := el.CreateElement("w:tr")
		if row.Props.Header || row.Props.HeightTwips != 0 {
			trPr := tr.CreateElement("w:trPr")
			if row.Props.Header {
				trPr.CreateElement("w:tblHeader")
			}
			if row.Props.HeightTwips != 0 {
				trPr.CreateElement("w:trHeight").CreateAttr("w:val", strconv.Itoa(row.Props.HeightTwips))
			}
		}
		for j := range row.Cells {
			writeCell(tr, &row.Cells[j])
		}
	}
}

func writeCell(parent *etree.Element, cell *Cell) {
	tc := parent.CreateElement("w:tc")

	tcPr := tc.CreateElement("w:tcPr")
	if cell.Props.WidthTwips != 0 {
		w := tcPr.CreateElement("w:tcW")
		w.CreateAttr("w:w", strconv.Itoa(cell.Props.WidthTwips))
		w.CreateAttr("w:type", "dxa")
	}
	if cell.Props.GridSpan > 1 {
		tcPr.CreateElement("w:gridSpan").CreateAttr("w:val", strconv.Itoa(cell.Props.GridSpan))
	}
	switch cell.Props.VMerge {
	case MergeRestart:
		tcPr.CreateElement("w:vMerge").CreateAttr("w:val", "restart")
	case MergeContinue:
		tcPr.CreateElement("w:vMerge")
	}
	writeBorders(tcPr, "w:tcBorders", &cell.Props.Borders)
	if cell.Props.Shading != "" {
		shd := tcPr.CreateElement("w:shd")
		shd.CreateAttr("w:val", "clear")
		shd.CreateAttr("w:fill", cell.Props.Shading)
	}
	if cell.Props.VAlign != "" {
		tcPr.CreateElement("w:vAlign").CreateAttr("w:val", cell.Props.VAlign)
	}

	for i := range cell.Content {
		writeBlock(tc, &cell.Content[i])
	}
	// cells are required to end with a paragraph
	if len(cell.Content) == 0 {
		tc.CreateElement("w:p")
	}
}

func writeBorders(parent *etree.Element, tag string, borders *CellBorders) {
	if borders.Top == nil && borders.Left == nil && borders.Bottom == nil && borders.Right == nil {
		return
	}
	el := parent.CreateElement(tag)
	writeBorderSide(el, "w:top", borders.Top)
	writeBorderSide(el, "w:left", borders.Left)
	writeBorderSide(el, "w:bottom", borders.Bottom)
	writeBorderSide(el, "w:right", borders.Right)
}

func writeBorderSide(parent *etree.Element, tag string, side *BorderSide) {
	if side == nil {
		return
	}
	el := parent.CreateElement(tag)
	el.CreateAttr("w:val", string(side.Style))
	el.CreateAttr("w:sz", strconv.Itoa(side.Size))
	el.CreateAttr("w:color", side.Color)
	if side.Space != 0 {
		el.CreateAttr("w:space", strconv.Itoa(side.Space))
	}
}
