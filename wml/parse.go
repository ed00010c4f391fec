package wml

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// XML parsing functions for the WordprocessingML main document part.
// We want exhaustive parsing - it is not very effective but ensures full
// correctness, gives us detailed debug output and the result is easy to
// extend when more of the schema needs to be covered.

// attrValue returns the value of an attribute matching the local name,
// ignoring the namespace prefix. Parts in the wild come with varying
// prefixes and occasionally with none at all.
func attrValue(el *etree.Element, name, def string) string {
	for _, a := range el.Attr {
		if a.Key == name {
			return a.Value
		}
	}
	return def
}

func attrInt(el *etree.Element, name string, def int) int {
	v := attrValue(el, name, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func attrBool(el *etree.Element) bool {
	switch attrValue(el, "val", "") {
	case "false", "0", "none", "off":
		return false
	}
	return true
}

// ParseDocumentXML walks the etree DOM of the main document part and
// constructs a strongly typed representation. A document without a root or a
// body is malformed input: it degrades to an empty placeholder document
// instead of failing the conversion.
func ParseDocumentXML(doc *etree.Document, log *zap.Logger) *Document {
	d := &Document{}

	if doc == nil || doc.Root() == nil {
		log.Warn("Document part has no root element, using empty placeholder")
		return d
	}
	root := doc.Root()
	if root.Tag != "document" {
		log.Warn("Unexpected root element, using empty placeholder", zap.String("tag", root.Tag))
		return d
	}

	body := root.SelectElement("body")
	if body == nil {
		for _, child := range root.ChildElements() {
			if child.Tag == "body" {
				body = child
				break
			}
		}
	}
	if body == nil {
		log.Warn("Document part has no body, using empty placeholder")
		return d
	}

	for _, child := range body.ChildElements() {
		if blk, ok := parseBlock(child, log); ok {
			d.Body = append(d.Body, blk)
		}
	}
	return d
}

func parseBlock(el *etree.Element, log *zap.Logger) (Block, bool) {
	switch el.Tag {
	case "p":
		return Block{Kind: BlockParagraph, Paragraph: parseParagraph(el, log)}, true
	case "tbl":
		return Block{Kind: BlockTable, Table: parseTable(el, log)}, true
	case "bookmarkStart", "bookmarkEnd", "commentRangeStart", "commentRangeEnd":
		return Block{Kind: BlockMarker, Marker: parseMarker(el)}, true
	case "sectPr":
		// section properties carry page layout we do not render
		return Block{}, false
	default:
		log.Debug("Unexpected tag in body, ignoring", zap.String("tag", el.Tag))
		return Block{}, false
	}
}

func parseMarker(el *etree.Element) *Marker {
	m := &Marker{ID: attrValue(el, "id", "")}
	switch el.Tag {
	case "bookmarkStart":
		m.Kind = MarkerBookmarkStart
		m.Name = attrValue(el, "name", "")
	case "bookmarkEnd":
		m.Kind = MarkerBookmarkEnd
	case "commentRangeStart":
		m.Kind = MarkerCommentRangeStart
	case "commentRangeEnd":
		m.Kind = MarkerCommentRangeEnd
	}
	return m
}

func parseParagraph(el *etree.Element, log *zap.Logger) *Paragraph {
	p := &Paragraph{}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "pPr":
			p.Props = parseParagraphProperties(child, log)
		default:
			if in, ok := parseInline(child, log); ok {
				p.Content = append(p.Content, in)
			}
		}
	}
	return p
}

func parseInline(el *etree.Element, log *zap.Logger) (Inline, bool) {
	switch el.Tag {
	case "r":
		return Inline{Kind: InlineRun, Run: parseRun(el, log)}, true
	case "hyperlink":
		return Inline{Kind: InlineHyperlink, Hyperlink: parseHyperlink(el, log)}, true
	case "ins", "del", "moveFrom", "moveTo":
		return Inline{Kind: InlineRevision, Revision: parseRevision(el, log)}, true
	case "bookmarkStart", "bookmarkEnd", "commentRangeStart", "commentRangeEnd":
		return Inline{Kind: InlineMarker, Marker: parseMarker(el)}, true
	case "proofErr", "lastRenderedPageBreak":
		return Inline{}, false
	default:
		log.Debug("Unexpected inline tag, ignoring", zap.String("tag", el.Tag))
		return Inline{}, false
	}
}

func parseRevision(el *etree.Element, log *zap.Logger) *Revision {
	rev := &Revision{
		Author: attrValue(el, "author", ""),
	}
	switch el.Tag {
	case "ins":
		rev.Kind = RevisionInsert
	case "del":
		rev.Kind = RevisionDelete
	case "moveFrom":
		rev.Kind = RevisionMoveFrom
	case "moveTo":
		rev.Kind = RevisionMoveTo
	}
	if v := attrValue(el, "date", ""); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			rev.Date = t
		}
	}
	for _, child := range el.ChildElements() {
		if in, ok := parseInline(child, log); ok {
			rev.Content = append(rev.Content, in)
		}
	}
	return rev
}

func parseHyperlink(el *etree.Element, log *zap.Logger) *Hyperlink {
	h := &Hyperlink{
		RelID:   attrValue(el, "id", ""),
		Anchor:  attrValue(el, "anchor", ""),
		Tooltip: attrValue(el, "tooltip", ""),
	}
	for _, child := range el.ChildElements() {
		if in, ok := parseInline(child, log); ok {
			h.Content = append(h.Content, in)
		}
	}
	return h
}

func parseRun(el *etree.Element, log *zap.Logger) *Run {
	r := &Run{}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "rPr":
			r.Props = parseRunProperties(child, log)
		case "t", "delText", "instrText":
			r.Content = append(r.Content, RunContent{Kind: RunText, Text: child.Text()})
		case "br":
			br := BreakKind(attrValue(child, "type", string(BreakLine)))
			r.Content = append(r.Content, RunContent{Kind: RunBreak, Break: br})
		case "cr":
			r.Content = append(r.Content, RunContent{Kind: RunBreak, Break: BreakLine})
		case "tab":
			r.Content = append(r.Content, RunContent{Kind: RunTab})
		case "drawing", "pict":
			if img := parseImage(child); img != nil {
				r.Content = append(r.Content, RunContent{Kind: RunImage, Image: img})
			}
		case "commentReference":
			r.Content = append(r.Content, RunContent{Kind: RunCommentReference, CommentID: attrValue(child, "id", "")})
		case "rsid", "noBreakHyphen", "softHyphen":
			// no visible content
		default:
			log.Debug("Unexpected tag in run, ignoring", zap.String("tag", child.Tag))
		}
	}
	return r
}

// parseImage digs through the drawing markup for the relationship reference
// and declared extent. The drawing schema is deeply nested; we only need the
// blip and the extent so a recursive scan keeps this robust against the
// inline/anchor variants.
func parseImage(el *etree.Element) *Image {
	img := &Image{}
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		switch e.Tag {
		case "blip":
			img.RelID = attrValue(e, "embed", "")
		case "extent", "ext":
			if img.WidthEMU == 0 {
				img.WidthEMU = int64(attrInt(e, "cx", 0))
				img.HeightEMU = int64(attrInt(e, "cy", 0))
			}
		case "docPr":
			img.Name = attrValue(e, "name", "")
			img.Alt = attrValue(e, "descr", "")
		}
		for _, child := range e.ChildElements() {
			walk(child)
		}
	}
	walk(el)
	if img.RelID == "" {
		return nil
	}
	return img
}

func parseRunProperties(el *etree.Element, log *zap.Logger) RunProperties {
	var props RunProperties
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "b":
			props.Bold = attrBool(child)
		case "i":
			props.Italic = attrBool(child)
		case "u":
			props.Underline = attrValue(child, "val", "") != "none"
		case "strike":
			props.Strike = attrBool(child)
		case "rFonts":
			if v := attrValue(child, "ascii", ""); v != "" {
				props.FontFamily = v
			} else {
				props.FontFamily = attrValue(child, "hAnsi", "")
			}
		case "sz":
			props.SizeHalfPoints = attrInt(child, "val", 0)
		case "color":
			props.Color = attrValue(child, "val", "")
		case "highlight":
			props.Highlight = attrValue(child, "val", "")
		case "vertAlign":
			props.VertAlign = VerticalAlignment(attrValue(child, "val", string(VertAlignBaseline)))
		case "lang":
			if v := attrValue(child, "val", ""); v != "" {
				if tag, err := language.Parse(v); err == nil {
					props.Lang = tag
				}
			}
		case "rStyle", "szCs", "bCs", "iCs", "rFontsCs", "kern", "spacing", "rsid":
			// not rendered
		default:
			log.Debug("Unexpected tag in run properties, ignoring", zap.String("tag", child.Tag))
		}
	}
	return props
}

func parseParagraphProperties(el *etree.Element, log *zap.Logger) ParagraphProperties {
	var props ParagraphProperties
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "pStyle":
			props.StyleID = attrValue(child, "val", "")
		case "jc":
			props.Justification = attrValue(child, "val", "")
		case "outlineLvl":
			// source level is 0-based, ours is 1-based heading level
			if lvl := attrInt(child, "val", -1); lvl >= 0 {
				props.OutlineLevel = lvl + 1
			}
		case "ind":
			props.Indent = Indentation{
				Left:      firstAttrInt(child, 0, "left", "start"),
				Right:     firstAttrInt(child, 0, "right", "end"),
				FirstLine: attrInt(child, "firstLine", 0),
				Hanging:   attrInt(child, "hanging", 0),
			}
		case "tabs":
			for _, tab := range child.ChildElements() {
				if tab.Tag != "tab" {
					continue
				}
				props.Tabs = append(props.Tabs, TabStop{
					Position:  attrInt(tab, "pos", 0),
					Alignment: TabAlignment(attrValue(tab, "val", string(TabAlignLeft))),
					Leader:    LeaderChar(attrValue(tab, "leader", string(LeaderNone))),
				})
			}
		case "spacing":
			props.SpacingBeforeTwips = attrInt(child, "before", 0)
			props.SpacingAfterTwips = attrInt(child, "after", 0)
		case "rPr", "sectPr", "keepNext", "keepLines", "widowControl", "numPr", "rsid":
			// paragraph mark run properties and layout hints we do not render
		default:
			log.Debug("Unexpected tag in paragraph properties, ignoring", zap.String("tag", child.Tag))
		}
	}
	return props
}

func firstAttrInt(el *etree.Element, def int, names ...string) int {
	for _, name := range names {
		if v := attrValue(el, name, ""); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return def
}

func parseTable(el *etree.Element, log *zap.Logger) *Table {
	t := &Table{}
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "tblPr":
			t.Props = parseTableProperties(child, log)
		case "tblGrid":
			for _, col := range child.ChildElements() {
				if col.Tag == "gridCol" {
					t.Grid = append(t.Grid, attrInt(col, "w", 0))
				}
			}
		case "tr":
			t.Rows = append(t.Rows, parseRow(child, log))
		default:
			log.Debug("Unexpected tag in table, ignoring", zap.String("tag", child.Tag))
		}
	}
	return t
}

func parseTableProperties(el *etree.Element, log *zap.Logger) TableProperties {
	var props TableProperties
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "tblStyle":
			props.StyleID = attrValue(child, "val", "")
		case "tblW":
			props.WidthTwips = attrInt(child, "w", 0)
		case "tblBorders":
			props.Borders = parseBorders(child)
		case "tblCellMar":
			for _, mar := range child.ChildElements() {
				w := attrInt(mar, "w", 0)
				switch mar.Tag {
				case "left", "start":
					props.CellMargins.Left = w
				case "right", "end":
					props.CellMargins.Right = w
				}
			}
		case "tblLayout", "tblLook", "tblInd", "jc":
			// layout hints we do not render
		default:
			log.Debug("Unexpected tag in table properties, ignoring", zap.String("tag", child.Tag))
		}
	}
	return props
}

func parseRow(el *etree.Element, log *zap.Logger) Row {
	var row Row
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "trPr":
			for _, pr := range child.ChildElements() {
				switch pr.Tag {
				case "tblHeader":
					row.Props.Header = attrBool(pr)
				case "trHeight":
					row.Props.HeightTwips = attrInt(pr, "val", 0)
				}
			}
		case "tc":
			row.Cells = append(row.Cells, parseCell(child, log))
		default:
			log.Debug("Unexpected tag in table row, ignoring", zap.String("tag", child.Tag))
		}
	}
	return row
}

func parseCell(el *etree.Element, log *zap.Logger) Cell {
	var cell Cell
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "tcPr":
			cell.Props = parseCellProperties(child, log)
		default:
			if blk, ok := parseBlock(child, log); ok {
				cell.Content = append(cell.Content, blk)
			}
		}
	}
	return cell
}

func parseCellProperties(el *etree.Element, log *zap.Logger) CellProperties {
	var props CellProperties
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "gridSpan":
			props.GridSpan = attrInt(child, "val", 1)
		case "vMerge":
			// bare vMerge means continuation, explicit restart starts a merge
			switch attrValue(child, "val", "continue") {
			case "restart":
				props.VMerge = MergeRestart
			default:
				props.VMerge = MergeContinue
			}
		case "tcBorders":
			props.Borders = parseBorders(child)
		case "shd":
			props.Shading = attrValue(child, "fill", "")
		case "tcW":
			props.WidthTwips = attrInt(child, "w", 0)
		case "vAlign":
			props.VAlign = attrValue(child, "val", "")
		case "tcMar", "noWrap", "hideMark":
			// not rendered
		default:
			log.Debug("Unexpected tag in cell properties, ignoring", zap.String("tag", child.Tag))
		}
	}
	return props
}

func parseBorders(el *etree.Element) CellBorders {
	var borders CellBorders
	for _, child := range el.ChildElements() {
		side := parseBorderSide(child)
		switch child.Tag {
		case "top":
			borders.Top = side
		case "left", "start":
			borders.Left = side
		case "bottom":
			borders.Bottom = side
		case "right", "end":
			borders.Right = side
		}
	}
	return borders
}

func parseBorderSide(el *etree.Element) *BorderSide {
	style := attrValue(el, "val", string(BorderSingle))
	mapped := BorderStyle(style)
	switch mapped {
	case BorderNone, BorderNil, BorderSingle, BorderThick, BorderDouble, BorderDotted, BorderDashed, BorderOutset, BorderInset:
	default:
		// OOXML defines dozens of art border styles, collapse unknowns
		mapped = BorderSingle
	}
	return &BorderSide{
		Style: mapped,
		Size:  attrInt(el, "sz", 0),
		Color: attrValue(el, "color", "auto"),
		Space: attrInt(el, "space", 0),
	}
}

// ParseCommentsXML reads the comments part into a map keyed by comment ID.
// A missing or malformed part yields an empty map - comment references then
// render without author/date details.
func ParseCommentsXML(doc *etree.Document, log *zap.Logger) Comments {
	comments := make(Comments)
	if doc == nil || doc.Root() == nil {
		return comments
	}
	for _, el := range doc.Root().ChildElements() {
		if el.Tag != "comment" {
			continue
		}
		c := &Comment{
			ID:     attrValue(el, "id", ""),
			Author: attrValue(el, "author", ""),
		}
		if v := attrValue(el, "date", ""); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				c.Date = t
			}
		}
		var texts []string
		for _, child := range el.ChildElements() {
			if child.Tag == "p" {
				if text := parseParagraph(child, log).AsPlainText(); text != "" {
					texts = append(texts, text)
				}
			}
		}
		c.Text = strings.Join(texts, "\n")
		if c.ID != "" {
			comments[c.ID] = c
		}
	}
	return comments
}
