package convert

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"docxodus/config"
	"docxodus/docpkg"
	"docxodus/wml"
)

// AnnotationInfo is what the dispatcher needs to know about a custom
// annotation whose bookmark range it encounters, keyed by bookmark name.
type AnnotationInfo struct {
	ID    string
	Label string
	Color string
}

// Transformer maps the document tree to an HTML tree in one depth-first,
// left-to-right pass. One Transformer serves one document package; the range
// tracker is scoped to a single Transform call and threaded through the walk
// explicitly.
type Transformer struct {
	cfg  *config.DocumentConfig
	pkg  *docpkg.Package
	tabs *TabLayoutEngine
	dims DimensionOracle

	comments    wml.Comments
	annotations map[string]AnnotationInfo

	log *zap.Logger
}

func NewTransformer(cfg *config.DocumentConfig, pkg *docpkg.Package, annotations map[string]AnnotationInfo, log *zap.Logger) *Transformer {
	t := &Transformer{
		cfg:         cfg,
		pkg:         pkg,
		tabs:        NewTabLayoutEngine(cfg.Tabs, NewFontMetricsOracle(cfg.Fonts.Metrics)),
		dims:        HeaderDimensionOracle{},
		annotations: annotations,
		log:         log,
	}
	if pkg != nil && pkg.HasPart(docpkg.CommentsPartName) {
		if doc, err := pkg.PartDocument(docpkg.CommentsPartName); err == nil {
			t.comments = wml.ParseCommentsXML(doc, log)
		} else {
			log.Warn("Unable to read comments part", zap.Error(err))
		}
	}
	return t
}

// walkState carries per-call traversal state. Everything here dies with the
// Transform call that created it.
type walkState struct {
	tracker *RangeTracker
	// bookmark marker ID -> bookmark name, for annotation range ends which
	// only carry the ID
	annByID map[string]string
	// most recent wrapper span and segment count per open annotation, so the
	// closing marker can retag the last segment
	annLast map[string]*etree.Element
	annSegs map[string]int
	// tab widths of the paragraph being rendered, consumed in order
	tabSpans []TabSpan
	tabNext  int
}

// closeAnnotation retags the last rendered segment of a closing range: a
// lone segment becomes "single", the final one of several becomes "end".
func (st *walkState) closeAnnotation(name, class string) {
	if span := st.annLast[name]; span != nil {
		if st.annSegs[name] == 1 {
			span.CreateAttr("class", class+" single")
		} else {
			span.CreateAttr("class", class+" end")
		}
	}
	delete(st.annLast, name)
	delete(st.annSegs, name)
}

// Transform renders the document body into a complete HTML document.
// Conversion never fails: malformed pieces degrade locally and dangling
// ranges are reported, not raised.
func (t *Transformer) Transform(doc *wml.Document, title string) *etree.Document {
	html, body := CreateHTMLDocument(title)

	st := &walkState{
		tracker: NewRangeTracker(),
		annByID: make(map[string]string),
		annLast: make(map[string]*etree.Element),
		annSegs: make(map[string]int),
	}
	for i := range doc.Body {
		t.renderBlock(body, &doc.Body[i], st)
	}

	if open := st.tracker.AllOpen(); len(open) > 0 {
		t.log.Warn("Ranges left open at document end", zap.Strings("ids", open), zap.Stringer("mode", t.cfg.Comments.Unterminated))
		// highlight leaves the trailing segments tagged start/continuation,
		// force_close seals them as if a close marker ended the document
		if t.cfg.Comments.Unterminated == config.UnterminatedRangeForceClose {
			for _, name := range st.tracker.OpenRanges(RangeAnnotation) {
				st.closeAnnotation(name, t.cfg.Annotations.Class)
			}
			st.tracker.Reset()
		}
	}
	return html
}

func (t *Transformer) renderBlock(parent *etree.Element, b *wml.Block, st *walkState) {
	switch b.Kind {
	case wml.BlockParagraph:
		if b.Paragraph != nil {
			t.renderParagraph(parent, b.Paragraph, st)
		}
	case wml.BlockTable:
		if b.Table != nil {
			t.renderTable(parent, b.Table, st)
		}
	case wml.BlockMarker:
		if b.Marker != nil {
			t.handleMarker(parent, b.Marker, st)
		}
	default:
		t.log.Debug("Skipping unexpected block", zap.String("kind", string(b.Kind)))
	}
}

// handleMarker advances range tracking. Markers themselves are zero-width
// and produce no output except an anchor for plain bookmarks.
func (t *Transformer) handleMarker(parent *etree.Element, m *wml.Marker, st *walkState) {
	switch m.Kind {
	case wml.MarkerBookmarkStart:
		if _, ok := t.annotations[m.Name]; ok {
			if t.cfg.Annotations.Render {
				st.annByID[m.ID] = m.Name
				st.tracker.Open(RangeAnnotation, m.Name)
			}
			return
		}
		if m.Name != "" {
			a := parent.CreateElement("a")
			a.CreateAttr("id", m.Name)
		}
	case wml.MarkerBookmarkEnd:
		if name, ok := st.annByID[m.ID]; ok {
			st.tracker.Close(RangeAnnotation, name)
			st.closeAnnotation(name, t.cfg.Annotations.Class)
			delete(st.annByID, m.ID)
		}
	case wml.MarkerCommentRangeStart:
		if t.cfg.Comments.Render {
			st.tracker.Open(RangeComment, m.ID)
		}
	case wml.MarkerCommentRangeEnd:
		st.tracker.Close(RangeComment, m.ID)
	}
}

var headingTags = map[int]string{1: "h1", 2: "h2", 3: "h3", 4: "h4", 5: "h5", 6: "h6"}

func paragraphTag(props *wml.ParagraphProperties) string {
	lvl := props.OutlineLevel
	if lvl == 0 {
		// styles like Heading3 imply outline level when direct formatting
		// does not carry one
		if n, ok := strings.CutPrefix(props.StyleID, "Heading"); ok {
			if v, err := strconv.Atoi(n); err == nil {
				lvl = v
			}
		}
	}
	if tag, ok := headingTags[lvl]; ok {
		return tag
	}
	return "p"
}

func twipsToPt(twips int) string {
	return strconv.FormatFloat(float64(twips)/20, 'f', -1, 64) + "pt"
}

func (t *Transformer) renderParagraph(parent *etree.Element, p *wml.Paragraph, st *walkState) {
	el := parent.CreateElement(paragraphTag(&p.Props))

	styles := NewStyleSet()
	if p.Props.Justification != "" {
		styles.Set("text-align", cssTextAlign(p.Props.Justification))
	}
	if p.Props.Indent.Left != 0 {
		styles.Set("margin-left", twipsToPt(p.Props.Indent.Left))
	}
	if p.Props.Indent.Right != 0 {
		styles.Set("margin-right", twipsToPt(p.Props.Indent.Right))
	}
	if ti := p.Props.Indent.FirstLine - p.Props.Indent.Hanging; ti != 0 {
		styles.Set("text-indent", twipsToPt(ti))
	}
	if p.Props.SpacingBeforeTwips != 0 {
		styles.Set("margin-top", twipsToPt(p.Props.SpacingBeforeTwips))
	}
	if p.Props.SpacingAfterTwips != 0 {
		styles.Set("margin-bottom", twipsToPt(p.Props.SpacingAfterTwips))
	}
	styles.Apply(el)

	st.tabSpans = t.tabs.Layout(p)
	st.tabNext = 0
	for i := range p.Content {
		t.renderInline(el, &p.Content[i], st)
	}
	st.tabSpans = nil
	st.tabNext = 0
}

func cssTextAlign(justification string) string {
	switch justification {
	case "both", "distribute":
		return "justify"
	case "start":
		return "left"
	case "end":
		return "right"
	}
	return justification
}

func (t *Transformer) renderInline(parent *etree.Element, in *wml.Inline, st *walkState) {
	switch in.Kind {
	case wml.InlineRun:
		if in.Run != nil {
			t.renderRun(parent, in.Run, st)
		}
	case wml.InlineHyperlink:
		if in.Hyperlink != nil {
			t.renderHyperlink(parent, in.Hyperlink, st)
		}
	case wml.InlineRevision:
		if in.Revision != nil {
			t.renderRevision(parent, in.Revision, st)
		}
	case wml.InlineMarker:
		if in.Marker != nil {
			t.handleMarker(parent, in.Marker, st)
		}
	}
}

func (t *Transformer) renderHyperlink(parent *etree.Element, h *wml.Hyperlink, st *walkState) {
	a := parent.CreateElement("a")
	switch {
	case h.Anchor != "":
		a.CreateAttr("href", "#"+h.Anchor)
	case h.Target != "":
		a.CreateAttr("href", h.Target)
	case h.RelID != "" && t.pkg != nil:
		if rel, ok := t.pkg.Relationships(docpkg.DocumentPartName)[h.RelID]; ok {
			a.CreateAttr("href", rel.Target)
		}
	}
	if h.Tooltip != "" {
		a.CreateAttr("title", h.Tooltip)
	}
	for i := range h.Content {
		t.renderInline(a, &h.Content[i], st)
	}
}

// renderRevision wraps the revision's children in an insertion or deletion
// container, or flattens them when changes are treated as accepted.
func (t *Transformer) renderRevision(parent *etree.Element, rev *wml.Revision, st *walkState) {
	if t.cfg.Revisions.Mode == config.RevisionsModeAccept {
		switch rev.Kind {
		case wml.RevisionInsert, wml.RevisionMoveTo:
			for i := range rev.Content {
				t.renderInline(parent, &rev.Content[i], st)
			}
		}
		// deletions and move sources vanish when accepted
		return
	}

	var el *etree.Element
	switch rev.Kind {
	case wml.RevisionInsert, wml.RevisionMoveTo:
		el = parent.CreateElement("ins")
	case wml.RevisionDelete, wml.RevisionMoveFrom:
		if t.cfg.Revisions.Deleted == config.DeletedContentHide {
			return
		}
		el = parent.CreateElement("del")
	default:
		t.log.Debug("Skipping unexpected revision", zap.String("kind", string(rev.Kind)))
		return
	}
	if rev.Author != "" {
		el.CreateAttr("data-author", rev.Author)
	}
	if !rev.Date.IsZero() {
		el.CreateAttr("data-date", rev.Date.Format("2006-01-02T15:04:05Z07:00"))
	}
	for i := range rev.Content {
		t.renderInline(el, &rev.Content[i], st)
	}
}

// renderRun emits the run as a styled span, wrapped in one highlight
// container per open comment or annotation range. The most recently opened
// range becomes the innermost container.
func (t *Transformer) renderRun(parent *etree.Element, r *wml.Run, st *walkState) {
	host := parent
	for _, id := range st.tracker.OpenRanges(RangeComment) {
		span := host.CreateElement("span")
		span.CreateAttr("class", "comment-highlight")
		span.CreateAttr("data-comment-id", id)
		if c, ok := t.comments[id]; ok && c.Author != "" {
			span.CreateAttr("data-author", c.Author)
		}
		host = span
	}
	for _, name := range st.tracker.OpenRanges(RangeAnnotation) {
		info := t.annotations[name]
		span := host.CreateElement("span")
		if st.tracker.MarkRendered(name) {
			span.CreateAttr("class", t.cfg.Annotations.Class+" start")
			if info.Label != "" {
				label := span.CreateElement("span")
				label.CreateAttr("class", t.cfg.Annotations.Class+"-label")
				label.CreateAttr("style", "float: right")
				label.SetText(info.Label)
			}
		} else {
			span.CreateAttr("class", t.cfg.Annotations.Class+" continuation")
		}
		span.CreateAttr("data-annotation-id", info.ID)
		if info.Color != "" {
			span.CreateAttr("data-color", info.Color)
		}
		st.annLast[name] = span
		st.annSegs[name]++
		host = span
	}

	el := host
	styles := runStyles(&r.Props)
	if !styles.Empty() || !r.Props.Lang.IsRoot() {
		el = host.CreateElement("span")
		styles.Apply(el)
		if !r.Props.Lang.IsRoot() {
			el.CreateAttr("lang", r.Props.Lang.String())
		}
	}

	for i := range r.Content {
		c := &r.Content[i]
		switch c.Kind {
		case wml.RunText:
			appendText(el, c.Text)
		case wml.RunBreak:
			br := el.CreateElement("br")
			if c.Break == wml.BreakPage || c.Break == wml.BreakColumn {
				br.CreateAttr("class", "break-"+string(c.Break))
			}
		case wml.RunTab:
			t.renderTab(el, st)
		case wml.RunImage:
			if c.Image != nil {
				t.renderImage(el, c.Image)
			}
		case wml.RunCommentReference:
			t.renderCommentReference(el, c.CommentID)
		}
	}
}

// appendText adds text preserving any element children already created.
func appendText(el *etree.Element, text string) {
	el.CreateCharData(text)
}

func runStyles(props *wml.RunProperties) *StyleSet {
	styles := NewStyleSet()
	if props.Bold {
		styles.Set("font-weight", "bold")
	}
	if props.Italic {
		styles.Set("font-style", "italic")
	}
	switch {
	case props.Underline && props.Strike:
		styles.Set("text-decoration", "underline line-through")
	case props.Underline:
		styles.Set("text-decoration", "underline")
	case props.Strike:
		styles.Set("text-decoration", "line-through")
	}
	if props.FontFamily != "" {
		styles.Set("font-family", props.FontFamily)
	}
	if props.SizeHalfPoints > 0 {
		styles.Set("font-size", strconv.FormatFloat(float64(props.SizeHalfPoints)/2, 'f', -1, 64)+"pt")
	}
	if props.Color != "" && !strings.EqualFold(props.Color, "auto") {
		styles.Set("color", "#"+strings.TrimPrefix(props.Color, "#"))
	}
	if props.Highlight != "" && props.Highlight != "none" {
		styles.Set("background-color", props.Highlight)
	}
	switch props.VertAlign {
	case wml.VertAlignSuperscript:
		styles.Set("vertical-align", "super")
		styles.Set("font-size", "smaller")
	case wml.VertAlignSubscript:
		styles.Set("vertical-align", "sub")
		styles.Set("font-size", "smaller")
	}
	return styles
}

func (t *Transformer) renderTab(parent *etree.Element, st *walkState) {
	span := parent.CreateElement("span")
	span.CreateAttr("class", "tab")
	if st.tabNext >= len(st.tabSpans) {
		return
	}
	ts := st.tabSpans[st.tabNext]
	st.tabNext++
	span.CreateAttr("style", "display: inline-block; width: "+twipsToPt(ts.Width))
	if ts.LeaderCount > 0 {
		span.SetText(strings.Repeat(LeaderGlyph(ts.Leader), ts.LeaderCount))
	}
}

func (t *Transformer) renderImage(parent *etree.Element, img *wml.Image) {
	el := parent.CreateElement("img")
	if img.Alt != "" {
		el.CreateAttr("alt", img.Alt)
	} else if img.Name != "" {
		el.CreateAttr("alt", img.Name)
	}

	var data []byte
	var target string
	if t.pkg != nil && img.RelID != "" {
		if rel, ok := t.pkg.Relationships(docpkg.DocumentPartName)[img.RelID]; ok && !rel.External {
			target = docpkg.ResolvePartTarget(docpkg.DocumentPartName, rel.Target)
			var err error
			if data, err = t.pkg.PartBytes(target); err != nil {
				t.log.Debug("Image part missing, leaving image unresolved", zap.String("target", target), zap.Error(err))
				data = nil
			}
		} else if ok {
			el.CreateAttr("src", rel.Target)
		}
	}
	if data != nil {
		if t.cfg.Images.Embed {
			el.CreateAttr("src", "data:"+MimeType(data)+";base64,"+base64.StdEncoding.EncodeToString(data))
		} else {
			el.CreateAttr("src", target)
		}
	}

	w, h := EMUToPixels(img.WidthEMU), EMUToPixels(img.HeightEMU)
	if (w == 0 || h == 0) && data != nil {
		if dw, dh, ok := t.dims.Dimensions(data); ok {
			w, h = dw, dh
		}
	}
	if w > 0 {
		el.CreateAttr("width", strconv.Itoa(w))
	}
	if h > 0 {
		el.CreateAttr("height", strconv.Itoa(h))
	}
}

func (t *Transformer) renderCommentReference(parent *etree.Element, id string) {
	if !t.cfg.Comments.Render {
		return
	}
	sup := parent.CreateElement("sup")
	sup.CreateAttr("class", "comment-ref")
	sup.CreateAttr("data-comment-id", id)
	if c, ok := t.comments[id]; ok {
		if c.Author != "" {
			sup.CreateAttr("title", c.Author+": "+c.Text)
		} else {
			sup.CreateAttr("title", c.Text)
		}
	}
	sup.SetText("[" + id + "]")
}

func (t *Transformer) renderTable(parent *etree.Element, tbl *wml.Table, st *walkState) {
	resolved := ResolveTableBorders(tbl)
	grid := expandGrid(resolved)

	wrap := parent.CreateElement("div")
	wrap.CreateAttr("class", "table-wrap")
	el := wrap.CreateElement("table")

	styles := NewStyleSet()
	styles.Set("border-collapse", "collapse")
	if resolved.Props.WidthTwips > 0 {
		styles.Set("width", twipsToPt(resolved.Props.WidthTwips))
	}
	styles.Apply(el)

	for r := range resolved.Rows {
		row := &resolved.Rows[r]
		tr := el.CreateElement("tr")
		col := 0
		for ci := range row.Cells {
			cell := &row.Cells[ci]
			span := cell.Props.GridSpan
			if span < 1 {
				span = 1
			}
			if cell.Props.VMerge == wml.MergeContinue {
				col += span
				continue
			}

			tag := "td"
			if row.Props.Header {
				tag = "th"
			}
			td := tr.CreateElement(tag)
			if span > 1 {
				td.CreateAttr("colspan", strconv.Itoa(span))
			}
			if rs := mergedRowCount(grid, cell, r, col); rs > 1 {
				td.CreateAttr("rowspan", strconv.Itoa(rs))
			}
			t.applyCellStyles(td, cell)
			for bi := range cell.Content {
				t.renderBlock(td, &cell.Content[bi], st)
			}
			col += span
		}
	}
}

// mergedRowCount counts the rows a restart cell covers, the anchor row
// included.
func mergedRowCount(g *cellGrid, cell *wml.Cell, row, col int) int {
	if cell.Props.VMerge != wml.MergeRestart {
		return 1
	}
	n := 1
	for r := row + 1; r < len(g.cells); r++ {
		if col >= len(g.cells[r]) || g.cells[r][col] != cell {
			break
		}
		n++
	}
	return n
}

func (t *Transformer) applyCellStyles(td *etree.Element, cell *wml.Cell) {
	styles := NewStyleSet()
	setBorderStyle(styles, "border-top", cell.Props.Borders.Top)
	setBorderStyle(styles, "border-left", cell.Props.Borders.Left)
	setBorderStyle(styles, "border-bottom", cell.Props.Borders.Bottom)
	setBorderStyle(styles, "border-right", cell.Props.Borders.Right)
	if cell.Props.Shading != "" && !strings.EqualFold(cell.Props.Shading, "auto") {
		styles.Set("background-color", "#"+strings.TrimPrefix(cell.Props.Shading, "#"))
	}
	if cell.Props.WidthTwips > 0 {
		styles.Set("width", twipsToPt(cell.Props.WidthTwips))
	}
	if cell.Props.VAlign != "" {
		styles.Set("vertical-align", cell.Props.VAlign)
	}
	styles.Apply(td)
}

func setBorderStyle(styles *StyleSet, prop string, side *wml.BorderSide) {
	if side.IsNone() {
		return
	}
	// size is stored in eighths of a point
	width := strconv.FormatFloat(float64(side.Size)/8, 'f', -1, 64) + "pt"
	color := "#000000"
	if side.Color != "" && !strings.EqualFold(side.Color, "auto") {
		color = "#" + strings.TrimPrefix(side.Color, "#")
	}
	styles.Set(prop, fmt.Sprintf("%s %s %s", width, cssBorderStyle(side.Style), color))
}

func cssBorderStyle(style wml.BorderStyle) string {
	switch style {
	case wml.BorderThick:
		return "solid"
	case wml.BorderDouble:
		return "double"
	case wml.BorderDotted:
		return "dotted"
	case wml.BorderDashed:
		return "dashed"
	case wml.BorderOutset:
		return "outset"
	case wml.BorderInset:
		return "inset"
	}
	return "solid"
}

// CreateHTMLDocument builds the document shell and returns it with the body
// element content goes into.
func CreateHTMLDocument(title string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")

	head := html.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("http-equiv", "Content-Type")
	meta.CreateAttr("content", "text/html; charset=utf-8")
	titleElem := head.CreateElement("title")
	titleElem.SetText(title)

	body := html.CreateElement("body")
	return doc, body
}
