package annotate

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docxodus/wml"
)

// inlineEdit replaces container[index..index+remove) with repl. Edits are
// collected first and applied afterwards in descending index order, so the
// tree is never mutated while something still iterates it.
type inlineEdit struct {
	container *[]wml.Inline
	index     int
	remove    int
	repl      []wml.Inline
}

func applyInlineEdits(edits []inlineEdit) {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].index > edits[j].index })
	for _, e := range edits {
		c := *e.container
		out := make([]wml.Inline, 0, len(c)-e.remove+len(e.repl))
		out = append(out, c[:e.index]...)
		out = append(out, e.repl...)
		out = append(out, c[e.index+e.remove:]...)
		*e.container = out
	}
}

func startMarker(id, name string) wml.Inline {
	return wml.Inline{Kind: wml.InlineMarker, Marker: &wml.Marker{Kind: wml.MarkerBookmarkStart, ID: id, Name: name}}
}

func endMarker(id string) wml.Inline {
	return wml.Inline{Kind: wml.InlineMarker, Marker: &wml.Marker{Kind: wml.MarkerBookmarkEnd, ID: id}}
}

// Materialize resolves the target against the live tree and inserts a
// bookmark start/end pair with a fresh marker ID bounding exactly the
// targeted content. The operation is all-or-nothing: any resolution failure
// aborts before the first mutation. Returns the marker ID used.
func Materialize(doc *wml.Document, target Target, bookmarkName string, log *zap.Logger) (string, error) {
	if loc := locateBookmarkStart(doc, bookmarkName); loc != nil {
		return "", fmt.Errorf("bookmark %q: %w", bookmarkName, ErrDuplicateID)
	}
	markerID := uuid.NewString()

	var err error
	switch target.kind {
	case TargetText:
		err = materializeText(doc, target.text, target.occurrence, 0, -1, bookmarkName, markerID)
	case TargetScopedText:
		var from, to int
		from, to, err = bookmarkBounds(doc, target.elementID)
		if err == nil {
			err = materializeText(doc, target.text, target.occurrence, from, to, bookmarkName, markerID)
		}
	case TargetElement:
		err = materializeElement(doc, target.elementID, bookmarkName, markerID)
	case TargetIndex:
		err = materializeIndex(doc, target.index, bookmarkName, markerID)
	default:
		err = fmt.Errorf("unknown target kind %d: %w", target.kind, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	log.Debug("Bookmark pair materialized", zap.String("name", bookmarkName), zap.String("id", markerID))
	return markerID, nil
}

// materializeText anchors to the Nth occurrence of literal text within
// stream offsets [from, to); to < 0 means through stream end.
func materializeText(doc *wml.Document, text string, occurrence, from, to int, name, markerID string) error {
	stream := wml.ExtractStream(doc)
	if to < 0 || to > len(stream.Text) {
		to = len(stream.Text)
	}
	if from < 0 || from > to {
		return fmt.Errorf("search window [%d, %d): %w", from, to, ErrOutOfRange)
	}

	occs := wml.FindOccurrences(stream.Text[from:to], text)
	if occurrence > len(occs) {
		return fmt.Errorf("occurrence %d of %q (found %d): %w", occurrence, text, len(occs), ErrNotFound)
	}
	span := occs[occurrence-1]
	span.Start += from
	span.End += from
	return insertAroundSpan(stream, span.Start, span.End, name, markerID)
}

// insertAroundSpan splits the run(s) the span intersects and places the
// marker pair around the matched text. A match inside one leaf yields at most
// three fragments carrying the original formatting; a match spanning leaves
// splits only the first and last one.
func insertAroundSpan(stream *wml.Stream, start, end int, name, markerID string) error {
	segments := stream.SegmentsInRange(start, end)
	if len(segments) == 0 {
		return fmt.Errorf("span [%d, %d) covers no text: %w", start, end, ErrNotFound)
	}

	var edits []inlineEdit
	first, last := segments[0], segments[len(segments)-1]
	if len(segments) == 1 {
		relFrom, relTo := start-first.Start, end-first.Start
		repl := make([]wml.Inline, 0, 5)
		if before := sliceRun(first.Run, 0, relFrom); before != nil {
			repl = append(repl, wml.Inline{Kind: wml.InlineRun, Run: before})
		}
		repl = append(repl, startMarker(markerID, name))
		if mid := sliceRun(first.Run, relFrom, relTo); mid != nil {
			repl = append(repl, wml.Inline{Kind: wml.InlineRun, Run: mid})
		}
		repl = append(repl, endMarker(markerID))
		if after := sliceRun(first.Run, relTo, first.End-first.Start); after != nil {
			repl = append(repl, wml.Inline{Kind: wml.InlineRun, Run: after})
		}
		edits = append(edits, inlineEdit{container: first.Container, index: first.Index, remove: 1, repl: repl})
	} else {
		relFrom := start - first.Start
		repl := make([]wml.Inline, 0, 3)
		if before := sliceRun(first.Run, 0, relFrom); before != nil {
			repl = append(repl, wml.Inline{Kind: wml.InlineRun, Run: before})
		}
		repl = append(repl, startMarker(markerID, name))
		if rest := sliceRun(first.Run, relFrom, first.End-first.Start); rest != nil {
			repl = append(repl, wml.Inline{Kind: wml.InlineRun, Run: rest})
		}
		edits = append(edits, inlineEdit{container: first.Container, index: first.Index, remove: 1, repl: repl})

		relTo := end - last.Start
		repl = make([]wml.Inline, 0, 3)
		if head := sliceRun(last.Run, 0, relTo); head != nil {
			repl = append(repl, wml.Inline{Kind: wml.InlineRun, Run: head})
		}
		repl = append(repl, endMarker(markerID))
		if after := sliceRun(last.Run, relTo, last.End-last.Start); after != nil {
			repl = append(repl, wml.Inline{Kind: wml.InlineRun, Run: after})
		}
		edits = append(edits, inlineEdit{container: last.Container, index: last.Index, remove: 1, repl: repl})
	}

	applyInlineEdits(edits)
	return nil
}

// sliceRun copies the run restricted to text offsets [from, to). Zero-width
// atoms travel with the fragment the cursor is in. Returns nil for an empty
// slice.
func sliceRun(r *wml.Run, from, to int) *wml.Run {
	if from >= to {
		return nil
	}
	out := &wml.Run{Props: r.Props}
	pos := 0
	for _, c := range r.Content {
		if c.Kind == wml.RunText {
			a, b := pos, pos+len(c.Text)
			lo, hi := a, b
			if from > lo {
				lo = from
			}
			if to < hi {
				hi = to
			}
			if lo < hi {
				out.Content = append(out.Content, wml.RunContent{Kind: wml.RunText, Text: c.Text[lo-a : hi-a]})
			}
			pos = b
			continue
		}
		if pos >= from && pos < to {
			out.Content = append(out.Content, c)
		}
	}
	if len(out.Content) == 0 {
		return nil
	}
	return out
}

// materializeElement brackets the content of an existing bookmark with a new
// pair: the new start goes right after the existing start marker, the new end
// right before the existing end marker.
func materializeElement(doc *wml.Document, existingName, name, markerID string) error {
	startLoc := locateBookmarkStart(doc, existingName)
	if startLoc == nil {
		return fmt.Errorf("bookmark %q: %w", existingName, ErrNotFound)
	}
	endLoc := locateMarker(doc, wml.MarkerBookmarkEnd, startLoc.marker.ID)
	if endLoc == nil {
		return fmt.Errorf("bookmark %q end marker: %w", existingName, ErrNotFound)
	}

	if err := insertMarkerAfter(startLoc, startMarker(markerID, name)); err != nil {
		return err
	}
	// locations shift once the start is inserted, find the end again
	endLoc = locateMarker(doc, wml.MarkerBookmarkEnd, startLoc.marker.ID)
	if endLoc == nil {
		return fmt.Errorf("bookmark %q end marker: %w", existingName, ErrNotFound)
	}
	return insertMarkerBefore(endLoc, endMarker(markerID))
}

func materializeIndex(doc *wml.Document, idx IndexSpec, name, markerID string) error {
	switch idx.Kind {
	case IndexParagraph:
		paras := bodyParagraphs(doc)
		endIdx := idx.EndParagraph
		if endIdx < 0 {
			endIdx = idx.Paragraph
		}
		if idx.Paragraph < 0 || endIdx >= len(paras) || idx.Paragraph > endIdx {
			return fmt.Errorf("paragraph range %d..%d of %d: %w", idx.Paragraph, endIdx, len(paras), ErrOutOfRange)
		}
		first, last := paras[idx.Paragraph], paras[endIdx]
		applyInlineEdits([]inlineEdit{
			{container: &first.Content, index: 0, repl: []wml.Inline{startMarker(markerID, name)}},
			{container: &last.Content, index: len(last.Content), repl: []wml.Inline{endMarker(markerID)}},
		})
		return nil

	case IndexRun:
		paras := bodyParagraphs(doc)
		if idx.Paragraph < 0 || idx.Paragraph >= len(paras) {
			return fmt.Errorf("paragraph %d of %d: %w", idx.Paragraph, len(paras), ErrOutOfRange)
		}
		p := paras[idx.Paragraph]
		at := -1
		runs := 0
		for i := range p.Content {
			if p.Content[i].Kind == wml.InlineRun {
				if runs == idx.Run {
					at = i
					break
				}
				runs++
			}
		}
		if at < 0 {
			return fmt.Errorf("run %d in paragraph %d: %w", idx.Run, idx.Paragraph, ErrOutOfRange)
		}
		applyInlineEdits([]inlineEdit{
			{container: &p.Content, index: at, repl: []wml.Inline{startMarker(markerID, name)}},
			{container: &p.Content, index: at + 1, repl: []wml.Inline{endMarker(markerID)}},
		})
		return nil

	case IndexCell:
		cell, err := bodyCell(doc, idx.Table, idx.Row, idx.Cell)
		if err != nil {
			return err
		}
		content := make([]wml.Block, 0, len(cell.Content)+2)
		content = append(content, wml.Block{Kind: wml.BlockMarker, Marker: &wml.Marker{Kind: wml.MarkerBookmarkStart, ID: markerID, Name: name}})
		content = append(content, cell.Content...)
		content = append(content, wml.Block{Kind: wml.BlockMarker, Marker: &wml.Marker{Kind: wml.MarkerBookmarkEnd, ID: markerID}})
		cell.Content = content
		return nil
	}
	return fmt.Errorf("unknown index kind %d: %w", idx.Kind, ErrNotFound)
}

func bodyParagraphs(doc *wml.Document) []*wml.Paragraph {
	var out []*wml.Paragraph
	for i := range doc.Body {
		if doc.Body[i].Kind == wml.BlockParagraph && doc.Body[i].Paragraph != nil {
			out = append(out, doc.Body[i].Paragraph)
		}
	}
	return out
}

func bodyCell(doc *wml.Document, table, row, cell int) (*wml.Cell, error) {
	tables := 0
	for i := range doc.Body {
		if doc.Body[i].Kind != wml.BlockTable || doc.Body[i].Table == nil {
			continue
		}
		if tables != table {
			tables++
			continue
		}
		t := doc.Body[i].Table
		if row < 0 || row >= len(t.Rows) {
			return nil, fmt.Errorf("row %d of %d: %w", row, len(t.Rows), ErrOutOfRange)
		}
		if cell < 0 || cell >= len(t.Rows[row].Cells) {
			return nil, fmt.Errorf("cell %d of %d: %w", cell, len(t.Rows[row].Cells), ErrOutOfRange)
		}
		return &t.Rows[row].Cells[cell], nil
	}
	return nil, fmt.Errorf("table %d: %w", table, ErrOutOfRange)
}

// markerLoc points at a marker either in an inline or a block container.
type markerLoc struct {
	inlines *[]wml.Inline
	blocks  *[]wml.Block
	index   int
	marker  *wml.Marker
}

func locateBookmarkStart(doc *wml.Document, name string) *markerLoc {
	var found *markerLoc
	walkMarkers(doc, func(loc markerLoc) bool {
		if loc.marker.Kind == wml.MarkerBookmarkStart && loc.marker.Name == name {
			found = &loc
			return false
		}
		return true
	})
	return found
}

func locateMarker(doc *wml.Document, kind wml.MarkerKind, id string) *markerLoc {
	var found *markerLoc
	walkMarkers(doc, func(loc markerLoc) bool {
		if loc.marker.Kind == kind && loc.marker.ID == id {
			found = &loc
			return false
		}
		return true
	})
	return found
}

// walkMarkers visits every marker depth-first; the callback returns false to
// stop the walk.
func walkMarkers(doc *wml.Document, visit func(markerLoc) bool) {
	var walkInlines func(container *[]wml.Inline) bool
	walkInlines = func(container *[]wml.Inline) bool {
		for i := range *container {
			in := &(*container)[i]
			switch in.Kind {
			case wml.InlineMarker:
				if in.Marker != nil && !visit(markerLoc{inlines: container, index: i, marker: in.Marker}) {
					return false
				}
			case wml.InlineHyperlink:
				if in.Hyperlink != nil && !walkInlines(&in.Hyperlink.Content) {
					return false
				}
			case wml.InlineRevision:
				if in.Revision != nil && !walkInlines(&in.Revision.Content) {
					return false
				}
			}
		}
		return true
	}

	var walkBlocks func(blocks *[]wml.Block) bool
	walkBlocks = func(blocks *[]wml.Block) bool {
		for i := range *blocks {
			blk := &(*blocks)[i]
			switch blk.Kind {
			case wml.BlockMarker:
				if blk.Marker != nil && !visit(markerLoc{blocks: blocks, index: i, marker: blk.Marker}) {
					return false
				}
			case wml.BlockParagraph:
				if blk.Paragraph != nil && !walkInlines(&blk.Paragraph.Content) {
					return false
				}
			case wml.BlockTable:
				if blk.Table == nil {
					continue
				}
				for r := range blk.Table.Rows {
					for c := range blk.Table.Rows[r].Cells {
						if !walkBlocks(&blk.Table.Rows[r].Cells[c].Content) {
							return false
						}
					}
				}
			}
		}
		return true
	}
	walkBlocks(&doc.Body)
}

func insertMarkerAfter(loc *markerLoc, m wml.Inline) error {
	return insertMarkerAt(loc, loc.index+1, m)
}

func insertMarkerBefore(loc *markerLoc, m wml.Inline) error {
	return insertMarkerAt(loc, loc.index, m)
}

func insertMarkerAt(loc *markerLoc, at int, m wml.Inline) error {
	if loc.inlines != nil {
		applyInlineEdits([]inlineEdit{{container: loc.inlines, index: at, repl: []wml.Inline{m}}})
		return nil
	}
	if loc.blocks != nil {
		c := *loc.blocks
		out := make([]wml.Block, 0, len(c)+1)
		out = append(out, c[:at]...)
		out = append(out, wml.Block{Kind: wml.BlockMarker, Marker: m.Marker})
		out = append(out, c[at:]...)
		*loc.blocks = out
		return nil
	}
	return fmt.Errorf("marker location lost: %w", ErrNotFound)
}

// bookmarkBounds returns the stream offsets [start, end) of the text bounded
// by the named bookmark pair.
func bookmarkBounds(doc *wml.Document, name string) (int, int, error) {
	start, end := -1, -1
	var id string
	pos := 0

	var walkInlines func(container *[]wml.Inline)
	walkInlines = func(container *[]wml.Inline) {
		for i := range *container {
			in := &(*container)[i]
			switch in.Kind {
			case wml.InlineRun:
				if in.Run != nil {
					pos += len(in.Run.AsText())
				}
			case wml.InlineMarker:
				noteMarker(in.Marker, &start, &end, &id, name, pos)
			case wml.InlineHyperlink:
				if in.Hyperlink != nil {
					walkInlines(&in.Hyperlink.Content)
				}
			case wml.InlineRevision:
				if in.Revision != nil {
					walkInlines(&in.Revision.Content)
				}
			}
		}
	}

	var walkBlocks func(blocks []wml.Block)
	walkBlocks = func(blocks []wml.Block) {
		for i := range blocks {
			switch blocks[i].Kind {
			case wml.BlockMarker:
				noteMarker(blocks[i].Marker, &start, &end, &id, name, pos)
			case wml.BlockParagraph:
				if blocks[i].Paragraph != nil {
					walkInlines(&blocks[i].Paragraph.Content)
				}
			case wml.BlockTable:
				if blocks[i].Table == nil {
					continue
				}
				for r := range blocks[i].Table.Rows {
					for c := range blocks[i].Table.Rows[r].Cells {
						walkBlocks(blocks[i].Table.Rows[r].Cells[c].Content)
					}
				}
			}
		}
	}
	walkBlocks(doc.Body)

	if start < 0 {
		return 0, 0, fmt.Errorf("bookmark %q: %w", name, ErrNotFound)
	}
	if end < 0 {
		end = pos
	}
	return start, end, nil
}

func noteMarker(m *wml.Marker, start, end *int, id *string, name string, pos int) {
	if m == nil {
		return
	}
	switch m.Kind {
	case wml.MarkerBookmarkStart:
		if *start < 0 && m.Name == name {
			*start = pos
			*id = m.ID
		}
	case wml.MarkerBookmarkEnd:
		if *start >= 0 && *end < 0 && m.ID == *id {
			*end = pos
		}
	}
}

// Remove deletes the named bookmark pair, leaving bounded content intact.
// Runs split at the pair's boundaries are merged back so removal is the exact
// inverse of materialization.
func Remove(doc *wml.Document, bookmarkName string, log *zap.Logger) error {
	startLoc := locateBookmarkStart(doc, bookmarkName)
	if startLoc == nil {
		return fmt.Errorf("bookmark %q: %w", bookmarkName, ErrNotFound)
	}
	id := startLoc.marker.ID
	endLoc := locateMarker(doc, wml.MarkerBookmarkEnd, id)

	removeAt(endLoc)
	// end removal cannot shift the start: the start marker precedes it
	removeAt(locateBookmarkStart(doc, bookmarkName))

	if startLoc.inlines != nil {
		mergeAdjacentRuns(startLoc.inlines)
	}
	if endLoc != nil && endLoc.inlines != nil && endLoc.inlines != startLoc.inlines {
		mergeAdjacentRuns(endLoc.inlines)
	}
	log.Debug("Bookmark pair removed", zap.String("name", bookmarkName), zap.String("id", id))
	return nil
}

func removeAt(loc *markerLoc) {
	if loc == nil {
		return
	}
	if loc.inlines != nil {
		c := *loc.inlines
		*loc.inlines = append(c[:loc.index], c[loc.index+1:]...)
		return
	}
	if loc.blocks != nil {
		c := *loc.blocks
		*loc.blocks = append(c[:loc.index], c[loc.index+1:]...)
	}
}

// mergeAdjacentRuns joins neighboring runs with identical formatting,
// collapsing fragments left behind by earlier splits.
func mergeAdjacentRuns(container *[]wml.Inline) {
	c := *container
	out := c[:0]
	for i := range c {
		if len(out) > 0 && c[i].Kind == wml.InlineRun && out[len(out)-1].Kind == wml.InlineRun {
			prev, cur := out[len(out)-1].Run, c[i].Run
			if prev != nil && cur != nil && prev.Props == cur.Props {
				for _, atom := range cur.Content {
					if atom.Kind == wml.RunText && len(prev.Content) > 0 && prev.Content[len(prev.Content)-1].Kind == wml.RunText {
						prev.Content[len(prev.Content)-1].Text += atom.Text
						continue
					}
					prev.Content = append(prev.Content, atom)
				}
				continue
			}
		}
		out = append(out, c[i])
	}
	*container = out
}
