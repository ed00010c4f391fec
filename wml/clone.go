package wml

// Deep copy of the document tree. Conversion and materialization own their
// working tree exclusively - callers that need to work on the same source
// concurrently must clone first.

// Clone creates a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{Body: cloneBlocks(d.Body)}
}

func cloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	result := make([]Block, len(blocks))
	for i := range blocks {
		result[i] = Block{
			Kind:      blocks[i].Kind,
			Paragraph: cloneParagraph(blocks[i].Paragraph),
			Table:     cloneTable(blocks[i].Table),
			Marker:    cloneMarker(blocks[i].Marker),
		}
	}
	return result
}

func cloneMarker(m *Marker) *Marker {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

func cloneParagraph(p *Paragraph) *Paragraph {
	if p == nil {
		return nil
	}
	props := p.Props
	props.Tabs = append([]TabStop(nil), p.Props.Tabs...)
	return &Paragraph{
		Props:   props,
		Content: cloneInlines(p.Content),
	}
}

func cloneInlines(inlines []Inline) []Inline {
	if inlines == nil {
		return nil
	}
	result := make([]Inline, len(inlines))
	for i := range inlines {
		result[i] = Inline{
			Kind:      inlines[i].Kind,
			Run:       cloneRun(inlines[i].Run),
			Hyperlink: cloneHyperlink(inlines[i].Hyperlink),
			Revision:  cloneRevision(inlines[i].Revision),
			Marker:    cloneMarker(inlines[i].Marker),
		}
	}
	return result
}

func cloneRun(r *Run) *Run {
	if r == nil {
		return nil
	}
	content := make([]RunContent, len(r.Content))
	for i := range r.Content {
		content[i] = r.Content[i]
		if r.Content[i].Image != nil {
			img := *r.Content[i].Image
			content[i].Image = &img
		}
	}
	return &Run{Props: r.Props, Content: content}
}

func cloneHyperlink(h *Hyperlink) *Hyperlink {
	if h == nil {
		return nil
	}
	return &Hyperlink{
		RelID:   h.RelID,
		Target:  h.Target,
		Anchor:  h.Anchor,
		Tooltip: h.Tooltip,
		Content: cloneInlines(h.Content),
	}
}

func cloneRevision(rev *Revision) *Revision {
	if rev == nil {
		return nil
	}
	return &Revision{
		Kind:    rev.Kind,
		Author:  rev.Author,
		Date:    rev.Date,
		Content: cloneInlines(rev.Content),
	}
}

func cloneTable(t *Table) *Table {
	if t == nil {
		return nil
	}
	clone := &Table{
		Props: t.Props,
		Grid:  append([]int(nil), t.Grid...),
		Rows:  make([]Row, len(t.Rows)),
	}
	cloneBordersInto(&clone.Props.Borders, &t.Props.Borders)
	for i := range t.Rows {
		cells := make([]Cell, len(t.Rows[i].Cells))
		for j := range t.Rows[i].Cells {
			src := &t.Rows[i].Cells[j]
			cells[j] = Cell{Props: src.Props, Content: cloneBlocks(src.Content)}
			cloneBordersInto(&cells[j].Props.Borders, &src.Props.Borders)
		}
		clone.Rows[i] = Row{Props: t.Rows[i].Props, Cells: cells}
	}
	return clone
}

func cloneBordersInto(dst, src *CellBorders) {
	dst.Top = cloneBorderSide(src.Top)
	dst.Left = cloneBorderSide(src.Left)
	dst.Bottom = cloneBorderSide(src.Bottom)
	dst.Right = cloneBorderSide(src.Right)
}

func cloneBorderSide(side *BorderSide) *BorderSide {
	if side == nil {
		return nil
	}
	clone := *side
	return &clone
}
