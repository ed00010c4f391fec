package convert

import (
	"strconv"
	"strings"

	"docxodus/wml"
)

// Border conflict resolution. Neighboring cells declare the same physical
// edge independently and the declarations regularly disagree; before any CSS
// is emitted each interior shared edge must collapse to one winning border
// shown identically on both sides. The order is total so resolution is
// deterministic and symmetric.

// Primary weight per style. Heavier styles win the edge.
var borderStyleWeight = map[wml.BorderStyle]int{
	wml.BorderSingle: 1,
	wml.BorderOutset: 1,
	wml.BorderInset:  1,
	wml.BorderThick:  2,
	wml.BorderDouble: 3,
	wml.BorderDashed: 4,
	wml.BorderDotted: 5,
}

// Secondary priority breaks weight+size ties between style categories.
var borderStylePriority = map[wml.BorderStyle]int{
	wml.BorderSingle: 1,
	wml.BorderOutset: 2,
	wml.BorderInset:  3,
	wml.BorderThick:  4,
	wml.BorderDouble: 5,
	wml.BorderDashed: 6,
	wml.BorderDotted: 7,
}

// colorValue maps a declared border color to a comparable number. "auto" and
// unparsable values compare as black.
func colorValue(color string) int64 {
	s := strings.TrimPrefix(strings.TrimSpace(color), "#")
	if s == "" || strings.EqualFold(s, "auto") {
		return 0
	}
	v, err := strconv.ParseInt(s, 16, 64)
	if err != nil {
		return 0
	}
	return v
}

// winningBorder picks the edge winner between two present sides. Returns nil
// when neither overrides (either side absent/none).
func winningBorder(a, b *wml.BorderSide) *wml.BorderSide {
	if a.IsNone() || b.IsNone() {
		return nil
	}
	if w := borderStyleWeight[a.Style] - borderStyleWeight[b.Style]; w != 0 {
		if w > 0 {
			return a
		}
		return b
	}
	if d := a.Size - b.Size; d != 0 {
		if d > 0 {
			return a
		}
		return b
	}
	if p := borderStylePriority[a.Style] - borderStylePriority[b.Style]; p != 0 {
		if p > 0 {
			return a
		}
		return b
	}
	if colorValue(a.Color) <= colorValue(b.Color) {
		return a
	}
	return b
}

// cellGrid is the row-major expansion of a table: spans repeat the same cell
// pointer across the columns and merged rows they cover.
type cellGrid struct {
	cells [][]*wml.Cell
}

func expandGrid(t *wml.Table) *cellGrid {
	g := &cellGrid{}

	cols := len(t.Grid)
	// restartFor tracks which cell owns each grid column's vertical merge
	var restartFor []*wml.Cell

	for r := range t.Rows {
		var row []*wml.Cell
		col := 0
		for ci := range t.Rows[r].Cells {
			cell := &t.Rows[r].Cells[ci]
			span := cell.Props.GridSpan
			if span < 1 {
				span = 1
			}
			owner := cell
			if cell.Props.VMerge == wml.MergeContinue && col < len(restartFor) && restartFor[col] != nil {
				owner = restartFor[col]
			}
			for s := 0; s < span; s++ {
				row = append(row, owner)
				at := col + s
				for len(restartFor) <= at {
					restartFor = append(restartFor, nil)
				}
				if cell.Props.VMerge == wml.MergeRestart {
					restartFor[at] = cell
				} else if cell.Props.VMerge == wml.MergeNone {
					restartFor[at] = nil
				}
			}
			col += span
		}
		if cols > 0 && len(row) > cols {
			row = row[:cols]
		}
		g.cells = append(g.cells, row)
	}
	return g
}

// ResolveTableBorders returns a copy of the table with every interior shared
// edge resolved: the winner's style, size and color are written to both
// adjacent cells. Exterior edges are left untouched. Running the resolver on
// its own output is a no-op.
func ResolveTableBorders(t *wml.Table) *wml.Table {
	resolved := cloneTableForBorders(t)
	grid := expandGrid(resolved)

	for r := range grid.cells {
		for c := range grid.cells[r] {
			cell := grid.cells[r][c]
			if cell == nil {
				continue
			}
			// right neighbor: my right edge vs their left edge
			if c+1 < len(grid.cells[r]) {
				if other := grid.cells[r][c+1]; other != nil && other != cell {
					resolveEdge(&cell.Props.Borders.Right, &other.Props.Borders.Left)
				}
			}
			// bottom neighbor: my bottom edge vs their top edge
			if r+1 < len(grid.cells) && c < len(grid.cells[r+1]) {
				if other := grid.cells[r+1][c]; other != nil && other != cell {
					resolveEdge(&cell.Props.Borders.Bottom, &other.Props.Borders.Top)
				}
			}
		}
	}
	return resolved
}

func resolveEdge(a, b **wml.BorderSide) {
	if *a == nil || *b == nil {
		return
	}
	winner := winningBorder(*a, *b)
	if winner == nil {
		return
	}
	w := *winner
	*a = &w
	wb := w
	*b = &wb
}

func cloneTableForBorders(t *wml.Table) *wml.Table {
	clone := &wml.Table{
		Props: t.Props,
		Grid:  append([]int(nil), t.Grid...),
		Rows:  make([]wml.Row, len(t.Rows)),
	}
	for r := range t.Rows {
		cells := make([]wml.Cell, len(t.Rows[r].Cells))
		for c := range t.Rows[r].Cells {
			src := &t.Rows[r].Cells[c]
			cells[c] = wml.Cell{Props: src.Props, Content: src.Content}
			cells[c].Props.Borders = wml.CellBorders{
				Top:    copySide(src.Props.Borders.Top),
				Left:   copySide(src.Props.Borders.Left),
				Bottom: copySide(src.Props.Borders.Bottom),
				Right:  copySide(src.Props.Borders.Right),
			}
		}
		clone.Rows[r] = wml.Row{Props: t.Rows[r].Props, Cells: cells}
	}
	return clone
}

func copySide(side *wml.BorderSide) *wml.BorderSide {
	if side == nil {
		return nil
	}
	clone := *side
	return &clone
}
