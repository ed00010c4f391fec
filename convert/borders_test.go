package convert

import (
	"testing"

	"docxodus/wml"
)

func side(style wml.BorderStyle, size int, color string) *wml.BorderSide {
	return &wml.BorderSide{Style: style, Size: size, Color: color}
}

func twoCellRow(left, right wml.CellBorders) *wml.Table {
	return &wml.Table{
		Grid: []int{2400, 2400},
		Rows: []wml.Row{
			{Cells: []wml.Cell{
				{Props: wml.CellProperties{Borders: left}},
				{Props: wml.CellProperties{Borders: right}},
			}},
		},
	}
}

func TestResolveSharedEdgeWinner(t *testing.T) {
	tests := []struct {
		name  string
		a, b  *wml.BorderSide
		want  wml.BorderStyle
		wSize int
	}{
		{"weight wins", side(wml.BorderSingle, 4, "000000"), side(wml.BorderDouble, 4, "000000"), wml.BorderDouble, 4},
		{"size breaks tie", side(wml.BorderSingle, 8, "000000"), side(wml.BorderSingle, 4, "000000"), wml.BorderSingle, 8},
		{"color breaks final tie", side(wml.BorderSingle, 4, "FF0000"), side(wml.BorderSingle, 4, "0000FF"), wml.BorderSingle, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tbl := twoCellRow(
				wml.CellBorders{Right: tc.a},
				wml.CellBorders{Left: tc.b},
			)
			got := ResolveTableBorders(tbl)
			r := got.Rows[0].Cells[0].Props.Borders.Right
			l := got.Rows[0].Cells[1].Props.Borders.Left
			if r == nil || l == nil {
				t.Fatal("resolved edge is missing on one side")
			}
			if r.Style != tc.want || l.Style != tc.want {
				t.Errorf("got styles %s / %s, want %s", r.Style, l.Style, tc.want)
			}
			if r.Size != tc.wSize || l.Size != tc.wSize {
				t.Errorf("got sizes %d / %d, want %d", r.Size, l.Size, tc.wSize)
			}
			if *r != *l {
				t.Errorf("sides disagree after resolution: %+v vs %+v", *r, *l)
			}
		})
	}
}

func TestResolveColorTieLowerValueWins(t *testing.T) {
	tbl := twoCellRow(
		wml.CellBorders{Right: side(wml.BorderSingle, 4, "FF0000")},
		wml.CellBorders{Left: side(wml.BorderSingle, 4, "0000FF")},
	)
	got := ResolveTableBorders(tbl)
	if c := got.Rows[0].Cells[0].Props.Borders.Right.Color; c != "0000FF" {
		t.Errorf("expected lower color value to win, got %s", c)
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	a, b := side(wml.BorderThick, 6, "00FF00"), side(wml.BorderSingle, 12, "000000")

	ab := ResolveTableBorders(twoCellRow(wml.CellBorders{Right: a}, wml.CellBorders{Left: b}))
	ba := ResolveTableBorders(twoCellRow(wml.CellBorders{Right: b}, wml.CellBorders{Left: a}))

	gotAB := *ab.Rows[0].Cells[0].Props.Borders.Right
	gotBA := *ba.Rows[0].Cells[0].Props.Borders.Right
	if gotAB != gotBA {
		t.Errorf("edge resolution depends on declaration order: %+v vs %+v", gotAB, gotBA)
	}
}

func TestResolveNoneNeverOverrides(t *testing.T) {
	tbl := twoCellRow(
		wml.CellBorders{Right: side(wml.BorderNone, 0, "")},
		wml.CellBorders{Left: side(wml.BorderDouble, 8, "000000")},
	)
	got := ResolveTableBorders(tbl)
	if s := got.Rows[0].Cells[0].Props.Borders.Right.Style; s != wml.BorderNone {
		t.Errorf("none side was overridden to %s", s)
	}
	if s := got.Rows[0].Cells[1].Props.Borders.Left.Style; s != wml.BorderDouble {
		t.Errorf("declared side lost its border, got %s", s)
	}
}

func TestResolveIdempotent(t *testing.T) {
	tbl := &wml.Table{
		Grid: []int{2400, 2400},
		Rows: []wml.Row{
			{Cells: []wml.Cell{
				{Props: wml.CellProperties{Borders: wml.CellBorders{
					Right:  side(wml.BorderSingle, 4, "000000"),
					Bottom: side(wml.BorderDotted, 4, "000000"),
				}}},
				{Props: wml.CellProperties{Borders: wml.CellBorders{Left: side(wml.BorderDouble, 4, "000000")}}},
			}},
			{Cells: []wml.Cell{
				{Props: wml.CellProperties{Borders: wml.CellBorders{Top: side(wml.BorderSingle, 2, "000000")}}},
				{Props: wml.CellProperties{}},
			}},
		},
	}
	once := ResolveTableBorders(tbl)
	twice := ResolveTableBorders(once)
	for r := range once.Rows {
		for c := range once.Rows[r].Cells {
			b1, b2 := once.Rows[r].Cells[c].Props.Borders, twice.Rows[r].Cells[c].Props.Borders
			for name, pair := range map[string][2]*wml.BorderSide{
				"top": {b1.Top, b2.Top}, "left": {b1.Left, b2.Left},
				"bottom": {b1.Bottom, b2.Bottom}, "right": {b1.Right, b2.Right},
			} {
				if (pair[0] == nil) != (pair[1] == nil) {
					t.Fatalf("cell %d.%d %s edge presence changed on second run", r, c, name)
				}
				if pair[0] != nil && *pair[0] != *pair[1] {
					t.Errorf("cell %d.%d %s edge changed on second run: %+v vs %+v", r, c, name, *pair[0], *pair[1])
				}
			}
		}
	}
}

func TestResolveInteriorOnly(t *testing.T) {
	outer := side(wml.BorderDotted, 2, "FF00FF")
	tbl := twoCellRow(
		wml.CellBorders{Left: outer, Right: side(wml.BorderSingle, 4, "000000")},
		wml.CellBorders{Left: side(wml.BorderDouble, 4, "000000")},
	)
	got := ResolveTableBorders(tbl)
	if l := got.Rows[0].Cells[0].Props.Borders.Left; *l != *outer {
		t.Errorf("exterior edge was touched: %+v", *l)
	}
}

func TestExpandGridSpansAndMerges(t *testing.T) {
	tbl := &wml.Table{
		Grid: []int{1000, 1000, 1000},
		Rows: []wml.Row{
			{Cells: []wml.Cell{
				{Props: wml.CellProperties{GridSpan: 2, VMerge: wml.MergeRestart}},
				{Props: wml.CellProperties{}},
			}},
			{Cells: []wml.Cell{
				{Props: wml.CellProperties{GridSpan: 2, VMerge: wml.MergeContinue}},
				{Props: wml.CellProperties{}},
			}},
		},
	}
	g := expandGrid(tbl)
	if len(g.cells) != 2 || len(g.cells[0]) != 3 || len(g.cells[1]) != 3 {
		t.Fatalf("unexpected grid shape: %dx%d", len(g.cells), len(g.cells[0]))
	}
	if g.cells[0][0] != g.cells[0][1] {
		t.Error("grid span does not repeat the cell across columns")
	}
	if g.cells[1][0] != g.cells[0][0] {
		t.Error("vertical merge continuation does not point at the restart cell")
	}
	if g.cells[1][2] == g.cells[0][2] {
		t.Error("unmerged cells must stay distinct between rows")
	}
}
