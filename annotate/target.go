// Package annotate anchors annotations in the document tree as bookmark
// range pairs, persists annotation records in a custom data part and projects
// exported annotation sets onto rendered output.
package annotate

// TargetKind names the active variant of a Target.
type TargetKind int

const (
	// TargetElement anchors to an existing named bookmark.
	TargetElement TargetKind = iota
	// TargetIndex anchors by structural indices.
	TargetIndex
	// TargetText anchors to the Nth occurrence of literal text anywhere in
	// the document.
	TargetText
	// TargetScopedText anchors to the Nth occurrence of literal text inside
	// an existing named bookmark.
	TargetScopedText
)

// IndexKind names the structural element an index target resolves.
type IndexKind int

const (
	IndexParagraph IndexKind = iota
	IndexRun
	IndexCell
)

// IndexSpec carries the indices of an index target. Unused indices stay -1.
type IndexSpec struct {
	Kind IndexKind

	Paragraph int
	// Inclusive end paragraph of a multi-paragraph range, -1 for a single
	// paragraph.
	EndParagraph int
	Run          int
	Table        int
	Row          int
	Cell         int
}

// Target is the tagged union of the ways an annotation can locate its
// content. Exactly one variant is active and it is chosen by the factory
// used; fields are never inspected to guess a mode.
type Target struct {
	kind       TargetKind
	elementID  string
	text       string
	occurrence int
	index      IndexSpec
}

func (t Target) Kind() TargetKind { return t.kind }

// ByElementID targets the content bounded by an existing bookmark.
func ByElementID(bookmarkName string) Target {
	return Target{kind: TargetElement, elementID: bookmarkName}
}

// ByTextSearch targets the Nth (1-based) occurrence of literal text.
func ByTextSearch(text string, occurrence int) Target {
	if occurrence < 1 {
		occurrence = 1
	}
	return Target{kind: TargetText, text: text, occurrence: occurrence}
}

// ByTextSearchIn targets the Nth (1-based) occurrence of literal text inside
// the content bounded by an existing bookmark.
func ByTextSearchIn(bookmarkName, text string, occurrence int) Target {
	if occurrence < 1 {
		occurrence = 1
	}
	return Target{kind: TargetScopedText, elementID: bookmarkName, text: text, occurrence: occurrence}
}

// ByParagraph targets a whole paragraph by its body position.
func ByParagraph(idx int) Target {
	return Target{kind: TargetIndex, index: IndexSpec{Kind: IndexParagraph, Paragraph: idx, EndParagraph: -1, Run: -1, Table: -1, Row: -1, Cell: -1}}
}

// ByParagraphRange targets paragraphs from..to inclusive.
func ByParagraphRange(from, to int) Target {
	return Target{kind: TargetIndex, index: IndexSpec{Kind: IndexParagraph, Paragraph: from, EndParagraph: to, Run: -1, Table: -1, Row: -1, Cell: -1}}
}

// ByRun targets a single run inside a paragraph.
func ByRun(paragraph, run int) Target {
	return Target{kind: TargetIndex, index: IndexSpec{Kind: IndexRun, Paragraph: paragraph, EndParagraph: -1, Run: run, Table: -1, Row: -1, Cell: -1}}
}

// ByCell targets the content of one table cell.
func ByCell(table, row, cell int) Target {
	return Target{kind: TargetIndex, index: IndexSpec{Kind: IndexCell, Paragraph: -1, EndParagraph: -1, Run: -1, Table: table, Row: row, Cell: cell}}
}
