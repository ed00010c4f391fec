// Package wml holds the typed WordprocessingML document tree this engine
// operates on, together with parsing, serialization and text stream helpers.
package wml

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Document is the root of the main document part.
type Document struct {
	Body []Block
}

// BlockKind distinguishes the different kinds of block content.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockTable     BlockKind = "table"
	BlockMarker    BlockKind = "marker"
)

// Block stores a single piece of body content, keeping the original ordering.
// Bookmark and comment range markers are legal between paragraphs, hence the
// marker variant at block level.
type Block struct {
	Kind      BlockKind
	Paragraph *Paragraph
	Table     *Table
	Marker    *Marker
}

// MarkerKind distinguishes zero-width range markers.
type MarkerKind string

const (
	MarkerBookmarkStart     MarkerKind = "bookmarkStart"
	MarkerBookmarkEnd       MarkerKind = "bookmarkEnd"
	MarkerCommentRangeStart MarkerKind = "commentRangeStart"
	MarkerCommentRangeEnd   MarkerKind = "commentRangeEnd"
)

// Marker is a zero-width range boundary. Bookmarks carry a name on the start
// marker; start and end share the numeric ID.
type Marker struct {
	Kind MarkerKind
	ID   string
	Name string
}

// Paragraph is a single block paragraph with its properties and inline content.
type Paragraph struct {
	Props   ParagraphProperties
	Content []Inline
}

// AsPlainText returns the concatenated run text of the paragraph.
func (p *Paragraph) AsPlainText() string {
	var buf strings.Builder
	for i := range p.Content {
		buf.WriteString(p.Content[i].AsText())
	}
	return buf.String()
}

// InlineKind distinguishes different inline content types.
type InlineKind string

const (
	InlineRun       InlineKind = "run"
	InlineHyperlink InlineKind = "hyperlink"
	InlineRevision  InlineKind = "revision"
	InlineMarker    InlineKind = "marker"
)

// Inline stores a run, a hyperlink, a structural revision wrapper or a
// zero-width marker.
type Inline struct {
	Kind      InlineKind
	Run       *Run
	Hyperlink *Hyperlink
	Revision  *Revision
	Marker    *Marker
}

// AsText returns plain text of the inline item. Markers contribute nothing,
// deleted revision content is included - callers deciding on revision
// visibility must walk the tree themselves.
func (in *Inline) AsText() string {
	switch in.Kind {
	case InlineRun:
		if in.Run != nil {
			return in.Run.AsText()
		}
	case InlineHyperlink:
		if in.Hyperlink != nil {
			var buf strings.Builder
			for i := range in.Hyperlink.Content {
				buf.WriteString(in.Hyperlink.Content[i].AsText())
			}
			return buf.String()
		}
	case InlineRevision:
		if in.Revision != nil {
			var buf strings.Builder
			for i := range in.Revision.Content {
				buf.WriteString(in.Revision.Content[i].AsText())
			}
			return buf.String()
		}
	}
	return ""
}

// RevisionKind enumerates tracked change markers.
type RevisionKind string

const (
	RevisionInsert   RevisionKind = "ins"
	RevisionDelete   RevisionKind = "del"
	RevisionMoveFrom RevisionKind = "moveFrom"
	RevisionMoveTo   RevisionKind = "moveTo"
)

// Revision is structural: it wraps the inline content it inserted, deleted or
// moved, with authorship metadata.
type Revision struct {
	Kind    RevisionKind
	Author  string
	Date    time.Time
	Content []Inline
}

// Hyperlink wraps inline content linking to an external target or an
// in-document anchor.
type Hyperlink struct {
	RelID   string
	Target  string
	Anchor  string
	Tooltip string
	Content []Inline
}

// Run is the smallest formatted unit holding text and inline atoms.
type Run struct {
	Props   RunProperties
	Content []RunContent
}

// AsText returns the concatenated text of the run.
func (r *Run) AsText() string {
	var buf strings.Builder
	for i := range r.Content {
		if r.Content[i].Kind == RunText {
			buf.WriteString(r.Content[i].Text)
		}
	}
	return buf.String()
}

// RunContentKind distinguishes atoms inside a run.
type RunContentKind string

const (
	RunText             RunContentKind = "text"
	RunBreak            RunContentKind = "break"
	RunTab              RunContentKind = "tab"
	RunImage            RunContentKind = "image"
	RunCommentReference RunContentKind = "commentReference"
)

// BreakKind enumerates break types.
type BreakKind string

const (
	BreakLine   BreakKind = "textWrapping"
	BreakPage   BreakKind = "page"
	BreakColumn BreakKind = "column"
)

// RunContent is one atom of run content.
type RunContent struct {
	Kind      RunContentKind
	Text      string
	Break     BreakKind
	Image     *Image
	CommentID string
}

// Image references picture data embedded in the package.
type Image struct {
	RelID     string
	Name      string
	Alt       string
	WidthEMU  int64
	HeightEMU int64
}

// VerticalAlignment of run text.
type VerticalAlignment string

const (
	VertAlignBaseline    VerticalAlignment = "baseline"
	VertAlignSuperscript VerticalAlignment = "superscript"
	VertAlignSubscript   VerticalAlignment = "subscript"
)

// RunProperties carries direct run formatting.
type RunProperties struct {
	Bold       bool
	Italic     bool
	Underline  bool
	Strike     bool
	FontFamily string
	// Half-points, as stored in the source format.
	SizeHalfPoints int
	Color          string
	Highlight      string
	VertAlign      VerticalAlignment
	Lang           language.Tag
}

// TabAlignment governs tab layout against a stop.
type TabAlignment string

const (
	TabAlignLeft    TabAlignment = "left"
	TabAlignStart   TabAlignment = "start"
	TabAlignRight   TabAlignment = "right"
	TabAlignEnd     TabAlignment = "end"
	TabAlignCenter  TabAlignment = "center"
	TabAlignDecimal TabAlignment = "decimal"
	TabAlignBar     TabAlignment = "bar"
	TabAlignClear   TabAlignment = "clear"
)

// LeaderChar fills the gap a tab produces.
type LeaderChar string

const (
	LeaderNone       LeaderChar = "none"
	LeaderDot        LeaderChar = "dot"
	LeaderHyphen     LeaderChar = "hyphen"
	LeaderUnderscore LeaderChar = "underscore"
)

// TabStop is one configured stop, position in twips.
type TabStop struct {
	Position  int
	Alignment TabAlignment
	Leader    LeaderChar
}

// Indentation of a paragraph, twips. Hanging and FirstLine are exclusive in
// the source format; both kept as parsed.
type Indentation struct {
	Left      int
	Right     int
	FirstLine int
	Hanging   int
}

// ParagraphProperties carries direct paragraph formatting.
type ParagraphProperties struct {
	StyleID       string
	Justification string
	// 1-based heading level, 0 means body text.
	OutlineLevel       int
	Indent             Indentation
	Tabs               []TabStop
	SpacingBeforeTwips int
	SpacingAfterTwips  int
}

// BorderStyle enumerates border line styles we distinguish.
type BorderStyle string

const (
	BorderNone   BorderStyle = "none"
	BorderNil    BorderStyle = "nil"
	BorderSingle BorderStyle = "single"
	BorderThick  BorderStyle = "thick"
	BorderDouble BorderStyle = "double"
	BorderDotted BorderStyle = "dotted"
	BorderDashed BorderStyle = "dashed"
	BorderOutset BorderStyle = "outset"
	BorderInset  BorderStyle = "inset"
)

// BorderSide is one declared border: style, size in eighths of a point,
// hex color or "auto", and spacing offset in points.
type BorderSide struct {
	Style BorderStyle
	Size  int
	Color string
	Space int
}

// IsNone reports whether the side declares no visible border.
func (b *BorderSide) IsNone() bool {
	return b == nil || b.Style == BorderNone || b.Style == BorderNil
}

// CellBorders groups the four declared edges of a table cell.
type CellBorders struct {
	Top    *BorderSide
	Left   *BorderSide
	Bottom *BorderSide
	Right  *BorderSide
}

// MergeMode is the vertical merge tri-state of a cell.
type MergeMode int

const (
	MergeNone MergeMode = iota
	MergeRestart
	MergeContinue
)

// CellProperties carries direct cell formatting.
type CellProperties struct {
	GridSpan   int
	VMerge     MergeMode
	Borders    CellBorders
	Shading    string
	WidthTwips int
	VAlign     string
}

// Cell holds block content.
type Cell struct {
	Props   CellProperties
	Content []Block
}

// AsPlainText returns concatenated text of all paragraphs in the cell.
func (c *Cell) AsPlainText() string {
	var buf strings.Builder
	for i := range c.Content {
		if c.Content[i].Kind == BlockParagraph && c.Content[i].Paragraph != nil {
			buf.WriteString(c.Content[i].Paragraph.AsPlainText())
		}
	}
	return buf.String()
}

// RowProperties carries direct row formatting.
type RowProperties struct {
	Header      bool
	HeightTwips int
}

// Row is one table row.
type Row struct {
	Props RowProperties
	Cells []Cell
}

// TableProperties carries direct table formatting.
type TableProperties struct {
	StyleID     string
	WidthTwips  int
	Borders     CellBorders
	CellMargins Indentation
}

// Table with its column grid (twips) and rows.
type Table struct {
	Props TableProperties
	Grid  []int
	Rows  []Row
}

// Comment is an entry of the comments part keyed by the range marker ID.
type Comment struct {
	ID     string
	Author string
	Date   time.Time
	Text   string
}

// Comments maps marker IDs to comment records.
type Comments map[string]*Comment
