package wml

import (
	"strings"
	"unicode/utf8"
)

// Text stream extraction. The materializer and the validator both work over
// one logical string concatenated from all text-bearing leaves, with a
// parallel offset table pointing back into the tree. Offsets are byte
// offsets into the concatenated string.

// TextSpan is a half-open [Start, End) range over a specific text stream.
// Source text and rendered HTML text are different streams - spans from one
// must never be applied to the other.
type TextSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text,omitempty"`
}

// Segment maps one run's text onto the concatenated stream. Container and
// Index locate the run inside its parent inline list so edits can replace it
// in place.
type Segment struct {
	Container *[]Inline
	Index     int
	Run       *Run
	Start     int
	End       int
}

// Stream is the concatenated text with its offset table, ordered by Start.
type Stream struct {
	Text     string
	Segments []Segment
}

// ExtractStream walks the document depth-first, left to right, and collects
// every non-empty run text. Markers contribute nothing. Revision content is
// included regardless of kind - stream consumers that honor accept/reject
// semantics filter on their own.
func ExtractStream(d *Document) *Stream {
	s := &Stream{}
	var buf strings.Builder

	var walkInlines func(container *[]Inline)
	walkInlines = func(container *[]Inline) {
		for i := range *container {
			in := &(*container)[i]
			switch in.Kind {
			case InlineRun:
				if in.Run == nil {
					continue
				}
				text := in.Run.AsText()
				if text == "" {
					continue
				}
				start := buf.Len()
				buf.WriteString(text)
				s.Segments = append(s.Segments, Segment{
					Container: container,
					Index:     i,
					Run:       in.Run,
					Start:     start,
					End:       buf.Len(),
				})
			case InlineHyperlink:
				if in.Hyperlink != nil {
					walkInlines(&in.Hyperlink.Content)
				}
			case InlineRevision:
				if in.Revision != nil {
					walkInlines(&in.Revision.Content)
				}
			}
		}
	}

	var walkBlocks func(blocks *[]Block)
	walkBlocks = func(blocks *[]Block) {
		for i := range *blocks {
			blk := &(*blocks)[i]
			switch blk.Kind {
			case BlockParagraph:
				if blk.Paragraph != nil {
					walkInlines(&blk.Paragraph.Content)
				}
			case BlockTable:
				if blk.Table == nil {
					continue
				}
				for r := range blk.Table.Rows {
					for c := range blk.Table.Rows[r].Cells {
						walkBlocks(&blk.Table.Rows[r].Cells[c].Content)
					}
				}
			}
		}
	}

	walkBlocks(&d.Body)
	s.Text = buf.String()
	return s
}

// FindOccurrences returns every occurrence of pattern in text, advancing one
// character after each match so adjacent overlapping occurrences are all
// found: FindOccurrences("aaa", "aa") yields (0,2) and (1,3).
func FindOccurrences(text, pattern string) []TextSpan {
	if pattern == "" {
		return nil
	}
	var spans []TextSpan
	for at := 0; at <= len(text)-len(pattern); {
		i := strings.Index(text[at:], pattern)
		if i < 0 {
			break
		}
		start := at + i
		spans = append(spans, TextSpan{Start: start, End: start + len(pattern), Text: pattern})
		_, size := utf8.DecodeRuneInString(text[start:])
		if size == 0 {
			break
		}
		at = start + size
	}
	return spans
}

// SegmentsInRange returns the segments overlapping [start, end), in stream
// order.
func (s *Stream) SegmentsInRange(start, end int) []Segment {
	var out []Segment
	for _, seg := range s.Segments {
		if seg.End <= start || seg.Start >= end {
			continue
		}
		out = append(out, seg)
	}
	return out
}
