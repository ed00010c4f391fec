package convert

import (
	"sort"

	"github.com/maruel/natural"
)

// RangeCategory distinguishes the kinds of document ranges tracked during
// conversion. Each category keeps its own open set.
type RangeCategory int

const (
	RangeComment RangeCategory = iota
	RangeAnnotation
)

type openRange struct {
	id    string
	order int
}

// RangeTracker follows bookmark and comment range markers through the
// document walk. Ranges open and close out of band with the element tree, so
// the dispatcher consults the tracker at every rendered piece of text to know
// which containers still wrap it.
type RangeTracker struct {
	open    map[RangeCategory][]openRange
	started map[string]bool
	seq     int
}

func NewRangeTracker() *RangeTracker {
	return &RangeTracker{
		open:    make(map[RangeCategory][]openRange),
		started: make(map[string]bool),
	}
}

// Open registers a range start. Opening an already open ID is a no-op.
func (t *RangeTracker) Open(cat RangeCategory, id string) {
	for _, r := range t.open[cat] {
		if r.id == id {
			return
		}
	}
	t.seq++
	t.open[cat] = append(t.open[cat], openRange{id: id, order: t.seq})
}

// Close unregisters a range. Closing a range that was never opened is
// silently ignored.
func (t *RangeTracker) Close(cat RangeCategory, id string) {
	ranges := t.open[cat]
	for i, r := range ranges {
		if r.id == id {
			t.open[cat] = append(ranges[:i], ranges[i+1:]...)
			return
		}
	}
}

// IsOpen reports whether the ID is currently open in the category.
func (t *RangeTracker) IsOpen(cat RangeCategory, id string) bool {
	for _, r := range t.open[cat] {
		if r.id == id {
			return true
		}
	}
	return false
}

// OpenRanges lists currently open IDs oldest first, so nesting order in the
// output is stable: the most recently opened range becomes the innermost
// container.
func (t *RangeTracker) OpenRanges(cat RangeCategory) []string {
	ranges := t.open[cat]
	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.id
	}
	return out
}

// AllOpen lists every still-open ID across categories in natural ID order.
// Used for the unterminated-range report at the end of conversion.
func (t *RangeTracker) AllOpen() []string {
	var out []string
	for _, ranges := range t.open {
		for _, r := range ranges {
			out = append(out, r.id)
		}
	}
	sort.Sort(natural.StringSlice(out))
	return out
}

// Reset clears all open ranges. Used by the force-close policy.
func (t *RangeTracker) Reset() {
	t.open = make(map[RangeCategory][]openRange)
}

// MarkRendered records that the first piece of content inside the range has
// been emitted and reports whether this call was the first. The first
// rendered segment of an annotation carries the label and start class.
func (t *RangeTracker) MarkRendered(id string) bool {
	if t.started[id] {
		return false
	}
	t.started[id] = true
	return true
}
