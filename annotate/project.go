package annotate

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"docxodus/wml"
)

// Projector overlays an exported annotation set onto a rendered HTML tree by
// literal text search. It never touches the source document; projection is
// best-effort and an annotation whose text is gone is dropped, not an error.
type Projector struct {
	class string
	log   *zap.Logger
}

func NewProjector(class string, log *zap.Logger) *Projector {
	if class == "" {
		class = "annotation"
	}
	return &Projector{class: class, log: log}
}

// textLeaf maps one visible character data node onto the concatenated
// rendered text.
type textLeaf struct {
	parent *etree.Element
	child  int
	data   *etree.CharData
	start  int
	end    int
}

// subtrees that carry no visible text
var invisibleTags = map[string]struct{}{
	"head":   {},
	"script": {},
	"style":  {},
	"title":  {},
}

func collectLeaves(el *etree.Element, pos *int, out []textLeaf) []textLeaf {
	for i, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if t.Data == "" {
				continue
			}
			out = append(out, textLeaf{parent: el, child: i, data: t, start: *pos, end: *pos + len(t.Data)})
			*pos += len(t.Data)
		case *etree.Element:
			if _, skip := invisibleTags[t.Tag]; skip {
				continue
			}
			out = collectLeaves(t, pos, out)
		}
	}
	return out
}

func renderedText(leaves []textLeaf) string {
	var buf strings.Builder
	for _, l := range leaves {
		buf.WriteString(l.data.Data)
	}
	return buf.String()
}

// Project wraps each annotation's matched text in labeled spans. Returns the
// number of annotations that found a home. Annotations are processed by
// original start ascending, end descending, so outer spans of nested pairs
// are wrapped first; after every wrap the leaf offsets are rebuilt because
// the edit invalidates them.
func (p *Projector) Project(set *ExternalAnnotationSet, html *etree.Document) int {
	root := html.Root()
	if root == nil {
		return 0
	}

	annotations := append([]ExternalAnnotation(nil), set.Annotations...)
	sort.SliceStable(annotations, func(i, j int) bool {
		if annotations[i].Span.Start != annotations[j].Span.Start {
			return annotations[i].Span.Start < annotations[j].Span.Start
		}
		return annotations[i].Span.End > annotations[j].Span.End
	})

	used := make(map[int]bool)
	projected := 0
	for _, a := range annotations {
		if a.Span.Text == "" {
			p.log.Debug("Annotation has no expected text, skipping", zap.String("id", a.ID))
			continue
		}
		pos := 0
		leaves := collectLeaves(root, &pos, nil)
		text := renderedText(leaves)

		at := -1
		for _, occ := range wml.FindOccurrences(text, a.Span.Text) {
			if !used[occ.Start] {
				at = occ.Start
				break
			}
		}
		if at < 0 {
			p.log.Warn("Annotation text not found in rendered output, dropping", zap.String("id", a.ID), zap.String("label", a.Label))
			continue
		}
		used[at] = true
		p.wrap(leaves, at, at+len(a.Span.Text), &a)
		projected++
	}
	return projected
}

// wrap splits every leaf overlapping [from, to) and encloses the overlapping
// part in an annotation span. First segment carries the label and the
// start/single class, interior ones continuation, the last one end.
func (p *Projector) wrap(leaves []textLeaf, from, to int, a *ExternalAnnotation) {
	var hit []textLeaf
	for _, l := range leaves {
		if l.end <= from || l.start >= to {
			continue
		}
		hit = append(hit, l)
	}

	// edits go last to first so earlier child indexes stay valid when two
	// leaves share a parent
	for i := len(hit) - 1; i >= 0; i-- {
		l := hit[i]
		class := p.class
		switch {
		case len(hit) == 1:
			class += " single"
		case i == 0:
			class += " start"
		case i == len(hit)-1:
			class += " end"
		default:
			class += " continuation"
		}

		ls, le := from-l.start, to-l.start
		if ls < 0 {
			ls = 0
		}
		if le > len(l.data.Data) {
			le = len(l.data.Data)
		}
		before, mid, after := l.data.Data[:ls], l.data.Data[ls:le], l.data.Data[le:]

		span := etree.NewElement("span")
		span.CreateAttr("class", class)
		if a.ID != "" {
			span.CreateAttr("data-annotation-id", a.ID)
		}
		if i == 0 {
			span.CreateAttr("data-label", a.Label)
		}
		if a.Color != "" {
			span.CreateAttr("data-color", a.Color)
		}
		span.SetText(mid)

		at := l.child
		l.parent.RemoveChildAt(at)
		if before != "" {
			l.parent.InsertChildAt(at, etree.NewText(before))
			at++
		}
		l.parent.InsertChildAt(at, span)
		at++
		if after != "" {
			l.parent.InsertChildAt(at, etree.NewText(after))
		}
	}
}
