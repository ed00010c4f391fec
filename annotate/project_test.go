package annotate

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap/zaptest"

	"docxodus/wml"
)

// htmlPage builds a minimal rendered tree: one paragraph element per string.
func htmlPage(paragraphs ...string) *etree.Document {
	doc := etree.NewDocument()
	html := doc.CreateElement("html")
	head := html.CreateElement("head")
	head.CreateElement("title").SetText("invisible")
	body := html.CreateElement("body")
	for _, p := range paragraphs {
		body.CreateElement("p").SetText(p)
	}
	return doc
}

func setOf(annotations ...ExternalAnnotation) *ExternalAnnotationSet {
	return &ExternalAnnotationSet{ContentHash: "sha256:test", Annotations: annotations}
}

func annAt(id, label, text string, start int) ExternalAnnotation {
	return ExternalAnnotation{ID: id, Label: label, Span: wml.TextSpan{Start: start, End: start + len(text), Text: text}}
}

func spansWithClass(doc *etree.Document, class string) []*etree.Element {
	var out []*etree.Element
	for _, el := range doc.FindElements("//span") {
		if strings.HasPrefix(el.SelectAttrValue("class", ""), class) {
			out = append(out, el)
		}
	}
	return out
}

func TestProjectSingleLeaf(t *testing.T) {
	html := htmlPage("the quick brown fox")
	p := NewProjector("annotation", zaptest.NewLogger(t))

	n := p.Project(setOf(annAt("a1", "Speed", "quick", 4)), html)
	if n != 1 {
		t.Fatalf("projected %d, want 1", n)
	}

	spans := spansWithClass(html, "annotation")
	if len(spans) != 1 {
		t.Fatalf("span count = %d, want 1", len(spans))
	}
	s := spans[0]
	if got := s.SelectAttrValue("class", ""); got != "annotation single" {
		t.Errorf("class = %q, want %q", got, "annotation single")
	}
	if got := s.Text(); got != "quick" {
		t.Errorf("span text = %q", got)
	}
	if got := s.SelectAttrValue("data-label", ""); got != "Speed" {
		t.Errorf("data-label = %q", got)
	}
	if got := s.SelectAttrValue("data-annotation-id", ""); got != "a1" {
		t.Errorf("data-annotation-id = %q", got)
	}
}

func TestProjectMissingTextDroppedOthersSurvive(t *testing.T) {
	html := htmlPage("alpha beta gamma")
	p := NewProjector("annotation", zaptest.NewLogger(t))

	set := setOf(
		annAt("gone", "Gone", "vanished text", 0),
		annAt("kept", "Kept", "beta", 6),
	)
	n := p.Project(set, html)
	if n != 1 {
		t.Fatalf("projected %d, want 1", n)
	}
	spans := spansWithClass(html, "annotation")
	if len(spans) != 1 || spans[0].SelectAttrValue("data-annotation-id", "") != "kept" {
		t.Fatalf("surviving annotation not projected: %v", spans)
	}
}

func TestProjectIdenticalTextsGetDistinctOffsets(t *testing.T) {
	html := htmlPage("repeat and repeat again")
	p := NewProjector("annotation", zaptest.NewLogger(t))

	n := p.Project(setOf(
		annAt("a1", "First", "repeat", 0),
		annAt("a2", "Second", "repeat", 11),
	), html)
	if n != 2 {
		t.Fatalf("projected %d, want 2", n)
	}

	spans := spansWithClass(html, "annotation")
	if len(spans) != 2 {
		t.Fatalf("span count = %d, want 2", len(spans))
	}
	seen := map[string]bool{}
	for _, s := range spans {
		seen[s.SelectAttrValue("data-annotation-id", "")] = true
		if got := s.Text(); got != "repeat" {
			t.Errorf("span text = %q", got)
		}
	}
	if !seen["a1"] || !seen["a2"] {
		t.Errorf("expected both annotations projected, got %v", seen)
	}
}

func TestProjectAcrossLeavesClasses(t *testing.T) {
	html := htmlPage("first paragraph", "second paragraph", "third paragraph")
	p := NewProjector("annotation", zaptest.NewLogger(t))

	// spans the tail of paragraph one, all of two, the head of three
	text := "paragraphsecond paragraphthird"
	n := p.Project(setOf(annAt("a1", "Wide", text, 6)), html)
	if n != 1 {
		t.Fatalf("projected %d, want 1", n)
	}

	spans := spansWithClass(html, "annotation")
	if len(spans) != 3 {
		t.Fatalf("span count = %d, want 3", len(spans))
	}
	wantClasses := []string{"annotation start", "annotation continuation", "annotation end"}
	for i, s := range spans {
		if got := s.SelectAttrValue("class", ""); got != wantClasses[i] {
			t.Errorf("span %d class = %q, want %q", i, got, wantClasses[i])
		}
	}
	if spans[0].SelectAttrValue("data-label", "") != "Wide" {
		t.Error("first segment missing data-label")
	}
	if spans[1].SelectAttrValue("data-label", "") != "" {
		t.Error("interior segment carries data-label")
	}
}

func TestProjectPreservesSurroundingText(t *testing.T) {
	html := htmlPage("before target after")
	p := NewProjector("annotation", zaptest.NewLogger(t))

	if n := p.Project(setOf(annAt("a1", "L", "target", 7)), html); n != 1 {
		t.Fatalf("projected %d, want 1", n)
	}
	pos := 0
	leaves := collectLeaves(html.Root(), &pos, nil)
	if got := renderedText(leaves); got != "before target after" {
		t.Errorf("rendered text = %q", got)
	}
}

func TestProjectCustomClass(t *testing.T) {
	html := htmlPage("some marked words")
	p := NewProjector("note", zaptest.NewLogger(t))

	if n := p.Project(setOf(annAt("a1", "L", "marked", 5)), html); n != 1 {
		t.Fatalf("projected %d, want 1", n)
	}
	if spans := spansWithClass(html, "note"); len(spans) != 1 {
		t.Errorf("span count with custom class = %d, want 1", len(spans))
	}
}

func TestProjectEmptySet(t *testing.T) {
	html := htmlPage("nothing to do")
	p := NewProjector("annotation", zaptest.NewLogger(t))
	if n := p.Project(setOf(), html); n != 0 {
		t.Errorf("projected %d, want 0", n)
	}
}
