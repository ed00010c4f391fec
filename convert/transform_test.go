package convert

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap/zaptest"

	"docxodus/config"
	"docxodus/wml"
)

func testDocumentConfig(t *testing.T) *config.DocumentConfig {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("unable to load default configuration: %v", err)
	}
	return &cfg.Document
}

func plainRun(text string) wml.Inline {
	return wml.Inline{Kind: wml.InlineRun, Run: &wml.Run{Content: []wml.RunContent{{Kind: wml.RunText, Text: text}}}}
}

func para(content ...wml.Inline) wml.Block {
	return wml.Block{Kind: wml.BlockParagraph, Paragraph: &wml.Paragraph{Content: content}}
}

func inlineMarker(kind wml.MarkerKind, id, name string) wml.Inline {
	return wml.Inline{Kind: wml.InlineMarker, Marker: &wml.Marker{Kind: kind, ID: id, Name: name}}
}

func transformed(t *testing.T, cfg *config.DocumentConfig, doc *wml.Document, annotations map[string]AnnotationInfo) *etree.Document {
	t.Helper()
	tr := NewTransformer(cfg, nil, annotations, zaptest.NewLogger(t))
	return tr.Transform(doc, "test")
}

func TestTransformHeadingLevels(t *testing.T) {
	doc := &wml.Document{Body: []wml.Block{
		{Kind: wml.BlockParagraph, Paragraph: &wml.Paragraph{
			Props:   wml.ParagraphProperties{OutlineLevel: 2},
			Content: []wml.Inline{plainRun("outline heading")},
		}},
		{Kind: wml.BlockParagraph, Paragraph: &wml.Paragraph{
			Props:   wml.ParagraphProperties{StyleID: "Heading3"},
			Content: []wml.Inline{plainRun("styled heading")},
		}},
		para(plainRun("body text")),
	}}
	html := transformed(t, testDocumentConfig(t), doc, nil)

	if el := html.FindElement("//h2"); el == nil {
		t.Error("outline level 2 did not produce h2")
	}
	if el := html.FindElement("//h3"); el == nil {
		t.Error("Heading3 style did not produce h3")
	}
	if el := html.FindElement("//body/p"); el == nil {
		t.Error("body paragraph did not produce p")
	}
}

func TestTransformCommentHighlight(t *testing.T) {
	doc := &wml.Document{Body: []wml.Block{
		para(
			inlineMarker(wml.MarkerCommentRangeStart, "7", ""),
			plainRun("inside"),
			inlineMarker(wml.MarkerCommentRangeEnd, "7", ""),
			plainRun("outside"),
		),
	}}
	html := transformed(t, testDocumentConfig(t), doc, nil)

	wrapped := html.FindElements("//span[@data-comment-id='7']")
	if len(wrapped) != 1 {
		t.Fatalf("expected exactly 1 highlighted run, got %d", len(wrapped))
	}
	if got := wrapped[0].Text(); got != "inside" {
		t.Errorf("highlighted text = %q, want %q", got, "inside")
	}
}

func TestTransformNestedHighlightsMostRecentInnermost(t *testing.T) {
	doc := &wml.Document{Body: []wml.Block{
		para(
			inlineMarker(wml.MarkerCommentRangeStart, "1", ""),
			inlineMarker(wml.MarkerCommentRangeStart, "2", ""),
			plainRun("both"),
			inlineMarker(wml.MarkerCommentRangeEnd, "2", ""),
			inlineMarker(wml.MarkerCommentRangeEnd, "1", ""),
		),
	}}
	html := transformed(t, testDocumentConfig(t), doc, nil)

	outer := html.FindElement("//span[@data-comment-id='1']")
	if outer == nil {
		t.Fatal("outer highlight missing")
	}
	inner := outer.FindElement("./span[@data-comment-id='2']")
	if inner == nil {
		t.Fatal("most recently opened range is not the innermost container")
	}
}

func TestTransformUnterminatedRangeWrapsThroughEnd(t *testing.T) {
	doc := &wml.Document{Body: []wml.Block{
		para(inlineMarker(wml.MarkerCommentRangeStart, "9", ""), plainRun("first")),
		para(plainRun("last")),
	}}
	html := transformed(t, testDocumentConfig(t), doc, nil)

	wrapped := html.FindElements("//span[@data-comment-id='9']")
	if len(wrapped) != 2 {
		t.Fatalf("expected both runs highlighted through document end, got %d", len(wrapped))
	}
}

func TestTransformEndWithoutStartIgnored(t *testing.T) {
	doc := &wml.Document{Body: []wml.Block{
		para(inlineMarker(wml.MarkerCommentRangeEnd, "404", ""), plainRun("text")),
	}}
	html := transformed(t, testDocumentConfig(t), doc, nil)
	if spans := html.FindElements("//span[@data-comment-id]"); len(spans) != 0 {
		t.Errorf("dangling end marker produced %d highlights", len(spans))
	}
}

func TestTransformRevisions(t *testing.T) {
	body := []wml.Block{
		para(wml.Inline{Kind: wml.InlineRevision, Revision: &wml.Revision{
			Kind: wml.RevisionInsert, Author: "reviewer", Date: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Content: []wml.Inline{plainRun("added")},
		}}),
		para(wml.Inline{Kind: wml.InlineRevision, Revision: &wml.Revision{
			Kind:    wml.RevisionDelete,
			Content: []wml.Inline{plainRun("gone")},
		}}),
	}

	t.Run("show", func(t *testing.T) {
		cfg := testDocumentConfig(t)
		html := transformed(t, cfg, &wml.Document{Body: body}, nil)
		ins := html.FindElement("//ins")
		if ins == nil || ins.Text() != "added" {
			t.Error("insertion markup missing in show mode")
		}
		if ins != nil && ins.SelectAttrValue("data-author", "") != "reviewer" {
			t.Error("insertion lost its author")
		}
		if del := html.FindElement("//del"); del == nil || del.Text() != "gone" {
			t.Error("deletion markup missing in show mode")
		}
	})

	t.Run("accept", func(t *testing.T) {
		cfg := testDocumentConfig(t)
		cfg.Revisions.Mode = config.RevisionsModeAccept
		html := transformed(t, cfg, &wml.Document{Body: body}, nil)
		if html.FindElement("//ins") != nil || html.FindElement("//del") != nil {
			t.Error("revision markup present in accept mode")
		}
		var buf strings.Builder
		for _, p := range html.FindElements("//p") {
			buf.WriteString(p.Text())
		}
		if got := buf.String(); got != "added" {
			t.Errorf("accepted text = %q, want only inserted content", got)
		}
	})

	t.Run("hide deleted", func(t *testing.T) {
		cfg := testDocumentConfig(t)
		cfg.Revisions.Deleted = config.DeletedContentHide
		html := transformed(t, cfg, &wml.Document{Body: body}, nil)
		if html.FindElement("//del") != nil {
			t.Error("deleted content rendered in hide mode")
		}
	})
}

func TestTransformAnnotationSegments(t *testing.T) {
	annotations := map[string]AnnotationInfo{
		"anno-note-1": {ID: "a1", Label: "Note", Color: "#ffcc00"},
	}
	doc := &wml.Document{Body: []wml.Block{
		para(inlineMarker(wml.MarkerBookmarkStart, "10", "anno-note-1"), plainRun("first segment")),
		para(plainRun("middle segment")),
		para(plainRun("last segment"), inlineMarker(wml.MarkerBookmarkEnd, "10", "")),
		para(plainRun("after")),
	}}
	html := transformed(t, testDocumentConfig(t), doc, annotations)

	segs := html.FindElements("//span[@data-annotation-id='a1']")
	if len(segs) != 3 {
		t.Fatalf("expected 3 annotation segments, got %d", len(segs))
	}
	if cls := segs[0].SelectAttrValue("class", ""); cls != "annotation start" {
		t.Errorf("first segment class = %q", cls)
	}
	label := segs[0].FindElement("./span[@class='annotation-label']")
	if label == nil || label.Text() != "Note" {
		t.Error("floating label missing on first segment")
	}
	if cls := segs[1].SelectAttrValue("class", ""); cls != "annotation continuation" {
		t.Errorf("middle segment class = %q", cls)
	}
	if segs[1].FindElement("./span[@class='annotation-label']") != nil {
		t.Error("label repeated on continuation segment")
	}
	if cls := segs[2].SelectAttrValue("class", ""); cls != "annotation end" {
		t.Errorf("final segment class = %q", cls)
	}
}

func TestTransformAnnotationSingleSegment(t *testing.T) {
	annotations := map[string]AnnotationInfo{
		"anno-one": {ID: "a2", Label: "Lone"},
	}
	doc := &wml.Document{Body: []wml.Block{
		para(
			inlineMarker(wml.MarkerBookmarkStart, "11", "anno-one"),
			plainRun("only segment"),
			inlineMarker(wml.MarkerBookmarkEnd, "11", ""),
		),
	}}
	html := transformed(t, testDocumentConfig(t), doc, annotations)

	seg := html.FindElement("//span[@data-annotation-id='a2']")
	if seg == nil {
		t.Fatal("annotation segment missing")
	}
	if cls := seg.SelectAttrValue("class", ""); cls != "annotation single" {
		t.Errorf("segment class = %q, want %q", cls, "annotation single")
	}
	label := seg.FindElement("./span[@class='annotation-label']")
	if label == nil || label.Text() != "Lone" {
		t.Error("floating label missing on single segment")
	}
}

func TestTransformUnterminatedAnnotationModes(t *testing.T) {
	annotations := map[string]AnnotationInfo{
		"anno-open": {ID: "a3", Label: "Open"},
	}
	doc := &wml.Document{Body: []wml.Block{
		para(inlineMarker(wml.MarkerBookmarkStart, "12", "anno-open"), plainRun("first")),
		para(plainRun("last")),
	}}

	t.Run("highlight", func(t *testing.T) {
		html := transformed(t, testDocumentConfig(t), doc, annotations)
		segs := html.FindElements("//span[@data-annotation-id='a3']")
		if len(segs) != 2 {
			t.Fatalf("expected 2 segments, got %d", len(segs))
		}
		if cls := segs[1].SelectAttrValue("class", ""); cls != "annotation continuation" {
			t.Errorf("trailing segment class = %q, range should stay visually open", cls)
		}
	})

	t.Run("force close", func(t *testing.T) {
		cfg := testDocumentConfig(t)
		cfg.Comments.Unterminated = config.UnterminatedRangeForceClose
		html := transformed(t, cfg, doc, annotations)
		segs := html.FindElements("//span[@data-annotation-id='a3']")
		if len(segs) != 2 {
			t.Fatalf("expected 2 segments, got %d", len(segs))
		}
		if cls := segs[1].SelectAttrValue("class", ""); cls != "annotation end" {
			t.Errorf("trailing segment class = %q, want %q", cls, "annotation end")
		}
	})
}

func TestTransformPlainBookmarkAnchor(t *testing.T) {
	doc := &wml.Document{Body: []wml.Block{
		para(inlineMarker(wml.MarkerBookmarkStart, "3", "chapter-two"), plainRun("text")),
	}}
	html := transformed(t, testDocumentConfig(t), doc, nil)
	if html.FindElement("//a[@id='chapter-two']") == nil {
		t.Error("plain bookmark did not produce an anchor")
	}
}

func TestTransformTableSpans(t *testing.T) {
	cellWith := func(text string, props wml.CellProperties) wml.Cell {
		return wml.Cell{Props: props, Content: []wml.Block{para(plainRun(text))}}
	}
	doc := &wml.Document{Body: []wml.Block{
		{Kind: wml.BlockTable, Table: &wml.Table{
			Grid: []int{1000, 1000, 1000},
			Rows: []wml.Row{
				{Cells: []wml.Cell{
					cellWith("wide", wml.CellProperties{GridSpan: 2}),
					cellWith("tall", wml.CellProperties{VMerge: wml.MergeRestart}),
				}},
				{Cells: []wml.Cell{
					cellWith("a", wml.CellProperties{}),
					cellWith("b", wml.CellProperties{}),
					cellWith("", wml.CellProperties{VMerge: wml.MergeContinue}),
				}},
			},
		}},
	}}
	html := transformed(t, testDocumentConfig(t), doc, nil)

	rows := html.FindElements("//tr")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0].FindElements("./td")
	if len(first) != 2 {
		t.Fatalf("expected 2 cells in first row, got %d", len(first))
	}
	if cs := first[0].SelectAttrValue("colspan", ""); cs != "2" {
		t.Errorf("colspan = %q, want 2", cs)
	}
	if rs := first[1].SelectAttrValue("rowspan", ""); rs != "2" {
		t.Errorf("rowspan = %q, want 2", rs)
	}
	// the merge continuation cell must not render
	if second := rows[1].FindElements("./td"); len(second) != 2 {
		t.Errorf("expected 2 cells in second row, got %d", len(second))
	}
}

func TestTransformRunStyling(t *testing.T) {
	doc := &wml.Document{Body: []wml.Block{
		para(wml.Inline{Kind: wml.InlineRun, Run: &wml.Run{
			Props:   wml.RunProperties{Bold: true, Italic: true, SizeHalfPoints: 28, Color: "336699"},
			Content: []wml.RunContent{{Kind: wml.RunText, Text: "styled"}},
		}}),
	}}
	html := transformed(t, testDocumentConfig(t), doc, nil)
	span := html.FindElement("//p/span")
	if span == nil {
		t.Fatal("styled run did not produce a span")
	}
	style := span.SelectAttrValue("style", "")
	for _, want := range []string{"font-weight: bold", "font-style: italic", "font-size: 14pt", "color: #336699"} {
		if !strings.Contains(style, want) {
			t.Errorf("style %q is missing %q", style, want)
		}
	}
}

func TestTransformMalformedInputProducesEmptyDocument(t *testing.T) {
	empty := wml.ParseDocumentXML(nil, zaptest.NewLogger(t))
	html := transformed(t, testDocumentConfig(t), empty, nil)
	body := html.FindElement("//body")
	if body == nil {
		t.Fatal("no body element")
	}
	if n := len(body.ChildElements()); n != 0 {
		t.Errorf("placeholder document rendered %d body children", n)
	}
}
