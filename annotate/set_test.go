package annotate

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"docxodus/wml"
)

func TestExportAnnotations(t *testing.T) {
	doc := singleParagraphDoc("export this exact span")
	p := testPackage(t, doc)
	log := zaptest.NewLogger(t)

	if _, err := AddAnnotation(p, doc, ByTextSearch("this exact", 1), "Check", "", "#123456", "", log); err != nil {
		t.Fatal(err)
	}

	set, err := ExportAnnotations(p, doc, log)
	if err != nil {
		t.Fatal(err)
	}
	if set.ContentHash != p.ContentHash() {
		t.Errorf("set hash %q != package hash %q", set.ContentHash, p.ContentHash())
	}
	if len(set.Annotations) != 1 {
		t.Fatalf("exported %d annotations, want 1", len(set.Annotations))
	}
	a := set.Annotations[0]
	if a.Span.Text != "this exact" {
		t.Errorf("span text = %q", a.Span.Text)
	}
	if a.Span.Start != 7 || a.Span.End != 17 {
		t.Errorf("span = [%d, %d), want [7, 17)", a.Span.Start, a.Span.End)
	}
	if a.Label != "Check" || a.Color != "#123456" {
		t.Errorf("label/color not exported: %+v", a)
	}
}

func TestSetEncodeDecodeRoundTrip(t *testing.T) {
	set := setOf(
		ExternalAnnotation{ID: "a1", Label: "First", Color: "#ff0000", Span: wml.TextSpan{Start: 3, End: 8, Text: "hello"}},
		ExternalAnnotation{Label: "No ID", Span: wml.TextSpan{Start: 10, End: 12, Text: "ab"}},
	)
	data, err := set.Encode()
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"contentHash"`) || !strings.Contains(s, `"annotations"`) {
		t.Errorf("unexpected field naming in %s", s)
	}
	if strings.Contains(s, `"color": ""`) || strings.Contains(s, `"id": ""`) || strings.Contains(s, `"createdAt"`) {
		t.Errorf("empty optional fields serialized: %s", s)
	}

	got, err := DecodeSet(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentHash != set.ContentHash || len(got.Annotations) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Annotations[0] != set.Annotations[0] || got.Annotations[1] != set.Annotations[1] {
		t.Errorf("annotations differ after round trip: %+v", got.Annotations)
	}
}

func TestDecodeSetMalformed(t *testing.T) {
	if _, err := DecodeSet([]byte("{not json")); err == nil {
		t.Error("malformed input decoded")
	}
}

func TestValidateCleanSet(t *testing.T) {
	doc := singleParagraphDoc("validate me end to end")
	p := testPackage(t, doc)
	log := zaptest.NewLogger(t)

	if _, err := AddAnnotation(p, doc, ByTextSearch("me end", 1), "OK", "", "", "", log); err != nil {
		t.Fatal(err)
	}
	set, err := ExportAnnotations(p, doc, log)
	if err != nil {
		t.Fatal(err)
	}
	if issues := Validate(set, p, doc, log); len(issues) != 0 {
		t.Errorf("clean set flagged: %v", issues)
	}
	if err := CombineIssues(nil); err != nil {
		t.Errorf("no issues combined to %v", err)
	}
}

func TestValidateIssueKinds(t *testing.T) {
	doc := singleParagraphDoc("short body")
	p := testPackage(t, doc)
	log := zaptest.NewLogger(t)

	set := &ExternalAnnotationSet{
		ContentHash: "sha256:somethingelse",
		Annotations: []ExternalAnnotation{
			{ID: "oob", Label: "L", Span: wml.TextSpan{Start: 5, End: 500, Text: "x"}},
			{ID: "drift", Label: "L", Span: wml.TextSpan{Start: 0, End: 5, Text: "other"}},
			{ID: "unnamed", Span: wml.TextSpan{Start: 0, End: 5, Text: "short"}},
		},
	}
	issues := Validate(set, p, doc, log)

	byKind := map[IssueKind][]string{}
	for _, i := range issues {
		byKind[i.Kind] = append(byKind[i.Kind], i.AnnotationID)
	}
	if len(byKind[IssueHashMismatch]) != 1 {
		t.Errorf("hash mismatch not reported: %v", issues)
	}
	if got := byKind[IssueOutOfBounds]; len(got) != 1 || got[0] != "oob" {
		t.Errorf("out of bounds = %v", got)
	}
	if got := byKind[IssueTextMismatch]; len(got) != 1 || got[0] != "drift" {
		t.Errorf("text mismatch = %v", got)
	}
	if got := byKind[IssueMissingLabel]; len(got) != 1 || got[0] != "unnamed" {
		t.Errorf("missing label = %v", got)
	}

	if err := CombineIssues(issues); err == nil {
		t.Error("issues combined to nil error")
	}
}
