package annotate

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"docxodus/docpkg"
	"docxodus/wml"
)

func testPackage(t *testing.T, doc *wml.Document) *docpkg.Package {
	t.Helper()
	data, err := wml.BuildDocumentXML(doc).WriteToBytes()
	if err != nil {
		t.Fatal(err)
	}
	return docpkg.New(map[string][]byte{docpkg.DocumentPartName: data}, zaptest.NewLogger(t))
}

func TestAddAnnotationPersists(t *testing.T) {
	doc := singleParagraphDoc("review this clause carefully")
	p := testPackage(t, doc)
	log := zaptest.NewLogger(t)

	a, err := AddAnnotation(p, doc, ByTextSearch("this clause", 1), "Legal Review", "lbl-7", "#ffcc00", "reviewer", log)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == "" || a.BookmarkName == "" {
		t.Fatalf("incomplete record: %+v", a)
	}
	if !strings.HasPrefix(a.BookmarkName, "anno-legal-review-") {
		t.Errorf("bookmark name = %q", a.BookmarkName)
	}
	if a.CreatedAt.IsZero() {
		t.Error("creation time not set")
	}

	loaded, err := LoadAnnotations(p, log)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d annotations, want 1", len(loaded))
	}
	got := loaded[0]
	if got.ID != a.ID || got.Label != "Legal Review" || got.LabelID != "lbl-7" ||
		got.Color != "#ffcc00" || got.Author != "reviewer" || got.BookmarkName != a.BookmarkName {
		t.Errorf("round trip lost fields: %+v", got)
	}

	// the document part must carry the live bookmark pair
	xdoc, err := p.PartDocument(docpkg.DocumentPartName)
	if err != nil {
		t.Fatal(err)
	}
	reparsed := wml.ParseDocumentXML(xdoc, log)
	if loc := locateBookmarkStart(reparsed, a.BookmarkName); loc == nil {
		t.Error("bookmark missing from persisted document part")
	}
}

func TestUpdateAnnotation(t *testing.T) {
	doc := singleParagraphDoc("update target text")
	p := testPackage(t, doc)
	log := zaptest.NewLogger(t)

	a, err := AddAnnotation(p, doc, ByTextSearch("target", 1), "Old", "", "", "", log)
	if err != nil {
		t.Fatal(err)
	}
	if err := UpdateAnnotation(p, a.ID, "New", "#00ff00", log); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadAnnotations(p, log)
	if err != nil {
		t.Fatal(err)
	}
	if loaded[0].Label != "New" || loaded[0].Color != "#00ff00" {
		t.Errorf("update not persisted: %+v", loaded[0])
	}

	if err := UpdateAnnotation(p, "no-such-id", "X", "", log); err == nil {
		t.Error("updating unknown annotation succeeded")
	}
}

func TestRemoveAnnotationDropsBookmark(t *testing.T) {
	doc := singleParagraphDoc("remove me entirely please")
	p := testPackage(t, doc)
	log := zaptest.NewLogger(t)

	a, err := AddAnnotation(p, doc, ByTextSearch("me entirely", 1), "Gone", "", "", "", log)
	if err != nil {
		t.Fatal(err)
	}
	if err := RemoveAnnotation(p, doc, a.ID, log); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadAnnotations(p, log)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Errorf("record still present after removal: %+v", loaded)
	}
	if loc := locateBookmarkStart(doc, a.BookmarkName); loc != nil {
		t.Error("bookmark pair survives removal")
	}
	if got := wml.ExtractStream(doc).Text; got != "remove me entirely please" {
		t.Errorf("text after removal = %q", got)
	}
}

func TestAddAnnotationStalesPageSpans(t *testing.T) {
	doc := singleParagraphDoc("one two three four")
	p := testPackage(t, doc)
	log := zaptest.NewLogger(t)

	first, err := AddAnnotation(p, doc, ByTextSearch("one", 1), "First", "", "", "", log)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadAnnotations(p, log)
	if err != nil {
		t.Fatal(err)
	}
	loaded[0].PageSpan = &PageSpan{StartPage: 1, EndPage: 1}
	if err := SaveAnnotations(p, loaded); err != nil {
		t.Fatal(err)
	}

	if _, err := AddAnnotation(p, doc, ByTextSearch("three", 1), "Second", "", "", "", log); err != nil {
		t.Fatal(err)
	}
	loaded, err = LoadAnnotations(p, log)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range loaded {
		if a.ID == first.ID {
			if a.PageSpan == nil || !a.PageSpan.Stale {
				t.Errorf("existing page span not marked stale: %+v", a.PageSpan)
			}
		}
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	doc := singleParagraphDoc("metadata carrier")
	p := testPackage(t, doc)
	log := zaptest.NewLogger(t)

	a, err := AddAnnotation(p, doc, ByTextSearch("carrier", 1), "Meta", "", "", "", log)
	if err != nil {
		t.Fatal(err)
	}
	a.Metadata = map[string]string{"source": "import", "ticket": "DOC-17"}
	if err := SaveAnnotations(p, []*CustomAnnotation{a}); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadAnnotations(p, log)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || len(loaded[0].Metadata) != 2 {
		t.Fatalf("metadata lost: %+v", loaded)
	}
	if loaded[0].Metadata["source"] != "import" || loaded[0].Metadata["ticket"] != "DOC-17" {
		t.Errorf("metadata round trip mismatch: %v", loaded[0].Metadata)
	}
}

func TestLoadAnnotationsMissingPart(t *testing.T) {
	p := testPackage(t, singleParagraphDoc("empty"))
	loaded, err := LoadAnnotations(p, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Errorf("expected no annotations, got %v", loaded)
	}
}

func TestBookmarkNameForSlug(t *testing.T) {
	name := bookmarkNameFor("Needs Review!", "0123456789abcdef")
	if name != "anno-needs-review-01234567" {
		t.Errorf("bookmark name = %q", name)
	}
}
