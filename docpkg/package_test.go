package docpkg

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap/zaptest"
)

func testParts() map[string][]byte {
	return map[string][]byte{
		DocumentPartName: []byte(`<w:document xmlns:w="http://example.com/w"><w:body><w:p/></w:body></w:document>`),
		"word/_rels/document.xml.rels": []byte(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
			<Relationship Id="rId1" Type="http://example.com/image" Target="media/image1.png"/>
			<Relationship Id="rId2" Type="http://example.com/hyperlink" Target="https://example.com/" TargetMode="External"/>
		</Relationships>`),
		"word/media/image1.png":     {0x89, 0x50, 0x4e, 0x47},
		"customXml/annotations.xml": []byte(`<annotations/>`),
		"customXml/item1.xml":       []byte(`<item/>`),
	}
}

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash([]byte("document bytes"))
	h2 := ComputeHash([]byte("document bytes"))
	if h1 != h2 {
		t.Fatal("hash is not deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(h1))
	}
	if h1 != strings.ToLower(h1) {
		t.Fatal("hash must be lowercase")
	}
	if ComputeHash([]byte("other")) == h1 {
		t.Fatal("different content must hash differently")
	}
}

func TestContentHashIndependentOfEntryOrder(t *testing.T) {
	log := zaptest.NewLogger(t)
	parts := testParts()

	// container entries written in reverse name order
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	fname := filepath.Join(t.TempDir(), "ordered.docx")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatal(err)
	}
	zw := fixzip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(parts[name]); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	opened, err := Open(fname, log)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := opened.ContentHash(), New(parts, log).ContentHash(); got != want {
		t.Errorf("hash depends on construction path: opened %s, built %s", got, want)
	}
}

func TestPackagePartAccess(t *testing.T) {
	log := zaptest.NewLogger(t)
	p := New(testParts(), log)

	if !p.HasPart(DocumentPartName) {
		t.Fatal("document part missing")
	}
	if _, err := p.PartBytes("word/nothing.xml"); !errors.Is(err, ErrPartNotFound) {
		t.Fatalf("expected ErrPartNotFound, got %v", err)
	}

	doc, err := p.PartDocument(DocumentPartName)
	if err != nil {
		t.Fatalf("unable to parse document part: %v", err)
	}
	if doc.Root() == nil || doc.Root().Tag != "document" {
		t.Fatalf("unexpected document root")
	}

	custom := p.CustomParts()
	if len(custom) != 2 {
		t.Fatalf("expected 2 custom parts, got %v", custom)
	}
}

func TestPackageRelationships(t *testing.T) {
	log := zaptest.NewLogger(t)
	p := New(testParts(), log)

	rels := p.Relationships(DocumentPartName)
	if len(rels) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(rels))
	}
	img := rels["rId1"]
	if img.External || img.Target != "media/image1.png" {
		t.Fatalf("unexpected image relationship %+v", img)
	}
	if got := ResolvePartTarget(DocumentPartName, img.Target); got != "word/media/image1.png" {
		t.Fatalf("unexpected resolved target %q", got)
	}
	if !rels["rId2"].External {
		t.Fatal("hyperlink relationship must be external")
	}
}

func TestPackageReplaceKeepsHash(t *testing.T) {
	log := zaptest.NewLogger(t)
	p := New(testParts(), log)
	before := p.ContentHash()

	doc := etree.NewDocument()
	doc.CreateElement("changed")
	if err := p.ReplacePart(DocumentPartName, doc); err != nil {
		t.Fatalf("unable to replace part: %v", err)
	}

	if p.ContentHash() != before {
		t.Error("content hash must identify the opened state, not the edited one")
	}
	got, err := p.PartDocument(DocumentPartName)
	if err != nil {
		t.Fatalf("unable to re-read replaced part: %v", err)
	}
	if got.Root().Tag != "changed" {
		t.Error("replacement did not take")
	}
}

func TestPackageRemovePart(t *testing.T) {
	log := zaptest.NewLogger(t)
	p := New(testParts(), log)

	p.RemovePart("customXml/item1.xml")
	if p.HasPart("customXml/item1.xml") {
		t.Fatal("part not removed")
	}
	if len(p.CustomParts()) != 1 {
		t.Fatal("custom part enumeration still lists removed part")
	}
	// removing again is a no-op
	p.RemovePart("customXml/item1.xml")
}
