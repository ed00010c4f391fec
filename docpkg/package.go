// Package docpkg gives access to the document container - the zip package
// with named parts the rest of the engine works on. It is deliberately thin:
// open by name, read or replace part trees, enumerate custom data parts,
// save. Everything content-related lives elsewhere.
package docpkg

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/beevik/etree"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Well-known part names.
const (
	DocumentPartName    = "word/document.xml"
	CommentsPartName    = "word/comments.xml"
	AnnotationsPartName = "customXml/annotations.xml"
	customPartPrefix    = "customXml/"
)

// ErrPartNotFound is returned when a named part does not exist in the package.
var ErrPartNotFound = fmt.Errorf("part not found")

// Relationship is one entry of a part's .rels companion.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Package is an opened document container. All entries are read into memory
// at open time - packages this engine deals with are small and keeping bytes
// around lets the content hash stay stable regardless of later edits.
type Package struct {
	srcPath string
	srcHash string

	parts    map[string][]byte
	order    []string
	replaced map[string]struct{}

	log *zap.Logger
}

// Open reads the container at path.
func Open(fname string, log *zap.Logger) (*Package, error) {
	r, err := fixzip.OpenReader(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read document package (%s): %w", fname, err)
	}
	defer r.Close()

	p := &Package{
		srcPath:  fname,
		parts:    make(map[string][]byte),
		replaced: make(map[string]struct{}),
		log:      log,
	}

	for _, file := range r.File {
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("unable to open part (%s): %w", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to read part (%s): %w", file.Name, err)
		}
		p.parts[file.Name] = data
		p.order = append(p.order, file.Name)
	}
	p.srcHash = contentHash(p.parts)

	log.Debug("Document package opened", zap.String("path", fname), zap.Int("parts", len(p.order)))
	return p, nil
}

// New builds an in-memory package from parts, mostly for tests and for
// callers that already hold the tree. Part order is name-sorted.
func New(parts map[string][]byte, log *zap.Logger) *Package {
	p := &Package{
		parts:    make(map[string][]byte, len(parts)),
		replaced: make(map[string]struct{}),
		log:      log,
	}
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.parts[name] = parts[name]
		p.order = append(p.order, name)
	}
	p.srcHash = contentHash(p.parts)
	return p
}

// contentHash folds part bytes in sorted name order, making the hash a
// function of package content alone, not of container entry order.
func contentHash(parts map[string][]byte) string {
	names := make([]string, 0, len(parts))
	for name := range parts {
		names = append(names, name)
	}
	sort.Strings(names)
	var buf bytes.Buffer
	for _, name := range names {
		buf.Write(parts[name])
	}
	return ComputeHash(buf.Bytes())
}

// ContentHash returns the hash of the package content as it was opened.
// Replacing parts does not move the hash - it identifies the source state
// annotations were taken against.
func (p *Package) ContentHash() string {
	return p.srcHash
}

// PartNames lists all parts in original order.
func (p *Package) PartNames() []string {
	return append([]string(nil), p.order...)
}

// HasPart reports whether a named part exists.
func (p *Package) HasPart(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// PartBytes returns raw bytes of a named part.
func (p *Package) PartBytes(name string) ([]byte, error) {
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, name)
	}
	return data, nil
}

// PartDocument parses a named part as XML. Old documents in the wild do not
// always follow declared encodings, so reading is charset tolerant.
func (p *Package) PartDocument(name string) (*etree.Document, error) {
	data, err := p.PartBytes(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("unable to parse part (%s): %w", name, err)
	}
	return doc, nil
}

// ReplacePart serializes the document and stores it under name, creating the
// part when absent.
func (p *Package) ReplacePart(name string, doc *etree.Document) error {
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("unable to serialize part (%s): %w", name, err)
	}
	p.ReplacePartBytes(name, data)
	return nil
}

// ReplacePartBytes stores raw bytes under name, creating the part when absent.
func (p *Package) ReplacePartBytes(name string, data []byte) {
	if _, exists := p.parts[name]; !exists {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
	p.replaced[name] = struct{}{}
}

// RemovePart drops a part from the package. Removing an absent part is a
// no-op.
func (p *Package) RemovePart(name string) {
	if _, exists := p.parts[name]; !exists {
		return
	}
	delete(p.parts, name)
	delete(p.replaced, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// CustomParts enumerates auxiliary custom-data parts in original order.
func (p *Package) CustomParts() []string {
	var out []string
	for _, name := range p.order {
		if strings.HasPrefix(name, customPartPrefix) && !strings.Contains(name, "/_rels/") {
			out = append(out, name)
		}
	}
	return out
}

// Relationships parses the .rels companion of a part. A missing companion
// yields an empty map.
func (p *Package) Relationships(partName string) map[string]Relationship {
	rels := make(map[string]Relationship)

	dir, base := path.Split(partName)
	relsName := dir + "_rels/" + base + ".rels"
	doc, err := p.PartDocument(relsName)
	if err != nil {
		return rels
	}
	root := doc.Root()
	if root == nil {
		return rels
	}
	for _, el := range root.ChildElements() {
		if el.Tag != "Relationship" {
			continue
		}
		rel := Relationship{
			ID:       el.SelectAttrValue("Id", ""),
			Type:     el.SelectAttrValue("Type", ""),
			Target:   el.SelectAttrValue("Target", ""),
			External: el.SelectAttrValue("TargetMode", "") == "External",
		}
		if rel.ID != "" {
			rels[rel.ID] = rel
		}
	}
	return rels
}

// ResolvePartTarget turns a relationship target relative to a part into a
// package part name.
func ResolvePartTarget(partName, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	dir, _ := path.Split(partName)
	return path.Clean(path.Join(dir, target))
}

// SaveTo writes the package out, copying unchanged entries from the source
// container when one exists and serializing replaced or added parts fresh.
func (p *Package) SaveTo(w io.Writer) error {
	zw := fixzip.NewWriter(w)
	defer zw.Close()

	copied := make(map[string]struct{})
	if p.srcPath != "" {
		r, err := fixzip.OpenReader(p.srcPath)
		if err != nil {
			return fmt.Errorf("unable to re-read source package (%s): %w", p.srcPath, err)
		}
		defer r.Close()
		for _, file := range r.File {
			if _, replaced := p.replaced[file.Name]; replaced {
				continue
			}
			if _, exists := p.parts[file.Name]; !exists {
				// removed
				continue
			}
			// unset data descriptor flag so readers that require seekable
			// entries stay happy
			file.Flags &= ^fixzip.FlagDataDescriptor
			if err := zw.CopyFile(file); err != nil {
				return fmt.Errorf("unable to copy part (%s): %w", file.Name, err)
			}
			copied[file.Name] = struct{}{}
		}
	}

	for _, name := range p.order {
		if _, done := copied[name]; done {
			continue
		}
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("unable to create part (%s): %w", name, err)
		}
		if _, err := f.Write(p.parts[name]); err != nil {
			return fmt.Errorf("unable to write part (%s): %w", name, err)
		}
	}
	return nil
}
