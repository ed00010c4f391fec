package annotate

import (
	"fmt"
	"sort"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"docxodus/docpkg"
	"docxodus/wml"
)

// PageSpan is the cached page range an annotation covers. The cache goes
// stale whenever document content shifts; recomputing it is a separate,
// out-of-band concern.
type PageSpan struct {
	StartPage  int
	EndPage    int
	Stale      bool
	ComputedAt time.Time
}

// CustomAnnotation is one annotation record owned by the document package.
// The bookmark pair named by BookmarkName anchors it in the document part.
type CustomAnnotation struct {
	ID           string
	LabelID      string
	Label        string
	Color        string
	Author       string
	CreatedAt    time.Time
	BookmarkName string
	PageSpan     *PageSpan
	Metadata     map[string]string
}

const timeLayout = time.RFC3339

// LoadAnnotations reads the annotation records from the custom data part.
// A package without the part has no annotations.
func LoadAnnotations(p *docpkg.Package, log *zap.Logger) ([]*CustomAnnotation, error) {
	if !p.HasPart(docpkg.AnnotationsPartName) {
		return nil, nil
	}
	doc, err := p.PartDocument(docpkg.AnnotationsPartName)
	if err != nil {
		return nil, fmt.Errorf("unable to read annotations part: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "annotations" {
		log.Warn("Annotations part has unexpected structure, ignoring")
		return nil, nil
	}

	var out []*CustomAnnotation
	for _, el := range root.ChildElements() {
		if el.Tag != "annotation" {
			log.Debug("Skipping unexpected annotations part element", zap.String("tag", el.Tag))
			continue
		}
		a := &CustomAnnotation{
			ID:      el.SelectAttrValue("id", ""),
			LabelID: el.SelectAttrValue("labelId", ""),
			Label:   el.SelectAttrValue("label", ""),
			Color:   el.SelectAttrValue("color", ""),
			Author:  el.SelectAttrValue("author", ""),
		}
		if v := el.SelectAttrValue("created", ""); v != "" {
			if ts, err := time.Parse(timeLayout, v); err == nil {
				a.CreatedAt = ts
			} else {
				log.Warn("Bad annotation timestamp", zap.String("id", a.ID), zap.String("created", v))
			}
		}
		if r := el.SelectElement("range"); r != nil {
			a.BookmarkName = r.SelectAttrValue("bookmarkName", "")
		}
		if ps := el.SelectElement("pageSpan"); ps != nil {
			span := &PageSpan{
				StartPage: atoiAttr(ps, "startPage"),
				EndPage:   atoiAttr(ps, "endPage"),
				Stale:     ps.SelectAttrValue("stale", "") == "true",
			}
			if v := ps.SelectAttrValue("computedAt", ""); v != "" {
				if ts, err := time.Parse(timeLayout, v); err == nil {
					span.ComputedAt = ts
				}
			}
			a.PageSpan = span
		}
		if md := el.SelectElement("metadata"); md != nil {
			a.Metadata = make(map[string]string)
			for _, item := range md.SelectElements("item") {
				a.Metadata[item.SelectAttrValue("key", "")] = item.Text()
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func atoiAttr(el *etree.Element, name string) int {
	v := 0
	fmt.Sscanf(el.SelectAttrValue(name, "0"), "%d", &v)
	return v
}

// SaveAnnotations writes the records back into the custom data part.
func SaveAnnotations(p *docpkg.Package, annotations []*CustomAnnotation) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("annotations")

	for _, a := range annotations {
		el := root.CreateElement("annotation")
		el.CreateAttr("id", a.ID)
		if a.LabelID != "" {
			el.CreateAttr("labelId", a.LabelID)
		}
		el.CreateAttr("label", a.Label)
		if a.Color != "" {
			el.CreateAttr("color", a.Color)
		}
		if a.Author != "" {
			el.CreateAttr("author", a.Author)
		}
		if !a.CreatedAt.IsZero() {
			el.CreateAttr("created", a.CreatedAt.UTC().Format(timeLayout))
		}
		el.CreateElement("range").CreateAttr("bookmarkName", a.BookmarkName)
		if a.PageSpan != nil {
			ps := el.CreateElement("pageSpan")
			ps.CreateAttr("startPage", fmt.Sprintf("%d", a.PageSpan.StartPage))
			ps.CreateAttr("endPage", fmt.Sprintf("%d", a.PageSpan.EndPage))
			ps.CreateAttr("stale", fmt.Sprintf("%t", a.PageSpan.Stale))
			if !a.PageSpan.ComputedAt.IsZero() {
				ps.CreateAttr("computedAt", a.PageSpan.ComputedAt.UTC().Format(timeLayout))
			}
		}
		if len(a.Metadata) > 0 {
			md := el.CreateElement("metadata")
			keys := make([]string, 0, len(a.Metadata))
			for k := range a.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				item := md.CreateElement("item")
				item.CreateAttr("key", k)
				item.SetText(a.Metadata[k])
			}
		}
	}
	return p.ReplacePart(docpkg.AnnotationsPartName, doc)
}

// bookmarkNameFor derives a readable, unique bookmark name from the label.
func bookmarkNameFor(label, id string) string {
	s := slug.Make(label)
	if s == "" {
		s = "annotation"
	}
	if len(id) >= 8 {
		id = id[:8]
	}
	return "anno-" + s + "-" + id
}

// AddAnnotation materializes the target in the document tree, updates the
// document part and appends a new record to the annotations part. Existing
// page span caches go stale since content offsets shift.
func AddAnnotation(p *docpkg.Package, doc *wml.Document, target Target, label, labelID, color, author string, log *zap.Logger) (*CustomAnnotation, error) {
	existing, err := LoadAnnotations(p, log)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	name := bookmarkNameFor(label, id)
	if _, err := Materialize(doc, target, name, log); err != nil {
		return nil, err
	}
	if err := p.ReplacePart(docpkg.DocumentPartName, wml.BuildDocumentXML(doc)); err != nil {
		return nil, err
	}

	a := &CustomAnnotation{
		ID:           id,
		LabelID:      labelID,
		Label:        label,
		Color:        color,
		Author:       author,
		CreatedAt:    time.Now().UTC(),
		BookmarkName: name,
	}
	for _, other := range existing {
		if other.PageSpan != nil {
			other.PageSpan.Stale = true
		}
	}
	if err := SaveAnnotations(p, append(existing, a)); err != nil {
		return nil, err
	}
	log.Info("Annotation added", zap.String("id", id), zap.String("label", label), zap.String("bookmark", name))
	return a, nil
}

// UpdateAnnotation changes the label and color of an existing record.
func UpdateAnnotation(p *docpkg.Package, id, label, color string, log *zap.Logger) error {
	annotations, err := LoadAnnotations(p, log)
	if err != nil {
		return err
	}
	for _, a := range annotations {
		if a.ID != id {
			continue
		}
		if label != "" {
			a.Label = label
		}
		if color != "" {
			a.Color = color
		}
		return SaveAnnotations(p, annotations)
	}
	return fmt.Errorf("annotation %q: %w", id, ErrNotFound)
}

// RemoveAnnotation deletes the record and its bookmark pair from the
// document part.
func RemoveAnnotation(p *docpkg.Package, doc *wml.Document, id string, log *zap.Logger) error {
	annotations, err := LoadAnnotations(p, log)
	if err != nil {
		return err
	}
	at := -1
	for i, a := range annotations {
		if a.ID == id {
			at = i
			break
		}
	}
	if at < 0 {
		return fmt.Errorf("annotation %q: %w", id, ErrNotFound)
	}

	if err := Remove(doc, annotations[at].BookmarkName, log); err != nil {
		log.Warn("Annotation bookmark already gone", zap.String("id", id), zap.Error(err))
	} else if err := p.ReplacePart(docpkg.DocumentPartName, wml.BuildDocumentXML(doc)); err != nil {
		return err
	}

	annotations = append(annotations[:at], annotations[at+1:]...)
	for _, other := range annotations {
		if other.PageSpan != nil {
			other.PageSpan.Stale = true
		}
	}
	if err := SaveAnnotations(p, annotations); err != nil {
		return err
	}
	log.Info("Annotation removed", zap.String("id", id))
	return nil
}
