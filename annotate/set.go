package annotate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"docxodus/docpkg"
	"docxodus/wml"
)

// ExternalAnnotation is one exported annotation: a span into the source text
// stream with the literal text it is expected to cover.
type ExternalAnnotation struct {
	ID    string       `json:"id,omitempty"`
	Label string       `json:"label"`
	Color string       `json:"color,omitempty"`
	Span  wml.TextSpan `json:"span"`
}

// ExternalAnnotationSet is fully decoupled from the source document: the
// only binding is the content hash of the package it was exported from.
// Validity is re-checked against the current document, never assumed.
type ExternalAnnotationSet struct {
	ContentHash string               `json:"contentHash"`
	CreatedAt   time.Time            `json:"createdAt,omitzero"`
	Annotations []ExternalAnnotation `json:"annotations"`
}

// ExportAnnotations builds an external set from the package's annotation
// records: each bookmark pair is resolved to its current source stream span.
// Annotations whose bookmark is gone are skipped with a warning.
func ExportAnnotations(p *docpkg.Package, doc *wml.Document, log *zap.Logger) (*ExternalAnnotationSet, error) {
	annotations, err := LoadAnnotations(p, log)
	if err != nil {
		return nil, err
	}

	stream := wml.ExtractStream(doc)
	set := &ExternalAnnotationSet{
		ContentHash: p.ContentHash(),
		CreatedAt:   time.Now().UTC(),
	}
	for _, a := range annotations {
		from, to, err := bookmarkBounds(doc, a.BookmarkName)
		if err != nil {
			log.Warn("Annotation bookmark not found, skipping", zap.String("id", a.ID), zap.String("bookmark", a.BookmarkName))
			continue
		}
		set.Annotations = append(set.Annotations, ExternalAnnotation{
			ID:    a.ID,
			Label: a.Label,
			Color: a.Color,
			Span:  wml.TextSpan{Start: from, End: to, Text: stream.Text[from:to]},
		})
	}
	return set, nil
}

// Encode renders the set as indented JSON.
func (s *ExternalAnnotationSet) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("unable to encode annotation set: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeSet parses a previously exported annotation set.
func DecodeSet(data []byte) (*ExternalAnnotationSet, error) {
	var s ExternalAnnotationSet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unable to decode annotation set: %w", err)
	}
	return &s, nil
}
