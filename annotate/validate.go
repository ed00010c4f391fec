package annotate

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"docxodus/docpkg"
	"docxodus/wml"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueHashMismatch IssueKind = "hash_mismatch"
	IssueOutOfBounds  IssueKind = "out_of_bounds"
	IssueTextMismatch IssueKind = "text_mismatch"
	IssueMissingLabel IssueKind = "missing_label"
)

// Issue is one validation finding. Validation reports, it never fails.
type Issue struct {
	Kind         IssueKind
	AnnotationID string
	Detail       string
}

func (i Issue) String() string {
	if i.AnnotationID == "" {
		return fmt.Sprintf("%s: %s", i.Kind, i.Detail)
	}
	return fmt.Sprintf("%s (%s): %s", i.Kind, i.AnnotationID, i.Detail)
}

// Validate re-checks an exported set against the current package state: the
// content hash, and each span re-sliced from the current source text stream.
// A hash mismatch does not stop per-span checks, offsets may still hold.
func Validate(set *ExternalAnnotationSet, p *docpkg.Package, doc *wml.Document, log *zap.Logger) []Issue {
	var issues []Issue

	if set.ContentHash != p.ContentHash() {
		issues = append(issues, Issue{
			Kind:   IssueHashMismatch,
			Detail: fmt.Sprintf("set bound to %.12s, document is %.12s", set.ContentHash, p.ContentHash()),
		})
	}

	stream := wml.ExtractStream(doc)
	for _, a := range set.Annotations {
		if a.Label == "" {
			issues = append(issues, Issue{Kind: IssueMissingLabel, AnnotationID: a.ID, Detail: "annotation has no label"})
		}
		if a.Span.Start < 0 || a.Span.End < a.Span.Start || a.Span.End > len(stream.Text) {
			issues = append(issues, Issue{
				Kind:         IssueOutOfBounds,
				AnnotationID: a.ID,
				Detail:       fmt.Sprintf("span [%d, %d) outside stream of %d bytes", a.Span.Start, a.Span.End, len(stream.Text)),
			})
			continue
		}
		if got := stream.Text[a.Span.Start:a.Span.End]; got != a.Span.Text {
			issues = append(issues, Issue{
				Kind:         IssueTextMismatch,
				AnnotationID: a.ID,
				Detail:       fmt.Sprintf("expected %q, document has %q", a.Span.Text, got),
			})
		}
	}

	for _, issue := range issues {
		log.Warn("Annotation set validation issue", zap.String("kind", string(issue.Kind)), zap.String("id", issue.AnnotationID), zap.String("detail", issue.Detail))
	}
	return issues
}

// CombineIssues folds findings into one error for callers that need a
// process exit status. No issues means nil.
func CombineIssues(issues []Issue) error {
	var err error
	for _, i := range issues {
		err = multierr.Append(err, fmt.Errorf("%s", i.String()))
	}
	return err
}
