package config

import "fmt"

// Specification of tracked changes rendering mode.
type RevisionsMode int

const (
	// RevisionsModeShow renders insertions and deletions with revision markup.
	RevisionsModeShow RevisionsMode = iota
	// RevisionsModeAccept renders the document as if all changes were accepted.
	RevisionsModeAccept
)

func ParseRevisionsMode(s string) (RevisionsMode, error) {
	switch s {
	case "show":
		return RevisionsModeShow, nil
	case "accept":
		return RevisionsModeAccept, nil
	}
	return RevisionsModeShow, fmt.Errorf("unknown revisions mode %q", s)
}

func (m RevisionsMode) String() string {
	if m == RevisionsModeAccept {
		return "accept"
	}
	return "show"
}

// Specification of deleted content rendering when revisions are shown.
type DeletedContentMode int

const (
	// DeletedContentStrike renders deleted runs struck through.
	DeletedContentStrike DeletedContentMode = iota
	// DeletedContentHide drops deleted runs from output completely.
	DeletedContentHide
)

func ParseDeletedContentMode(s string) (DeletedContentMode, error) {
	switch s {
	case "strike":
		return DeletedContentStrike, nil
	case "hide":
		return DeletedContentHide, nil
	}
	return DeletedContentStrike, fmt.Errorf("unknown deleted content mode %q", s)
}

func (m DeletedContentMode) String() string {
	if m == DeletedContentHide {
		return "hide"
	}
	return "strike"
}

// Specification of what to do with comment or annotation ranges that were
// opened but never closed before document end.
type UnterminatedRangeMode int

const (
	// UnterminatedRangeHighlight keeps the range open so everything through
	// document end stays highlighted.
	UnterminatedRangeHighlight UnterminatedRangeMode = iota
	// UnterminatedRangeForceClose closes all open ranges when the body ends.
	UnterminatedRangeForceClose
)

func ParseUnterminatedRangeMode(s string) (UnterminatedRangeMode, error) {
	switch s {
	case "highlight":
		return UnterminatedRangeHighlight, nil
	case "force_close":
		return UnterminatedRangeForceClose, nil
	}
	return UnterminatedRangeHighlight, fmt.Errorf("unknown unterminated range mode %q", s)
}

func (m UnterminatedRangeMode) String() string {
	if m == UnterminatedRangeForceClose {
		return "force_close"
	}
	return "highlight"
}

// YAML plumbing so modes can be used directly in configuration structs.

func (m *RevisionsMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseRevisionsMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m RevisionsMode) MarshalYAML() (any, error) { return m.String(), nil }

func (m *DeletedContentMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseDeletedContentMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m DeletedContentMode) MarshalYAML() (any, error) { return m.String(), nil }

func (m *UnterminatedRangeMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParseUnterminatedRangeMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m UnterminatedRangeMode) MarshalYAML() (any, error) { return m.String(), nil }
