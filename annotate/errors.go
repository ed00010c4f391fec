package annotate

import "errors"

var (
	// ErrNotFound - search text, occurrence or bookmark is absent.
	ErrNotFound = errors.New("annotation target not found")
	// ErrOutOfRange - an index or offset points outside the document.
	ErrOutOfRange = errors.New("annotation target out of range")
	// ErrDuplicateID - the requested annotation or bookmark already exists.
	ErrDuplicateID = errors.New("duplicate annotation id")
)
