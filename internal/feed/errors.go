// Package feed validates, orders, renders and merges feed items into an
// existing RSS document.
package feed

import (
	"errors"
	"fmt"

	"feedkeeper/internal/model"
)

var (
	// ErrAnchorNotFound is returned when the insertion anchor is missing from a document.
	ErrAnchorNotFound = errors.New("anchor not found")
	// ErrMalformedDocument is returned when a document is not well-formed XML.
	ErrMalformedDocument = errors.New("malformed document")
)

// StructuralError aborts a run: the document cannot be merged safely.
type StructuralError struct {
	Op  string
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// ValidationError reports a candidate item missing a required field.
type ValidationError struct {
	Field string
	Item  model.FeedItem
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %q: missing %s", e.Item.Title, e.Field)
}
