// Package apperr defines the sentinel errors shared across podsift.
// Callers wrap them with fmt.Errorf("...: %w", ...) and surfaces dispatch
// on errors.Is to decide how a failure is rendered.
package apperr

import "errors"

var (
	// ErrValidation marks malformed caller input: an empty keyword, an
	// unknown search mode, an unparseable episode id. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a caller-named record that does not exist, such
	// as indexing or deleting an episode id with no row behind it.
	ErrNotFound = errors.New("not found")
)
