// Package apperr defines the error taxonomy shared by the stores, the vote
// core and the HTTP layer. Callers match with errors.Is; everything else
// about an error is free-form context added with fmt.Errorf and %w.
package apperr

import "errors"

var (
	// ErrStoreUnavailable means the backing store was unreachable or errored.
	// Optimistic local state must be rolled back when this surfaces.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound means a referenced post, comment or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input was rejected before any store call.
	ErrValidation = errors.New("invalid input")

	// ErrConflictIgnored means a racing insert lost to the unique constraint
	// on (post_id, voter_id) and was retried as an update.
	ErrConflictIgnored = errors.New("conflicting write ignored")
)
