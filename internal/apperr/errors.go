// Package apperr defines the error taxonomy shared by all stores and the
// HTTP boundary. Ownership failures on student-facing lookups surface as
// ErrNotFound so one user can never learn that another user's record exists.
package apperr

import "errors"

var (
	// ErrNotFound covers both "row does not exist" and "exists but fails an
	// ownership filter" on student-facing lookups.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is an explicit denial for administrative actions.
	ErrForbidden = errors.New("forbidden")

	// ErrNotOwner marks a teacher ownership mismatch on a workflow screen.
	// The HTTP layer turns it into a redirect to the exam list, not an error.
	ErrNotOwner = errors.New("not the owner")

	// ErrValidation rejects malformed input before anything is persisted.
	ErrValidation = errors.New("invalid input")
)
