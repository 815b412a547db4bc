package location

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Sentinel errors for the search pipeline; match them with errors.Is.
var (
	// ErrInvalidInput means the request was rejected before any query ran.
	ErrInvalidInput = eris.New("invalid input")
	// ErrNotFound means the postal code has no coordinates in the dataset.
	ErrNotFound = eris.New("postal code not found")
	// ErrSearchFailed means a data store query failed; the search is not retried.
	ErrSearchFailed = eris.New("search failed")
	// ErrNoPriorSearch means filters were applied before any completed search.
	ErrNoPriorSearch = eris.New("no prior search: perform a search first")
	// ErrSessionNotFound means the session id is unknown or expired.
	ErrSessionNotFound = eris.New("session not found")
)

// InvalidInputError describes a malformed postal code, radius or criteria value.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Reason }

// Is matches ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

func invalidInput(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a postal code absent from the dataset.
type NotFoundError struct {
	PostalCode string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("postal code %s not found", e.PostalCode)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// SearchFailedError wraps the data store failure that aborted a search.
type SearchFailedError struct {
	Op  string
	Err error
}

func (e *SearchFailedError) Error() string {
	return fmt.Sprintf("search failed: %s: %v", e.Op, e.Err)
}

func (e *SearchFailedError) Unwrap() error { return e.Err }

// Is matches ErrSearchFailed.
func (e *SearchFailedError) Is(target error) bool { return target == ErrSearchFailed }
