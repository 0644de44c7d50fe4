package store

import "errors"

// Sentinel errors shared by all backend implementations.
//
// Implementations wrap these with additional context:
//
//	if rec == nil {
//	    return nil, fmt.Errorf("fragment %s: %w", id, store.ErrNotFound)
//	}
//
// Callers match with errors.Is.
var (
	// ErrNotFound indicates the requested fragment does not exist.
	//
	// By policy this is also what a caller observes when the fragment exists
	// but belongs to a different owner; see ErrOwnerMismatch.
	ErrNotFound = errors.New("fragment not found")

	// ErrInvalidMetadata indicates a metadata record is missing required
	// fields (empty id or owner).
	ErrInvalidMetadata = errors.New("invalid fragment metadata")
)

// ErrOwnerMismatch indicates the stored owner differs from the caller.
//
// It deliberately matches ErrNotFound under errors.Is: the two conditions
// must be indistinguishable to callers so that ownership cannot be probed by
// another principal. Internal code (and tests) can still tell them apart by
// matching ErrOwnerMismatch specifically.
var ErrOwnerMismatch error = &ownerMismatchError{}

type ownerMismatchError struct{}

func (e *ownerMismatchError) Error() string {
	return "fragment not found"
}

func (e *ownerMismatchError) Is(target error) bool {
	return target == ErrOwnerMismatch || target == ErrNotFound
}
