package analysis

import "errors"

var (
	// ErrPatientNotFound means the referenced patient does not exist. Raised
	// before any analysis row is created; no cleanup is needed.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidViews means the submitted view set does not match the mode.
	ErrInvalidViews = errors.New("invalid view set")

	// ErrInternal covers unexpected failures between opening and closing an
	// analysis. Treated like an inference failure for the FAILED transition.
	ErrInternal = errors.New("analysis failed")
)
