package service

import "errors"

// Workflow error taxonomy. Handlers match these with errors.Is to pick the
// HTTP status; services wrap them with context via fmt.Errorf("%w: ...").
var (
	// ErrValidation marks malformed input (non-positive quantity or price,
	// unparsable ids). The caller should correct and retry.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced entity that does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied marks an ownership or role violation. No state changes.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidTransition marks an attempt to act on a request outside the
	// state the operation requires, e.g. deciding an already-decided request.
	// No state changes.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrImmutableRecord marks an attempted mutation of a sale spawned by the
	// workflow engine. Such sales can only ever be touched by the engine itself.
	ErrImmutableRecord = errors.New("record is immutable")

	// ErrDownstreamFailure reports that automatic sale creation failed after
	// an approval already committed. The approval is final and is NOT rolled
	// back; callers surface this as a warning, not a fatal error.
	ErrDownstreamFailure = errors.New("downstream side effect failed")
)
