package models

import "errors"

// Deterministic error classes. These depend only on the inputs and the state
// observed inside the transaction, so callers must never blind-retry them.
var (
	// ErrNotFound indicates the target document does not exist at the
	// point in time of the read.
	ErrNotFound = errors.New("instance not found")

	// ErrInvalidState indicates the operation is not legal given the
	// instance's current status, e.g. deleting an already-deleted entity.
	ErrInvalidState = errors.New("instance state does not permit this operation")

	// ErrInvalidParameter indicates malformed or contradictory caller
	// input, e.g. sorting by property without naming the property.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnmappedConstruct indicates a search operator or value category
	// the query translator does not support. Compilation is rejected as a
	// whole rather than silently producing an incorrect query.
	ErrUnmappedConstruct = errors.New("unmapped search construct")
)

// IsDeterministic reports whether err is one of the deterministic error
// classes. Anything else is a transport or store-internal failure that the
// caller may retry with the same inputs: the store's atomicity guarantee
// means a failed transaction left no partial effects behind.
func IsDeterministic(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrUnmappedConstruct)
}
