package engine

import "errors"

var (
	// ErrNotFound is returned when an operation references an unknown or
	// already removed entity. Interaction handlers treat it as a no-op.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidGeometry is returned by the frame generator for unknown shape
	// kinds. Callers fall back to an empty shape.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrResourceLoad marks an image whose source could not be fetched or
	// decoded. The entity stays in the model and is retried on the next pass.
	ErrResourceLoad = errors.New("resource load failure")

	ErrUnknownKind = errors.New("unknown entity kind")
)
