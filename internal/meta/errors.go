package meta

import "errors"

// Domain errors for the meta package.
var (
	// ErrMissingElementDefinition is returned when a meta element or one of
	// its transform fields has no definition. The transform is skipped.
	ErrMissingElementDefinition = errors.New("meta: missing element definition")

	// ErrUnknownKind is returned when a transform kind name is not recognised.
	ErrUnknownKind = errors.New("meta: unknown transform kind")

	// ErrInvalidTable is returned when a transform table fails to load.
	ErrInvalidTable = errors.New("meta: invalid transform table")
)
