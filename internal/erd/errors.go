package erd

import "errors"

// Domain errors for the erd package.
var (
	// ErrInvalidID is returned when an element identifier cannot be parsed.
	ErrInvalidID = errors.New("erd: invalid element id")

	// ErrInvalidDefinition is returned when a definition fails validation at load time.
	ErrInvalidDefinition = errors.New("erd: invalid definition")

	// ErrMalformedPayload is returned when a payload is too short for the field being read.
	ErrMalformedPayload = errors.New("erd: malformed payload")

	// ErrValueSize is returned when written field bytes do not match the field size.
	ErrValueSize = errors.New("erd: value size does not match field")

	// ErrValueOutOfRange is returned when an integer does not fit the field width.
	ErrValueOutOfRange = errors.New("erd: value out of range")

	// ErrDefinitionNotFound is returned when no definition exists for an element.
	ErrDefinitionNotFound = errors.New("erd: definition not found")

	// ErrFieldNotFound is returned when a definition has no field with the given name.
	ErrFieldNotFound = errors.New("erd: field not found")
)
