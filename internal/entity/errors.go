package entity

import "errors"

// Domain errors for the entity package.
var (
	// ErrEntityNotFound is returned when no entity matches a reference or unique id.
	ErrEntityNotFound = errors.New("entity: not found")

	// ErrReadOnly is returned when writing to an entity that cannot be written.
	ErrReadOnly = errors.New("entity: read-only")

	// ErrDisabled is returned when writing to a disabled entity.
	ErrDisabled = errors.New("entity: disabled")

	// ErrOutOfRange is returned when a number is outside its current range.
	ErrOutOfRange = errors.New("entity: value out of range")

	// ErrOptionNotAllowed is returned when selecting an unknown or disabled option.
	ErrOptionNotAllowed = errors.New("entity: option not allowed")

	// ErrInvalidValue is returned when a written value has the wrong type or format.
	ErrInvalidValue = errors.New("entity: invalid value")

	// ErrWrongPlatform is returned when a meta transform targets an entity
	// whose platform has no such property.
	ErrWrongPlatform = errors.New("entity: transform does not apply to platform")

	// ErrValueUnknown is returned when writing before the element's value is known.
	ErrValueUnknown = errors.New("entity: element value unknown")
)
