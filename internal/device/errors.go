package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when an appliance name or handle is unknown.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating an appliance whose name or handle is taken.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidName is returned when an appliance name is empty, too long
	// or not usable as a topic segment.
	ErrInvalidName = errors.New("device: invalid name")
)
