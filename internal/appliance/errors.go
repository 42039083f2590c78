package appliance

import "errors"

// Domain errors for the appliance package.
var (
	// ErrDeviceNotFound is returned when an appliance name is not registered.
	ErrDeviceNotFound = errors.New("appliance: device not found")

	// ErrDeviceExists is returned when registering an appliance twice.
	ErrDeviceExists = errors.New("appliance: device already exists")

	// ErrElementNotSupported is returned when reading, writing or subscribing
	// to an element that is not in the device's supported set.
	ErrElementNotSupported = errors.New("appliance: element not supported")

	// ErrElementSupported is returned when caching an element that is already supported.
	ErrElementSupported = errors.New("appliance: element already supported")

	// ErrNoPublisher is returned when publishing without a configured transport.
	ErrNoPublisher = errors.New("appliance: no publisher configured")
)
