package discovery

import "errors"

// Domain errors for the discovery package.
var (
	// ErrMalformedTopic is returned when a topic matches no known shape or
	// its element segment is not hexadecimal.
	ErrMalformedTopic = errors.New("discovery: malformed topic")

	// ErrDeviceRegistration is returned when the device registry cannot
	// create a handle for a new appliance.
	ErrDeviceRegistration = errors.New("discovery: device registration failed")
)
