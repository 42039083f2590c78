package gea

import "errors"

// Domain errors for the GE Appliances bridge.
var (
	// ErrNotConnected is returned when publishing while the broker is unreachable.
	ErrNotConnected = errors.New("gea: not connected to broker")

	// ErrPublishFailed is returned when an element write cannot be published.
	ErrPublishFailed = errors.New("gea: publish failed")

	// ErrMissingDependency is returned by NewBridge for a missing required option.
	ErrMissingDependency = errors.New("gea: missing dependency")
)
