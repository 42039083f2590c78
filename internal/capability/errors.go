package capability

import "errors"

// Domain errors for the capability package.
var (
	// ErrUnknownManifestVersion is returned when a common manifest announces
	// a version the catalog does not describe.
	ErrUnknownManifestVersion = errors.New("capability: unknown common manifest version")

	// ErrUnknownFeatureManifest is returned when a feature manifest announces
	// a (type, version) pair the catalog does not describe.
	ErrUnknownFeatureManifest = errors.New("capability: unknown feature manifest")

	// ErrMalformedManifest is returned when a manifest payload is too short
	// to hold its header.
	ErrMalformedManifest = errors.New("capability: malformed manifest")

	// ErrInvalidCatalog is returned when the appliance API document fails to parse.
	ErrInvalidCatalog = errors.New("capability: invalid catalog")
)
