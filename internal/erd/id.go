package erd

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies an appliance data element.
type ID uint16

// Reserved capability manifest elements.
const (
	// CommonManifest announces the common API version and feature bitmask.
	CommonManifest ID = 0x0092

	// FeatureManifestLowStart and FeatureManifestLowEnd bound the first
	// feature manifest range (inclusive).
	FeatureManifestLowStart ID = 0x0093
	FeatureManifestLowEnd   ID = 0x0097

	// FeatureManifestHighStart and FeatureManifestHighEnd bound the second
	// feature manifest range (inclusive).
	FeatureManifestHighStart ID = 0x0109
	FeatureManifestHighEnd   ID = 0x0118
)

// Class says how the router treats an element it does not yet support.
type Class int

const (
	// ClassOrdinary elements are cached until a manifest activates them.
	ClassOrdinary Class = iota

	// ClassCommonManifest is the common capability manifest.
	ClassCommonManifest

	// ClassFeatureManifest is one of the feature capability manifests.
	ClassFeatureManifest
)

// String returns the class name used in logs.
func (c Class) String() string {
	switch c {
	case ClassCommonManifest:
		return "common_manifest"
	case ClassFeatureManifest:
		return "feature_manifest"
	default:
		return "ordinary"
	}
}

// Classify reports whether id is a manifest element.
func Classify(id ID) Class {
	switch {
	case id == CommonManifest:
		return ClassCommonManifest
	case id >= FeatureManifestLowStart && id <= FeatureManifestLowEnd:
		return ClassFeatureManifest
	case id >= FeatureManifestHighStart && id <= FeatureManifestHighEnd:
		return ClassFeatureManifest
	default:
		return ClassOrdinary
	}
}

// ParseID parses a hexadecimal element identifier with or without a
// leading "0x" ("0x0092", "0092" and "92" are equivalent).
func ParseID(s string) (ID, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if trimmed == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}

	v, err := strconv.ParseUint(trimmed, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(v), nil
}

// String formats the identifier as "0x%04x".
func (id ID) String() string {
	return fmt.Sprintf("0x%04x", uint16(id))
}

// Hex formats the identifier as four lowercase hex digits without prefix.
func (id ID) Hex() string {
	return fmt.Sprintf("%04x", uint16(id))
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
