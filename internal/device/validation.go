package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const maxNameLength = 100

// ValidateName checks that name can identify an appliance.
// Names are topic segments, so they may not contain MQTT separators or wildcards.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	if strings.ContainsAny(name, "/+#") {
		return fmt.Errorf("%w: %q contains a topic separator or wildcard", ErrInvalidName, name)
	}
	return nil
}

// GenerateID creates a new appliance handle.
func GenerateID() string {
	return uuid.New().String()
}

// ValidateID checks that id is a well-formed handle.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: handle %q: %v", ErrInvalidName, id, err)
	}
	return nil
}
