// Package instance validates Gavel instance names. Instance names namespace
// every Redis key and event channel, so multiple markets can share one
// Redis server without colliding.
package instance

import (
	"fmt"
	"regexp"
)

// MaxNameLength is the maximum length for an instance name (DNS-compatible).
const MaxNameLength = 63

// NamePattern is the regex pattern for valid instance names.
// Must be DNS-compatible: lowercase alphanumeric, hyphens allowed (but not
// at start/end).
var NamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateName checks if an instance name is valid according to DNS naming
// rules.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}
