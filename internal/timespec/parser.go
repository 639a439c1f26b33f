// Package timespec parses bidding-window specifications from the CLI.
package timespec

import (
	"fmt"
	"time"
)

// Window parses a bidding-window specification into a duration from now.
// Supports two formats:
//   - Go duration format: "1h", "30m", "1h30m", "2h45m30s"
//   - RFC3339 deadlines: "2025-10-29T13:00:00Z" (the window runs until then)
//
// A deadline that is not in the future is an error.
func Window(spec string, now time.Time) (time.Duration, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty window specification")
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("window must be positive, got %s", spec)
		}
		return d, nil
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		d := t.Sub(now)
		if d <= 0 {
			return 0, fmt.Errorf("deadline %s is not in the future", spec)
		}
		return d, nil
	}

	return 0, fmt.Errorf("invalid window specification: %s (use a duration like '1h30m' or an RFC3339 deadline like '2025-10-29T13:00:00Z')", spec)
}
