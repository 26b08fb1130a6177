package sqlite

import (
	"fmt"
	"time"
)

// timestampLayout matches JavaScript's Date.toISOString output so stored
// dates stay millisecond precise and lexically sortable.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// toTimestamp normalizes a time into the stored UTC text form.
func toTimestamp(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

// fromTimestamp parses stored text back into a UTC time.
func fromTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed.UTC(), nil
}
