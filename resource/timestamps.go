package resource

import (
	"fmt"
	"strings"
	"time"

	"github.com/crmarques/rossync/faults"
)

var remoteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
}

// ParseRemoteTime parses API timestamps. A trailing "Z" is treated as
// "+00:00" and timestamps without an offset are read as UTC.
func ParseRemoteTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if strings.HasSuffix(trimmed, "Z") {
		trimmed = strings.TrimSuffix(trimmed, "Z") + "+00:00"
	}
	for _, layout := range remoteTimeLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, faults.NewTypedError(faults.ParseError, fmt.Sprintf("invalid timestamp %q", value), nil)
}

// ModifiedAt reads the "modified_at" field of a payload. Missing, null or
// unparsable values yield nil.
func ModifiedAt(data Payload) *time.Time {
	raw, ok := data["modified_at"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	parsed, err := ParseRemoteTime(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

// SameInstant compares two optional timestamps; two nils are equal.
func SameInstant(left *time.Time, right *time.Time) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return left.Equal(*right)
}
