package util

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,          // 2024-01-01T00:00:00+01:00
	"2006-01-02T15:04:05", // 2024-01-01T00:00:00
	"2006-01-02",          // 2024-01-01
}

// ParseDate accepts RFC3339, a local date-time without zone, or a bare date.
// Values without a zone are read as UTC. The result is truncated to
// milliseconds, the precision both backends store.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC3339", s)
}
