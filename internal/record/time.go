package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted at the input boundary. Output is always RFC 3339 via the
// default time.Time JSON encoding.
var parseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 date or datetime string as supplied by the
// desktop shell, device exports and extraction pipelines.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatLabValue renders a lab result's value with its unit for display,
// e.g. "5.7 %" or "Negative". Returns "" when the result carries no value.
func FormatLabValue(lr LabResult) string {
	if lr.Value != nil {
		s := formatAmount(*lr.Value)
		if lr.Unit != nil && *lr.Unit != "" {
			return s + " " + *lr.Unit
		}
		return s
	}
	if lr.ValueText != nil {
		return *lr.ValueText
	}
	return ""
}
