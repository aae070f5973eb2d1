// Package timeutil parses and renders todo due dates.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	segmentPattern = regexp.MustCompile(`^\s*(\d+)\s*([a-z]+)`)
	unitMap        = map[string]time.Duration{
		"m":       time.Minute,
		"min":     time.Minute,
		"mins":    time.Minute,
		"minute":  time.Minute,
		"minutes": time.Minute,
		"h":       time.Hour,
		"hr":      time.Hour,
		"hrs":     time.Hour,
		"hour":    time.Hour,
		"hours":   time.Hour,
		"d":       24 * time.Hour,
		"day":     24 * time.Hour,
		"days":    24 * time.Hour,
		"w":       7 * 24 * time.Hour,
		"wk":      7 * 24 * time.Hour,
		"wks":     7 * 24 * time.Hour,
		"week":    7 * 24 * time.Hour,
		"weeks":   7 * 24 * time.Hour,
	}
)

// ParseDue resolves a due date relative to now. Accepted forms are "today",
// "tomorrow", an offset such as "3d" or "1w2d", a date ("2024-05-01", end of
// that day in now's location) or an RFC 3339 timestamp.
func ParseDue(input string, now time.Time) (time.Time, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	switch trimmed {
	case "":
		return time.Time{}, fmt.Errorf("empty due date")
	case "today":
		return endOfDay(now), nil
	case "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), nil
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(input)); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateLayout, trimmed, now.Location()); err == nil {
		return endOfDay(t), nil
	}
	d, err := ParseOffset(trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: %w", input, err)
	}
	return now.Add(d), nil
}

// ParseOffset parses a compact duration such as "1w2d6h".
func ParseOffset(input string) (time.Duration, error) {
	remaining := strings.ToLower(strings.TrimSpace(input))
	if remaining == "" {
		return 0, fmt.Errorf("empty offset")
	}
	total := time.Duration(0)
	for len(remaining) > 0 {
		matches := segmentPattern.FindStringSubmatch(remaining)
		if len(matches) != 3 {
			return 0, fmt.Errorf("invalid offset segment %q", strings.TrimSpace(remaining))
		}
		value, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid offset value %q: %w", matches[1], err)
		}
		base, ok := unitMap[matches[2]]
		if !ok {
			return 0, fmt.Errorf("unsupported offset unit %q", matches[2])
		}
		total += time.Duration(value) * base
		remaining = remaining[len(matches[0]):]
	}
	if total <= 0 {
		return 0, fmt.Errorf("offset must be greater than zero")
	}
	return total, nil
}

// FormatOffset renders a duration using week/day/hour/minute tokens, keeping
// the two largest.
func FormatOffset(d time.Duration) string {
	if d < time.Minute {
		return "0m"
	}
	units := []struct {
		label string
		value time.Duration
	}{
		{"w", 7 * 24 * time.Hour},
		{"d", 24 * time.Hour},
		{"h", time.Hour},
		{"m", time.Minute},
	}
	var parts []string
	remaining := d
	for _, u := range units {
		if remaining < u.value {
			continue
		}
		count := remaining / u.value
		remaining -= count * u.value
		parts = append(parts, fmt.Sprintf("%d%s", count, u.label))
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, "")
}

// Relative describes due relative to now: "due in 2d4h" or "overdue 3h".
func Relative(due, now time.Time) string {
	if due.IsZero() {
		return ""
	}
	if due.Before(now) {
		return "overdue " + FormatOffset(now.Sub(due))
	}
	return "due in " + FormatOffset(due.Sub(now))
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 0, 0, t.Location())
}
