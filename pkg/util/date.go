package util

import (
	"strconv"
	"time"
)

const dateOnly = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, a plain date (UTC midnight) and unix
// seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// DaysUntil is the calendar-day distance from now to expiry, fractional and
// never negative.
func DaysUntil(now, expiry time.Time) float64 {
	d := expiry.Sub(now).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// YearFraction converts calendar days to years on the given basis.
func YearFraction(days, daysPerYear float64) float64 {
	if days <= 0 || daysPerYear <= 0 {
		return 0
	}
	return days / daysPerYear
}
