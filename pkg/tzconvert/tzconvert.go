// Package tzconvert provides timezone conversion utilities.
// Every conversion goes through a *time.Location so that daylight saving
// transitions are honored; a zone's UTC offset is never assumed constant.
package tzconvert

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	locMu    sync.RWMutex
	locCache = map[string]*time.Location{}
)

// Load resolves a timezone name into a location.
// Accepted forms:
//   - "" and "UTC" return time.UTC
//   - "UTC+8", "UTC-4", "UTC+05:30" return a fixed zone
//   - IANA names such as "Asia/Tokyo" are loaded from the tz database
//
// Loaded locations are memoized since LoadLocation reads from disk.
func Load(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}

	locMu.RLock()
	loc, ok := locCache[name]
	locMu.RUnlock()
	if ok {
		return loc, nil
	}

	if strings.HasPrefix(name, "UTC") {
		secs, err := ParseOffset(name)
		if err != nil {
			return nil, err
		}
		loc = time.FixedZone(name, secs)
	} else {
		var err error
		loc, err = time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", name, err)
		}
	}

	locMu.Lock()
	locCache[name] = loc
	locMu.Unlock()
	return loc, nil
}

// ParseOffset extracts the offset in seconds from a "UTC±H[:MM]" string.
// Examples:
//   - "UTC" returns 0
//   - "UTC-4" returns -14400
//   - "UTC+05:30" returns 19800
func ParseOffset(s string) (int, error) {
	rest, ok := strings.CutPrefix(s, "UTC")
	if !ok {
		return 0, fmt.Errorf("offset %q: missing UTC prefix", s)
	}
	if rest == "" {
		return 0, nil
	}

	sign := 1
	switch rest[0] {
	case '-':
		sign = -1
		rest = rest[1:]
	case '+':
		rest = rest[1:]
	default:
		return 0, fmt.Errorf("offset %q: missing sign", s)
	}

	hourPart, minPart, hasMin := strings.Cut(rest, ":")
	hours, err := strconv.Atoi(hourPart)
	if err != nil || hours < 0 || hours > 14 {
		return 0, fmt.Errorf("offset %q: invalid hours", s)
	}
	mins := 0
	if hasMin {
		mins, err = strconv.Atoi(minPart)
		if err != nil || mins < 0 || mins > 59 {
			return 0, fmt.Errorf("offset %q: invalid minutes", s)
		}
	}
	return sign * (hours*3600 + mins*60), nil
}

// WallClock returns the instant at hour:00:00 on the calendar date of day,
// interpreted in loc. The date fields are read from day as-is.
func WallClock(day time.Time, hour int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, loc)
}

// WallClockExists reports whether hour:00 exists on the date of day in loc.
// It is false for hours skipped by a spring-forward transition.
func WallClockExists(day time.Time, hour int, loc *time.Location) bool {
	t := WallClock(day, hour, loc)
	y, m, d := day.Date()
	ty, tm, td := t.Date()
	return t.Hour() == hour && ty == y && tm == m && td == d
}

// LocalHour returns the hour of day of t as seen by a clock in loc.
func LocalHour(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}

// OffsetHours returns the UTC offset of loc at instant t, in hours.
// Example: OffsetHours(2024-01-15T12:00Z, America/New_York) returns -5.
// Example: OffsetHours(2024-07-15T12:00Z, America/New_York) returns -4.
func OffsetHours(t time.Time, loc *time.Location) float64 {
	_, secs := t.In(loc).Zone()
	return float64(secs) / 3600
}

// FormatOffset renders the offset of loc at t as "UTC+9", "UTC-4" or "UTC+5:30".
func FormatOffset(t time.Time, loc *time.Location) string {
	_, secs := t.In(loc).Zone()
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	h, m := secs/3600, (secs%3600)/60
	if m == 0 {
		return fmt.Sprintf("UTC%s%d", sign, h)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, h, m)
}

// StartOfDay returns local midnight of t's calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
