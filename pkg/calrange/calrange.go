// Package calrange models inclusive calendar date ranges.
package calrange

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used for date keys.
const DateLayout = "2006-01-02"

// Range is an inclusive window of calendar dates. Only the date fields of
// Start and End are meaningful; the location they carry decides the calendar.
type Range struct {
	Start time.Time
	End   time.Time
}

// New returns the range [start, end] normalized to midnight in loc.
func New(start, end time.Time, loc *time.Location) (Range, error) {
	r := Range{Start: Midnight(start, loc), End: Midnight(end, loc)}
	if r.End.Before(r.Start) {
		return Range{}, errors.New("range end is before start")
	}
	return r, nil
}

// Parse builds a range from two YYYY-MM-DD strings interpreted in loc.
func Parse(start, end string, loc *time.Location) (Range, error) {
	s, err := ParseDate(start, loc)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseDate(end, loc)
	if err != nil {
		return Range{}, err
	}
	return New(s, e, loc)
}

// Month returns the range covering the calendar month containing t in loc.
func Month(t time.Time, loc *time.Location) Range {
	y, m, _ := t.In(loc).Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return Range{Start: first, End: first.AddDate(0, 1, -1)}
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// Midnight returns midnight of t's calendar date as observed in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Key formats the calendar date of t (in t's own location) as YYYY-MM-DD.
func Key(t time.Time) string {
	return t.Format(DateLayout)
}

// Days returns every date from Start to End inclusive, one per calendar day.
// Steps use AddDate so a 23 or 25 hour DST day never skips or repeats a date.
func (r Range) Days() []time.Time {
	if r.End.Before(r.Start) {
		return nil
	}
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Years returns the distinct calendar years touched by walking every date of
// the range, in ascending order. The end date's year is always included.
func (r Range) Years() []int {
	var years []int
	for _, d := range r.Days() {
		if y := d.Year(); len(years) == 0 || years[len(years)-1] != y {
			years = append(years, y)
		}
	}
	return years
}

// Contains reports whether the calendar date of t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	d := Midnight(t, r.Start.Location())
	return !d.Before(r.Start) && !d.After(r.End)
}

// Len returns the number of dates in the range without walking it.
func (r Range) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int((dayNumber(r.End)-dayNumber(r.Start))/86400) + 1
}

// dayNumber is the Unix time of t's calendar date at UTC midnight, so that
// DST days of 23 or 25 hours still count as one.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// String renders the range as "start..end".
func (r Range) String() string {
	return Key(r.Start) + ".." + Key(r.End)
}

// SortedYears returns a sorted, deduplicated copy of years.
func SortedYears(years []int) []int {
	out := slices.Clone(years)
	slices.Sort(out)
	return slices.Compact(out)
}
