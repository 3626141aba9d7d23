package availability

import (
	"fmt"
	"strings"
)

// Filter selects one of the three date predicates.
type Filter string

// Date filters. They are independent predicates, not a partition: a Saturday
// that is a group holiday matches both FilterWeekend and FilterHoliday.
const (
	FilterWorkday Filter = "workday"
	FilterWeekend Filter = "weekend"
	FilterHoliday Filter = "holiday"
)

// Filters lists every filter in display order.
var Filters = []Filter{FilterWorkday, FilterWeekend, FilterHoliday}

// ParseFilter parses a filter name, case-insensitively.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterWorkday, FilterWeekend, FilterHoliday:
		return f, nil
	case "":
		return FilterWorkday, nil
	default:
		return "", fmt.Errorf("unknown filter %q (want workday, weekend or holiday)", s)
	}
}

// Class is the group classification of one date.
type Class struct {
	Weekend      bool `json:"weekend"`
	GroupHoliday bool `json:"group_holiday"`
}

// Workday reports whether the date is neither a weekend nor a group holiday.
func (c Class) Workday() bool {
	return !c.Weekend && !c.GroupHoliday
}

// Matches reports whether the date satisfies f.
func (c Class) Matches(f Filter) bool {
	switch f {
	case FilterWorkday:
		return c.Workday()
	case FilterWeekend:
		return c.Weekend
	case FilterHoliday:
		return c.GroupHoliday
	default:
		return false
	}
}

// Primary returns a single label for display: holiday, then weekend, then workday.
func (c Class) Primary() Filter {
	switch {
	case c.GroupHoliday:
		return FilterHoliday
	case c.Weekend:
		return FilterWeekend
	default:
		return FilterWorkday
	}
}

// String implements fmt.Stringer.
func (c Class) String() string {
	return string(c.Primary())
}
