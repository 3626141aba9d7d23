package holiday

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
	"github.com/codeGROOVE-dev/tzmeet/pkg/countrytz"
	"github.com/codeGROOVE-dev/tzmeet/pkg/tzconvert"
)

// Index is a read-only snapshot of the cache for a set of countries and the
// years of a visible range. Build it only after the loader barrier settled.
type Index struct {
	zones     map[string]*time.Location
	byCountry map[string][]Record
	public    map[string]map[string]bool // country -> date key -> has Public record
	countries []string
	years     []int
}

// Index snapshots the cached records of countries for years.
func (c *Cache) Index(countries []string, years []int) *Index {
	idx := &Index{
		zones:     make(map[string]*time.Location),
		byCountry: make(map[string][]Record),
		public:    make(map[string]map[string]bool),
		years:     calrange.SortedYears(years),
	}

	seen := make(map[string]bool)
	for _, cc := range countries {
		cc = normalizeCC(cc)
		if cc == "" || seen[cc] {
			continue
		}
		seen[cc] = true
		idx.countries = append(idx.countries, cc)
		idx.zones[cc] = representativeLocation(cc)

		var merged []Record
		dates := make(map[string]bool)
		for _, y := range idx.years {
			recs, _ := c.Get(cc, y)
			for _, r := range recs {
				merged = append(merged, r)
				if r.IsPublic() {
					dates[r.Date] = true
				}
			}
		}
		slices.SortStableFunc(merged, func(a, b Record) int {
			return strings.Compare(a.Date, b.Date)
		})
		idx.byCountry[cc] = merged
		idx.public[cc] = dates
	}
	return idx
}

// ViewYears returns the years an index over r must hold, plus the years of
// any extra dates. A display date is looked up in each country's calendar,
// which can be a day earlier or later, so the neighbouring year is included
// when r covers January 1st or December 31st.
func ViewYears(r calrange.Range, dates ...time.Time) []int {
	var years []int
	for _, y := range r.Years() {
		years = append(years, y)
		loc := r.Start.Location()
		if r.Contains(time.Date(y, time.January, 1, 0, 0, 0, 0, loc)) {
			years = append(years, y-1)
		}
		if r.Contains(time.Date(y, time.December, 31, 0, 0, 0, 0, loc)) {
			years = append(years, y+1)
		}
	}
	for _, d := range dates {
		y, m, day := d.Date()
		years = append(years, y)
		switch {
		case m == time.January && day == 1:
			years = append(years, y-1)
		case m == time.December && day == 31:
			years = append(years, y+1)
		}
	}
	return calrange.SortedYears(years)
}

func representativeLocation(cc string) *time.Location {
	loc, err := tzconvert.Load(countrytz.Representative(cc))
	if err != nil {
		return time.UTC
	}
	return loc
}

// Countries returns the indexed country codes in first-seen order.
func (x *Index) Countries() []string {
	return slices.Clone(x.countries)
}

// Years returns the indexed years in ascending order.
func (x *Index) Years() []int {
	return slices.Clone(x.years)
}

// ByCountry returns, per country, every record of the indexed years merged
// into one date-ordered slice.
func (x *Index) ByCountry() map[string][]Record {
	out := make(map[string][]Record, len(x.byCountry))
	for cc, recs := range x.byCountry {
		out[cc] = slices.Clone(recs)
	}
	return out
}

// Zone returns the representative location used for a country.
func (x *Index) Zone(countryCode string) *time.Location {
	if loc, ok := x.zones[normalizeCC(countryCode)]; ok {
		return loc
	}
	return representativeLocation(countryCode)
}

// countryDateKey projects a display date into a country's calendar. The
// midday instant of the display date is used so that the label survives
// offsets of up to twelve hours in either direction.
func (x *Index) countryDateKey(date time.Time, cc string) string {
	y, m, d := date.Date()
	midday := time.Date(y, m, d, 12, 0, 0, 0, date.Location())
	return calrange.Key(midday.In(x.zones[cc]))
}

// IsGroupHoliday reports whether every indexed country has a Public holiday
// on date. With no countries it is false: an empty group shares no holiday.
func (x *Index) IsGroupHoliday(date time.Time) bool {
	if len(x.countries) == 0 {
		return false
	}
	for _, cc := range x.countries {
		if !x.public[cc][x.countryDateKey(date, cc)] {
			return false
		}
	}
	return true
}

// On returns the records of any type falling on date, per country.
func (x *Index) On(date time.Time) map[string][]Record {
	out := make(map[string][]Record)
	for _, cc := range x.countries {
		key := x.countryDateKey(date, cc)
		for _, r := range x.byCountry[cc] {
			if r.Date == key {
				out[cc] = append(out[cc], r)
			}
		}
	}
	return out
}

// Project converts a record's all-day span, local midnight to the next local
// midnight in its country's representative zone, into display.
func (x *Index) Project(r Record, display *time.Location) (start, end time.Time, err error) {
	day, err := r.Day(x.Zone(r.CountryCode))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("projecting %s holiday %q: %w", r.CountryCode, r.Title(), err)
	}
	return day.In(display), day.AddDate(0, 0, 1).In(display), nil
}
