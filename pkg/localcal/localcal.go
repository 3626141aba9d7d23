// Package localcal serves holidays from the rickar/cal definitions bundled
// into the binary, for offline use or as a fallback when the API is down.
package localcal

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/us"

	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
)

var calendars = map[string][]*cal.Holiday{
	"AU": au.Holidays,
	"CA": ca.Holidays,
	"DE": de.Holidays,
	"FR": fr.Holidays,
	"GB": gb.Holidays,
	"NL": nl.Holidays,
	"US": us.Holidays,
}

// Source is a holiday.Source over the bundled definitions.
type Source struct {
	// Strict makes unsupported countries an error instead of an empty list.
	Strict bool
}

// Supported returns the country codes with bundled definitions, sorted.
func Supported() []string {
	codes := make([]string, 0, len(calendars))
	for cc := range calendars {
		codes = append(codes, cc)
	}
	slices.Sort(codes)
	return codes
}

// Has reports whether a country has bundled definitions.
func Has(countryCode string) bool {
	_, ok := calendars[strings.ToUpper(strings.TrimSpace(countryCode))]
	return ok
}

func recordType(t cal.ObservanceType) holiday.Type {
	switch t {
	case cal.ObservancePublic:
		return holiday.TypePublic
	case cal.ObservanceBank:
		return holiday.TypeBank
	default:
		return holiday.TypeObservance
	}
}

// Fetch computes the holidays of a country for year. A holiday whose observed
// day differs from its actual day yields a second "(observed)" record; an
// observed day that lands in year from the following year's holiday (New
// Year's Day on a Saturday) is included too.
func (s Source) Fetch(_ context.Context, countryCode string, year int) ([]holiday.Record, error) {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	defs, ok := calendars[cc]
	if !ok {
		if s.Strict {
			return nil, fmt.Errorf("no bundled holiday calendar for %q", cc)
		}
		return nil, nil
	}

	var recs []holiday.Record
	seen := make(map[string]bool)
	add := func(d time.Time, name string, typ holiday.Type) {
		if d.IsZero() || d.Year() != year {
			return
		}
		key := calrange.Key(d) + "|" + name
		if seen[key] {
			return
		}
		seen[key] = true
		recs = append(recs, holiday.Record{
			Date:        calrange.Key(d),
			LocalName:   name,
			Name:        name,
			CountryCode: cc,
			Type:        typ,
		})
	}

	for _, y := range []int{year, year + 1} {
		for _, h := range defs {
			actual, observed := h.Calc(y)
			typ := recordType(h.Type)
			add(actual, h.Name, typ)
			if !observed.IsZero() && !sameDay(actual, observed) {
				add(observed, h.Name+" (observed)", typ)
			}
		}
	}

	slices.SortStableFunc(recs, func(a, b holiday.Record) int {
		return strings.Compare(a.Date, b.Date)
	})
	return recs, nil
}

func sameDay(a, b time.Time) bool {
	return calrange.Key(a) == calrange.Key(b)
}
