package availability

import (
	"time"

	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
)

// Event kinds.
const (
	KindHoliday    = "holiday"
	KindObservance = "observance"
	KindFilter     = "filter"
)

var countryPalette = []string{
	"#2563eb", "#dc2626", "#16a34a", "#d97706", "#7c3aed",
	"#0891b2", "#db2777", "#65a30d", "#ea580c", "#4f46e5",
}

var filterColors = map[Filter]string{
	FilterWorkday: "#22c55e",
	FilterWeekend: "#9ca3af",
	FilterHoliday: "#ef4444",
}

// Resource tags an event for styling.
type Resource struct {
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	CountryCode string `json:"country_code,omitempty"`
	Color       string `json:"color"`
}

// Event is a display-ready calendar entry with Start and End in the display zone.
type Event struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Title    string    `json:"title"`
	Resource Resource  `json:"resource"`
	AllDay   bool      `json:"all_day"`
}

// CountryColor returns the palette color of the i-th country.
func CountryColor(i int) string {
	return countryPalette[i%len(countryPalette)]
}

// HolidayEvents projects every indexed holiday into the display zone, grouped
// by country in index order and by date within a country. A holiday is all
// day only when its span lines up with display-zone midnights.
func (e *Engine) HolidayEvents() []Event {
	byCountry := e.index.ByCountry()
	var events []Event
	for i, cc := range e.index.Countries() {
		for _, r := range byCountry[cc] {
			start, end, err := e.index.Project(r, e.display)
			if err != nil {
				continue
			}
			kind := KindObservance
			if r.IsPublic() {
				kind = KindHoliday
			}
			events = append(events, Event{
				Title:  cc + ": " + r.Title(),
				Start:  start,
				End:    end,
				AllDay: isMidnight(start) && isMidnight(end),
				Resource: Resource{
					Kind:        kind,
					Category:    string(r.Type),
					CountryCode: cc,
					Color:       CountryColor(i),
				},
			})
		}
	}
	return events
}

// Highlights returns one all-day event per date of r matching f.
func (e *Engine) Highlights(r calrange.Range, f Filter) []Event {
	var events []Event
	for _, d := range e.FilterRange(r, f) {
		events = append(events, Event{
			Title:  filterTitle(f, e.index.Countries(), e.index.On(d)),
			Start:  d,
			End:    d.AddDate(0, 0, 1),
			AllDay: true,
			Resource: Resource{
				Kind:     KindFilter,
				Category: string(f),
				Color:    filterColors[f],
			},
		})
	}
	return events
}

func filterTitle(f Filter, countries []string, on map[string][]holiday.Record) string {
	switch f {
	case FilterWeekend:
		return "Weekend"
	case FilterHoliday:
		for _, cc := range countries {
			for _, r := range on[cc] {
				if r.IsPublic() {
					return "Holiday: " + r.Title()
				}
			}
		}
		return "Holiday"
	default:
		return "Workday"
	}
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}
