package render

import (
	"fmt"
	"slices"
	"time"

	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
	"github.com/codeGROOVE-dev/tzmeet/pkg/planner"
	"github.com/codeGROOVE-dev/tzmeet/pkg/tzconvert"
)

type hourCell struct {
	Time  string
	Awake bool
}

type hourRow struct {
	Label  string
	Cells  []hourCell
	Hour   int
	Common bool
}

// hourRows lays out the display hours of the plan date. Cells follow the
// participant order; a trailing "+" or "-" marks the next or previous day.
func hourRows(r *planner.Result) ([]hourRow, error) {
	loc := r.Location()
	date, err := calrange.ParseDate(r.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid plan date %q: %w", r.Date, err)
	}
	zones := participantZones(r)

	rows := make([]hourRow, 0, 24)
	for h := range 24 {
		if !tzconvert.WallClockExists(date, h, loc) {
			continue
		}
		instant := tzconvert.WallClock(date, h, loc)
		row := hourRow{
			Hour:   h,
			Label:  fmt.Sprintf("%02d:00", h),
			Common: slices.Contains(r.CommonHours, h),
			Cells:  make([]hourCell, 0, len(zones)),
		}
		for _, z := range zones {
			local := instant.In(z)
			row.Cells = append(row.Cells, hourCell{
				Time:  local.Format("15:04") + dayShift(date, local),
				Awake: r.Window.Contains(local.Hour()),
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func participantZones(r *planner.Result) []*time.Location {
	zones := make([]*time.Location, 0, len(r.Participants))
	for _, p := range r.Participants {
		loc, err := tzconvert.Load(p.Zone())
		if err != nil {
			loc = time.UTC
		}
		zones = append(zones, loc)
	}
	return zones
}

func dayShift(date, local time.Time) string {
	y, m, d := date.Date()
	ly, lm, ld := local.Date()
	a := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	c := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
	switch {
	case c.Before(a):
		return "-"
	case c.After(a):
		return "+"
	default:
		return ""
	}
}
