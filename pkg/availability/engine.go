// Package availability classifies dates for a group of participants and finds
// the hours at which all of them are awake.
//
// Dates are calendar dates: only the year, month and day of a time.Time are
// read, and they are taken as a date in the display timezone.
package availability

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
	"github.com/codeGROOVE-dev/tzmeet/pkg/participant"
	"github.com/codeGROOVE-dev/tzmeet/pkg/tzconvert"
)

type member struct {
	p   participant.Participant
	loc *time.Location
}

// Engine answers availability queries over a snapshot of the participants,
// the holiday index and a display timezone. It holds no mutable state;
// rebuild it when any input changes.
type Engine struct {
	display *time.Location
	index   *holiday.Index
	members []member
}

// New snapshots reg. Participants whose zone cannot be loaded are treated
// as UTC. A nil index means no holidays are known.
func New(reg *participant.Registry, idx *holiday.Index, display *time.Location) *Engine {
	if display == nil {
		display = time.UTC
	}
	if idx == nil {
		idx = holiday.NewCache().Index(nil, nil)
	}
	e := &Engine{display: display, index: idx}
	if reg == nil {
		return e
	}
	for _, p := range reg.List() {
		loc, err := tzconvert.Load(p.Zone())
		if err != nil {
			slog.Warn("participant zone unusable, using UTC", "participant", p.ID, "timezone", p.Timezone, "error", err)
			loc = time.UTC
		}
		e.members = append(e.members, member{p: p, loc: loc})
	}
	return e
}

// Display returns the display timezone.
func (e *Engine) Display() *time.Location {
	return e.display
}

// Index returns the holiday index the engine classifies against.
func (e *Engine) Index() *holiday.Index {
	return e.index
}

// Participants returns the snapshot of participants.
func (e *Engine) Participants() []participant.Participant {
	ps := make([]participant.Participant, len(e.members))
	for i, m := range e.members {
		ps[i] = m.p
	}
	return ps
}

func (e *Engine) day(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.display)
}

// ClassifyDate classifies a calendar date for the whole group.
func (e *Engine) ClassifyDate(date time.Time) Class {
	day := e.day(date)
	wd := day.Weekday()
	return Class{
		Weekend:      wd == time.Saturday || wd == time.Sunday,
		GroupHoliday: e.index.IsGroupHoliday(day),
	}
}

// FilterRange returns every date of r, in order, that matches f.
func (e *Engine) FilterRange(r calrange.Range, f Filter) []time.Time {
	var out []time.Time
	for _, d := range r.Days() {
		if e.ClassifyDate(d).Matches(f) {
			out = append(out, e.day(d))
		}
	}
	return out
}

// DayClass pairs a date with its classification.
type DayClass struct {
	Date  time.Time
	Class Class
}

// ClassifyRange classifies every date of r.
func (e *Engine) ClassifyRange(r calrange.Range) []DayClass {
	days := r.Days()
	out := make([]DayClass, 0, len(days))
	for _, d := range days {
		out = append(out, DayClass{Date: e.day(d), Class: e.ClassifyDate(d)})
	}
	return out
}

// CommonAwakeHours returns the display-zone hours of date at which every
// participant's local clock is inside w.
func (e *Engine) CommonAwakeHours(date time.Time, w Window) []int {
	zones := make([]*time.Location, len(e.members))
	for i, m := range e.members {
		zones[i] = m.loc
	}
	return CommonAwakeHours(date, e.display, zones, w)
}

// CommonAwakeHours returns, in ascending order, the hours 0-23 of date in
// display at which every zone's local hour falls inside w. Hours that do not
// exist in display on that date are skipped. With no zones the result is
// empty.
func CommonAwakeHours(date time.Time, display *time.Location, zones []*time.Location, w Window) []int {
	hours := []int{}
	if len(zones) == 0 {
		return hours
	}
	for h := range 24 {
		if !tzconvert.WallClockExists(date, h, display) {
			continue
		}
		instant := tzconvert.WallClock(date, h, display)
		ok := true
		for _, z := range zones {
			if !w.Contains(tzconvert.LocalHour(instant, z)) {
				ok = false
				break
			}
		}
		if ok {
			hours = append(hours, h)
		}
	}
	return hours
}

// ResolveLocalTime returns the instant at hour:00 of date in the display
// zone, expressed in p's own zone.
func (e *Engine) ResolveLocalTime(date time.Time, hour int, p participant.Participant) (time.Time, error) {
	instant, err := e.instant(date, hour)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := tzconvert.Load(p.Zone())
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving local time for %s: %w", p.Name, err)
	}
	return instant.In(loc), nil
}

func (e *Engine) instant(date time.Time, hour int) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("hour %d out of range 0-23", hour)
	}
	if !tzconvert.WallClockExists(date, hour, e.display) {
		return time.Time{}, fmt.Errorf("%02d:00 does not exist on %s in %s", hour, calrange.Key(date), e.display)
	}
	return tzconvert.WallClock(date, hour, e.display), nil
}

// LocalTime is one participant's view of a chosen meeting instant.
type LocalTime struct {
	Participant participant.Participant `json:"participant"`
	Time        time.Time               `json:"time"`
	Offset      string                  `json:"offset"`
	DayShift    int                     `json:"day_shift"` // calendar days relative to the display date
	Awake       bool                    `json:"awake"`
}

// Resolve returns the local time of every participant at hour:00 of date.
func (e *Engine) Resolve(date time.Time, hour int, w Window) ([]LocalTime, error) {
	instant, err := e.instant(date, hour)
	if err != nil {
		return nil, err
	}
	base := e.day(date)
	out := make([]LocalTime, 0, len(e.members))
	for _, m := range e.members {
		local := instant.In(m.loc)
		y, mo, d := local.Date()
		localDay := time.Date(y, mo, d, 0, 0, 0, 0, e.display)
		out = append(out, LocalTime{
			Participant: m.p,
			Time:        local,
			Offset:      tzconvert.FormatOffset(instant, m.loc),
			DayShift:    int(localDay.Sub(base).Round(24*time.Hour) / (24 * time.Hour)),
			Awake:       w.Contains(local.Hour()),
		})
	}
	return out, nil
}
