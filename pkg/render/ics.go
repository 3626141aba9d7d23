package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
	"github.com/codeGROOVE-dev/tzmeet/pkg/planner"
	"github.com/codeGROOVE-dev/tzmeet/pkg/tzconvert"
)

const productID = "-//codeGROOVE//tzmeet//EN"

var uidSpace = uuid.MustParse("8f2c7b0e-3c1d-4a55-9a0e-2b7f4c6d1e90")

// ICS writes the plan's holiday and highlight events as an iCalendar feed.
// When an hour was picked, a one-hour meeting event listing every
// participant's local time is added.
func ICS(w io.Writer, r *planner.Result) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(fmt.Sprintf("Meeting plan %s to %s", r.From, r.To))

	stamp := time.Now().UTC()
	for _, ev := range r.Events {
		key := fmt.Sprintf("%s|%s|%s", ev.Resource.Kind, ev.Start.Format(time.RFC3339), ev.Title)
		event := cal.AddEvent(uuid.NewSHA1(uidSpace, []byte(key)).String() + "@tzmeet")
		event.SetDtStampTime(stamp)
		if ev.AllDay {
			event.SetAllDayStartAt(ev.Start)
			event.SetAllDayEndAt(ev.End)
		} else {
			event.SetStartAt(ev.Start)
			event.SetEndAt(ev.End)
		}
		event.SetSummary(ev.Title)
		event.SetProperty(ical.ComponentPropertyCategories, ev.Resource.Kind)
		event.SetColor(ev.Resource.Color)
		if ev.Resource.Category != "" {
			event.SetDescription(ev.Resource.Category)
		}
	}

	if r.Hour != nil {
		if err := addMeeting(cal, r, stamp); err != nil {
			return err
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}

func addMeeting(cal *ical.Calendar, r *planner.Result, stamp time.Time) error {
	date, err := calrange.ParseDate(r.Date, r.Location())
	if err != nil {
		return fmt.Errorf("invalid plan date %q: %w", r.Date, err)
	}
	start := tzconvert.WallClock(date, *r.Hour, r.Location())

	lines := make([]string, 0, len(r.LocalTimes))
	for _, lt := range r.LocalTimes {
		state := "asleep"
		if lt.Awake {
			state = "awake"
		}
		lines = append(lines, fmt.Sprintf("%s: %s %s (%s)", lt.Participant.Name,
			lt.Time.Format("Mon 15:04"), lt.Offset, state))
	}

	key := "meeting|" + start.UTC().Format(time.RFC3339)
	event := cal.AddEvent(uuid.NewSHA1(uidSpace, []byte(key)).String() + "@tzmeet")
	event.SetDtStampTime(stamp)
	event.SetStartAt(start)
	event.SetEndAt(start.Add(time.Hour))
	event.SetSummary("Meeting")
	event.SetDescription(strings.Join(lines, "\n"))
	event.SetProperty(ical.ComponentPropertyCategories, "meeting")
	return nil
}
