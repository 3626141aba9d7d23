// Package render formats meeting plans for terminals, browsers and calendar apps.
package render

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/tzmeet/pkg/availability"
	"github.com/codeGROOVE-dev/tzmeet/pkg/planner"
)

var (
	awakeColor   = color.New(color.FgGreen)
	asleepColor  = color.New(color.FgHiBlack)
	commonColor  = color.New(color.FgGreen, color.Bold)
	holidayColor = color.New(color.FgRed)
	weekendColor = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
)

const rule = "──────────────────────────────────────────────────"

// Text writes a terminal report of r: participants, classified days, the
// hour strip of the chosen date and, if an hour was picked, local times.
func Text(w io.Writer, r *planner.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n🌍 Meeting plan %s → %s (%s)\n", r.From, r.To, r.Display)
	b.WriteString(rule + "\n")
	writeParticipants(&b, r)
	b.WriteString("\n")
	Days(&b, r)
	b.WriteString("\n")
	HourStrip(&b, r)
	if len(r.LocalTimes) > 0 {
		b.WriteString("\n")
		writeLocalTimes(&b, r)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing text report: %w", err)
	}
	return nil
}

func writeParticipants(b *strings.Builder, r *planner.Result) {
	fmt.Fprintf(b, "👥 Participants (%d)\n", len(r.Participants))
	if len(r.Participants) == 0 {
		b.WriteString("   none\n")
		return
	}
	width := nameWidth(r)
	for _, p := range r.Participants {
		cc := p.CountryCode
		if cc == "" {
			cc = "--"
		}
		fmt.Fprintf(b, "   %-*s  %s  %s", width, p.Name, cc, p.Zone())
		if p.Advisory != "" {
			b.WriteString("  " + warnColor.Sprint("⚠ "+p.Advisory))
		}
		b.WriteString("\n")
	}
}

// Days writes one line per date of the plan range with its label and the
// holidays falling on it. Dates matching the filter are marked with a dot.
func Days(b *strings.Builder, r *planner.Result) {
	fmt.Fprintf(b, "📅 Days (filter: %s, %d matching)\n", r.Filter, len(r.Matches))
	for _, d := range r.Days {
		marker := " "
		if d.Match {
			marker = "•"
		}
		label := fmt.Sprintf("%-7s", d.Label)
		switch d.Label {
		case availability.FilterHoliday:
			label = holidayColor.Sprint(label)
		case availability.FilterWeekend:
			label = weekendColor.Sprint(label)
		}
		fmt.Fprintf(b, " %s %s %s  %s", marker, d.Date, d.Weekday[:3], label)
		if len(d.Holidays) > 0 {
			names := make([]string, 0, len(d.Holidays))
			for _, h := range d.Holidays {
				names = append(names, h.CountryCode+": "+h.Title())
			}
			b.WriteString("  " + strings.Join(names, ", "))
		}
		b.WriteString("\n")
	}
}

// HourStrip writes the 24 display hours of the chosen date. Each row shows
// every participant's local clock, green inside the awake window. Hours in
// which everyone is awake carry a check mark. Display hours skipped by a DST
// transition are omitted.
func HourStrip(b *strings.Builder, r *planner.Result) {
	rows, err := hourRows(r)
	if err != nil {
		fmt.Fprintf(b, "🕐 %v\n", err)
		return
	}
	fmt.Fprintf(b, "🕐 %s in %s (awake %s)\n", r.Date, r.Display, r.Window)

	width := max(nameWidth(r), 6)
	if len(r.Participants) > 0 {
		header := make([]string, 0, len(r.Participants))
		for _, p := range r.Participants {
			header = append(header, fmt.Sprintf("%-*s", width, p.Name))
		}
		fmt.Fprintf(b, "   %-5s    %s\n", "", strings.Join(header, " "))
	}

	for _, row := range rows {
		mark := " "
		if row.Common {
			mark = commonColor.Sprint("✓")
		}
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cell := fmt.Sprintf("%-*s", width, c.Time)
			if c.Awake {
				cell = awakeColor.Sprint(cell)
			} else {
				cell = asleepColor.Sprint(cell)
			}
			cells = append(cells, cell)
		}
		fmt.Fprintf(b, "   %s  %s %s\n", row.Label, mark, strings.Join(cells, " "))
	}

	if len(r.CommonHours) == 0 {
		b.WriteString("   no hour where everyone is awake\n")
	}
}

func writeLocalTimes(b *strings.Builder, r *planner.Result) {
	fmt.Fprintf(b, "⏰ %s %02d:00 %s\n", r.Date, *r.Hour, r.Display)
	width := nameWidth(r)
	for _, lt := range r.LocalTimes {
		state := asleepColor.Sprint("asleep")
		if lt.Awake {
			state = awakeColor.Sprint("awake")
		}
		shift := ""
		if lt.DayShift != 0 {
			shift = fmt.Sprintf(" (%+dd)", lt.DayShift)
		}
		fmt.Fprintf(b, "   %-*s  %s %s%s  %s\n", width, lt.Participant.Name,
			lt.Time.Format("Mon 15:04"), lt.Offset, shift, state)
	}
}

func nameWidth(r *planner.Result) int {
	width := 4
	for _, p := range r.Participants {
		width = max(width, utf8.RuneCountInString(p.Name))
	}
	return width
}
