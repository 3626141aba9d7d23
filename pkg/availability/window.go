package availability

import (
	"fmt"
	"strconv"
	"strings"
)

// Window is an awake-hour window [Start, End) applied to each participant's
// own local clock. Start > End wraps past midnight; Start == End is empty.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// DefaultWindow is a 9 to 6 working day.
var DefaultWindow = Window{Start: 9, End: 18}

// ParseWindow parses "START-END" in whole hours, e.g. "9-18" or "22-6".
func ParseWindow(s string) (Window, error) {
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Window{}, fmt.Errorf("invalid awake window %q: want START-END", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return Window{}, fmt.Errorf("invalid awake window start %q: %w", start, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(end))
	if err != nil {
		return Window{}, fmt.Errorf("invalid awake window end %q: %w", end, err)
	}
	w := Window{Start: a, End: b}
	return w, w.Validate()
}

// Validate checks both bounds lie in 0..24.
func (w Window) Validate() error {
	if w.Start < 0 || w.Start > 24 || w.End < 0 || w.End > 24 {
		return fmt.Errorf("awake window %d-%d out of range 0-24", w.Start, w.End)
	}
	return nil
}

// Contains reports whether a local hour of day falls in the window.
func (w Window) Contains(hour int) bool {
	switch {
	case w.Start == w.End:
		return false
	case w.Start < w.End:
		return hour >= w.Start && hour < w.End
	default:
		return hour >= w.Start || hour < w.End
	}
}

// String renders the window as "START-END".
func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}
