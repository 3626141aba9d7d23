package planner

import (
	"errors"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/tzmeet/pkg/availability"
	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
	"github.com/codeGROOVE-dev/tzmeet/pkg/participant"
)

// ErrInvalidRequest marks errors caused by bad user input.
var ErrInvalidRequest = errors.New("invalid request")

// Option configures a Planner.
type Option func(*OptionHolder)

// WithMapsAPIKey sets the Google Maps API key for coordinate resolution.
func WithMapsAPIKey(key string) Option {
	return func(o *OptionHolder) {
		o.mapsAPIKey = key
	}
}

// WithMapsBaseURL overrides the Google Maps API host.
func WithMapsBaseURL(u string) Option {
	return func(o *OptionHolder) {
		o.mapsBaseURL = u
	}
}

// WithNagerBaseURL overrides the Nager.Date API host.
func WithNagerBaseURL(u string) Option {
	return func(o *OptionHolder) {
		o.nagerBaseURL = u
	}
}

// WithCacheDir sets the directory of the on-disk holiday store.
func WithCacheDir(dir string) Option {
	return func(o *OptionHolder) {
		o.cacheDir = dir
	}
}

// WithNoCache disables the persistent holiday store.
func WithNoCache(disabled bool) Option {
	return func(o *OptionHolder) {
		o.noCache = disabled
	}
}

// WithMemoryOnlyCache keeps the holiday store in memory (for servers).
func WithMemoryOnlyCache() Option {
	return func(o *OptionHolder) {
		o.memoryOnlyCache = true
	}
}

// WithRedisAddr stores holidays in Redis instead of on disk.
func WithRedisAddr(addr string) Option {
	return func(o *OptionHolder) {
		o.redisAddr = addr
	}
}

// WithOffline uses only the bundled holiday definitions.
func WithOffline(offline bool) Option {
	return func(o *OptionHolder) {
		o.offline = offline
	}
}

// WithHTTPClient sets the HTTP client used for all upstream APIs.
func WithHTTPClient(c *http.Client) Option {
	return func(o *OptionHolder) {
		o.httpClient = c
	}
}

// WithSource replaces the holiday source entirely.
func WithSource(s holiday.Source) Option {
	return func(o *OptionHolder) {
		o.source = s
	}
}

// WithClock sets the function used for "today".
func WithClock(now func() time.Time) Option {
	return func(o *OptionHolder) {
		o.now = now
	}
}

// OptionHolder holds configuration options.
type OptionHolder struct {
	source          holiday.Source
	httpClient      *http.Client
	now             func() time.Time
	mapsAPIKey      string
	mapsBaseURL     string
	nagerBaseURL    string
	cacheDir        string
	redisAddr       string
	noCache         bool
	memoryOnlyCache bool
	offline         bool
}

// ParticipantInput describes one participant of a plan request. Either
// Timezone, coordinates or a Location to geocode must be given.
type ParticipantInput struct {
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Name        string   `json:"name"`
	CountryCode string   `json:"country_code,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	Location    string   `json:"location,omitempty"`
}

// Request is a plan query. Empty fields take defaults: display UTC, the
// current month, the workday filter, a 9-18 awake window, and the first
// matching date of the range.
type Request struct {
	Hour         *int               `json:"hour,omitempty"`
	Display      string             `json:"display,omitempty"`
	From         string             `json:"from,omitempty"`
	To           string             `json:"to,omitempty"`
	Filter       string             `json:"filter,omitempty"`
	Date         string             `json:"date,omitempty"`
	Awake        string             `json:"awake,omitempty"`
	Participants []ParticipantInput `json:"participants"`
}

// Day is one classified date of the plan range.
type Day struct {
	Date     string              `json:"date"`
	Weekday  string              `json:"weekday"`
	Label    availability.Filter `json:"label"`
	Holidays []holiday.Record    `json:"holidays,omitempty"`
	Class    availability.Class  `json:"class"`
	Match    bool                `json:"match"`
}

// Result is a computed plan.
type Result struct {
	rng          calrange.Range
	loc          *time.Location
	Hour         *int                      `json:"hour,omitempty"`
	Display      string                    `json:"display"`
	From         string                    `json:"from"`
	To           string                    `json:"to"`
	Filter       availability.Filter       `json:"filter"`
	Date         string                    `json:"date"`
	Participants []participant.Participant `json:"participants"`
	Countries    []string                  `json:"countries"`
	Days         []Day                     `json:"days"`
	Matches      []string                  `json:"matches"`
	CommonHours  []int                     `json:"common_hours"`
	LocalTimes   []availability.LocalTime  `json:"local_times,omitempty"`
	Events       []availability.Event      `json:"events"`
	Window       availability.Window       `json:"window"`
}

// Location returns the display timezone.
func (r *Result) Location() *time.Location {
	if r.loc == nil {
		return time.UTC
	}
	return r.loc
}

// Range returns the planned date range.
func (r *Result) Range() calrange.Range {
	return r.rng
}
