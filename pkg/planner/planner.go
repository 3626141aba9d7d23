// Package planner wires holiday sources, stores and the availability engine
// into a single entry point shared by the CLI and the server.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeGROOVE-dev/tzmeet/pkg/availability"
	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
	"github.com/codeGROOVE-dev/tzmeet/pkg/countrytz"
	"github.com/codeGROOVE-dev/tzmeet/pkg/geo"
	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
	"github.com/codeGROOVE-dev/tzmeet/pkg/localcal"
	"github.com/codeGROOVE-dev/tzmeet/pkg/nager"
	"github.com/codeGROOVE-dev/tzmeet/pkg/participant"
	"github.com/codeGROOVE-dev/tzmeet/pkg/store"
	"github.com/codeGROOVE-dev/tzmeet/pkg/tzconvert"
)

// Planner computes meeting plans. It is safe for concurrent use; the holiday
// cache is shared by every call.
type Planner struct {
	logger   *slog.Logger
	loader   *holiday.Loader
	maps     *geo.Client
	resolver *geo.Resolver
	disk     *store.Otter
	redis    *store.Redis
	now      func() time.Time
}

// New creates a Planner with the default logger.
func New(ctx context.Context, opts ...Option) *Planner {
	return NewWithLogger(ctx, slog.Default(), opts...)
}

// NewWithLogger creates a Planner with a custom logger. Store failures are
// logged and the planner continues without persistence.
func NewWithLogger(ctx context.Context, logger *slog.Logger, opts ...Option) *Planner {
	optHolder := &OptionHolder{}
	for _, opt := range opts {
		opt(optHolder)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Planner{logger: logger, now: optHolder.now}
	if p.now == nil {
		p.now = time.Now
	}

	client := newRetryingClient(optHolder.httpClient, logger)
	p.maps = geo.NewClient(optHolder.mapsAPIKey, optHolder.mapsBaseURL, client, logger)
	p.resolver = geo.NewResolver(p.maps, logger)

	source := optHolder.source
	if source == nil {
		source = p.defaultSource(optHolder, client)
	}

	var st holiday.Store
	switch {
	case optHolder.noCache:
		logger.Info("holiday store disabled")
	case optHolder.redisAddr != "":
		rdb := redis.NewClient(&redis.Options{Addr: optHolder.redisAddr})
		p.redis = store.NewRedis(rdb, "", store.DefaultTTL, logger)
		st = p.redis
		logger.Info("holiday store enabled (redis)", "redis_addr", optHolder.redisAddr)
	default:
		dir := ""
		if !optHolder.memoryOnlyCache {
			dir = optHolder.cacheDir
			if dir == "" {
				if userCacheDir, err := os.UserCacheDir(); err == nil {
					dir = filepath.Join(userCacheDir, "tzmeet")
				} else {
					logger.Debug("could not determine user cache directory", "error", err)
				}
			}
		}
		disk, err := store.NewOtter(ctx, dir, logger)
		if err != nil {
			logger.Warn("holiday store initialization failed", "error", err, "cache_dir", dir)
		} else {
			p.disk = disk
			st = disk
		}
	}
	if st != nil {
		source = holiday.Cached(source, st, logger)
	}

	p.loader = holiday.NewLoader(holiday.NewCache(), source, logger)
	return p
}

// defaultSource is Nager.Date with the bundled calendars as fallback, or the
// bundled calendars alone when offline.
func (p *Planner) defaultSource(o *OptionHolder, client *retryingClient) holiday.Source {
	offline := localcal.Source{}
	if o.offline {
		return offline
	}
	online := nager.NewClient(o.nagerBaseURL, client, p.logger)
	return holiday.SourceFunc(func(ctx context.Context, cc string, year int) ([]holiday.Record, error) {
		recs, err := online.Fetch(ctx, cc, year)
		if err == nil || !localcal.Has(cc) {
			return recs, err
		}
		p.logger.Warn("holiday API failed, using bundled calendar", "country", cc, "year", year, "error", err)
		return offline.Fetch(ctx, cc, year)
	})
}

// Close flushes and closes the holiday store.
func (p *Planner) Close() error {
	if p.disk != nil {
		return p.disk.Close()
	}
	if p.redis != nil {
		return p.redis.Close()
	}
	return nil
}

// Ready reports whether the backing store is reachable.
func (p *Planner) Ready(ctx context.Context) error {
	if p.redis != nil {
		if err := p.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Resolve turns coordinates into a participant. It never fails.
func (p *Planner) Resolve(ctx context.Context, lat, lng float64) participant.Participant {
	return p.resolver.Resolve(ctx, lat, lng)
}

// Prewarm fetches the holidays of countries for years into the shared cache.
func (p *Planner) Prewarm(ctx context.Context, countries []string, years []int) error {
	start := time.Now()
	if err := p.loader.Sync(ctx, countries, years); err != nil {
		return fmt.Errorf("prewarming holidays: %w", err)
	}
	p.logger.Info("holidays prewarmed", "countries", countries, "years", years, "duration", time.Since(start))
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Participant builds a participant from input, consulting the maps APIs for
// coordinates or a free-form location. An unknown timezone name is an error.
func (p *Planner) Participant(ctx context.Context, in ParticipantInput) (participant.Participant, error) {
	if tz := participant.StripAdvisory(in.Timezone); tz != "" {
		if _, err := tzconvert.Load(tz); err != nil {
			return participant.Participant{}, invalid("participant %q: unknown timezone %q", in.Name, tz)
		}
		cc := in.CountryCode
		if cc == "" {
			cc, _ = countrytz.CountryForZone(tz)
		}
		name := in.Name
		if name == "" {
			name = tz
		}
		part := participant.New(name, cc, tz)
		if in.Lat != nil && in.Lng != nil {
			part.ID = participant.CoordinateID(*in.Lat, *in.Lng)
			part.Latitude, part.Longitude = in.Lat, in.Lng
		}
		return part, nil
	}

	lat, lng := in.Lat, in.Lng
	if (lat == nil || lng == nil) && in.Location != "" {
		loc, err := p.maps.GeocodeLocation(ctx, in.Location)
		if err != nil {
			p.logger.Warn("geocoding failed", "location", in.Location, "error", err)
		} else {
			lat, lng = &loc.Latitude, &loc.Longitude
		}
	}
	if lat == nil || lng == nil {
		if in.Location == "" && in.CountryCode == "" {
			return participant.Participant{}, invalid("participant %q needs a timezone, coordinates or a location", in.Name)
		}
		// Only a country is known: use its representative zone.
		part := participant.New(in.Name, in.CountryCode, "")
		if countrytz.Known(in.CountryCode) {
			part.Timezone = countrytz.Representative(in.CountryCode)
			part.Advisory = "timezone approximated from country"
		}
		if part.Name == "" {
			part.Name = participant.UnknownCountry
		}
		return part, nil
	}

	part := p.resolver.Resolve(ctx, *lat, *lng)
	if in.Name != "" {
		part.Name = in.Name
	}
	if in.CountryCode != "" {
		part.CountryCode = strings.ToUpper(in.CountryCode)
	}
	return part, nil
}

type query struct {
	loc    *time.Location
	rng    calrange.Range
	date   time.Time
	filter availability.Filter
	window availability.Window
	hour   *int
}

func (p *Planner) parse(req Request) (query, error) {
	var q query
	display := req.Display
	if display == "" {
		display = "UTC"
	}
	loc, err := tzconvert.Load(display)
	if err != nil {
		return q, invalid("unknown display timezone %q", display)
	}
	q.loc = loc

	switch {
	case req.From == "" && req.To == "":
		q.rng = calrange.Month(p.now(), loc)
	case req.From != "" && req.To == "":
		start, err := calrange.ParseDate(req.From, loc)
		if err != nil {
			return q, invalid("%v", err)
		}
		q.rng = calrange.Range{Start: start, End: calrange.Month(start, loc).End}
	default:
		from := req.From
		if from == "" {
			from = req.To
		}
		q.rng, err = calrange.Parse(from, req.To, loc)
		if err != nil {
			return q, invalid("%v", err)
		}
	}
	if q.rng.Len() > 366*2 {
		return q, invalid("range %s is longer than two years", q.rng)
	}

	if q.filter, err = availability.ParseFilter(req.Filter); err != nil {
		return q, invalid("%v", err)
	}
	q.window = availability.DefaultWindow
	if req.Awake != "" {
		if q.window, err = availability.ParseWindow(req.Awake); err != nil {
			return q, invalid("%v", err)
		}
	}
	if req.Date != "" {
		if q.date, err = calrange.ParseDate(req.Date, loc); err != nil {
			return q, invalid("%v", err)
		}
	}
	if req.Hour != nil {
		if *req.Hour < 0 || *req.Hour > 23 {
			return q, invalid("hour %d out of range 0-23", *req.Hour)
		}
		q.hour = req.Hour
	}
	return q, nil
}

// Plan resolves the participants, loads the holidays they need and computes
// the classification of the range, the common awake hours of the chosen date
// and, if an hour was given, every participant's local time.
func (p *Planner) Plan(ctx context.Context, req Request) (*Result, error) {
	q, err := p.parse(req)
	if err != nil {
		return nil, err
	}

	reg := participant.NewRegistry()
	for _, in := range req.Participants {
		part, err := p.Participant(ctx, in)
		if err != nil {
			return nil, err
		}
		if !reg.Add(part) {
			p.logger.Debug("duplicate participant ignored", "id", part.ID, "name", part.Name)
		}
	}

	countries := reg.CountryCodes()
	var extra []time.Time
	if !q.date.IsZero() {
		extra = append(extra, q.date)
	}
	years := holiday.ViewYears(q.rng, extra...)
	if err := p.loader.Sync(ctx, countries, years); err != nil {
		return nil, fmt.Errorf("loading holidays: %w", err)
	}
	idx := p.loader.Cache().Index(countries, years)
	engine := availability.New(reg, idx, q.loc)

	res := &Result{
		rng:          q.rng,
		loc:          q.loc,
		Display:      q.loc.String(),
		From:         calrange.Key(q.rng.Start),
		To:           calrange.Key(q.rng.End),
		Filter:       q.filter,
		Window:       q.window,
		Participants: reg.List(),
		Countries:    countries,
		Matches:      []string{},
	}
	if res.Participants == nil {
		res.Participants = []participant.Participant{}
	}
	if res.Countries == nil {
		res.Countries = []string{}
	}

	for _, dc := range engine.ClassifyRange(q.rng) {
		day := Day{
			Date:    calrange.Key(dc.Date),
			Weekday: dc.Date.Weekday().String(),
			Class:   dc.Class,
			Label:   dc.Class.Primary(),
			Match:   dc.Class.Matches(q.filter),
		}
		on := idx.On(dc.Date)
		for _, cc := range countries {
			day.Holidays = append(day.Holidays, on[cc]...)
		}
		if day.Match {
			res.Matches = append(res.Matches, day.Date)
			if q.date.IsZero() {
				q.date = dc.Date
			}
		}
		res.Days = append(res.Days, day)
	}
	if q.date.IsZero() {
		q.date = q.rng.Start
	}
	res.Date = calrange.Key(q.date)
	res.CommonHours = engine.CommonAwakeHours(q.date, q.window)

	if q.hour != nil {
		res.Hour = q.hour
		if res.LocalTimes, err = engine.Resolve(q.date, *q.hour, q.window); err != nil {
			return nil, invalid("%v", err)
		}
	}

	res.Events = []availability.Event{}
	rangeStart := q.rng.Start
	rangeEnd := q.rng.End.AddDate(0, 0, 1)
	for _, ev := range engine.HolidayEvents() {
		if ev.End.After(rangeStart) && ev.Start.Before(rangeEnd) {
			res.Events = append(res.Events, ev)
		}
	}
	res.Events = append(res.Events, engine.Highlights(q.rng, q.filter)...)
	slices.SortStableFunc(res.Events, func(a, b availability.Event) int {
		return a.Start.Compare(b.Start)
	})

	p.logger.Debug("plan computed", "participants", reg.Len(), "countries", countries,
		"range", q.rng.String(), "matches", len(res.Matches), "common_hours", len(res.CommonHours))
	return res, nil
}
