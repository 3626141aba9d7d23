// Package main implements the tzmeet CLI for planning meetings across timezones.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/codeGROOVE-dev/tzmeet/pkg/config"
	"github.com/codeGROOVE-dev/tzmeet/pkg/planner"
	"github.com/codeGROOVE-dev/tzmeet/pkg/render"
)

const versionString = "tzmeet CLI v0.3.0"

// listFlag collects repeated string flags.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ", ") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	configPath = flag.String("config", "", "Config file (or set TZMEET_CONFIG)")
	display    = flag.String("display", "", "Display timezone, e.g. America/New_York")
	from       = flag.String("from", "", "First date of the range (YYYY-MM-DD)")
	to         = flag.String("to", "", "Last date of the range (YYYY-MM-DD)")
	filter     = flag.String("filter", "", "Highlight workday, weekend or holiday dates")
	date       = flag.String("date", "", "Date for the hour strip (default: first matching date)")
	awake      = flag.String("awake", "", "Awake window in local hours, e.g. 9-18")
	at         = flag.Int("at", -1, "Meeting hour (0-23) in the display timezone")
	format     = flag.String("format", "text", "Output format: text, markdown, html, ics or json")
	offline    = flag.Bool("offline", false, "Use only bundled holiday calendars")
	cacheDir   = flag.String("cache-dir", "", "Cache directory (or set CACHE_DIR)")
	noCache    = flag.Bool("no-cache", false, "Disable the holiday cache")
	mapsAPIKey = flag.String("maps-key", "", "Google Maps API key (or set GOOGLE_MAPS_API_KEY)")
	noColor    = flag.Bool("no-color", false, "Disable colored output")
	save       = flag.Bool("save", false, "Write the effective participants and settings to the config file")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Show version")

	people  listFlag
	locates listFlag
)

func main() {
	flag.Var(&people, "p", "Participant as Name:CC:Zone, e.g. Ana:US:America/New_York (repeatable)")
	flag.Var(&locates, "locate", "Participant at lat,lng or a free-form address (repeatable)")
	flag.Parse()

	if *version {
		fmt.Println(versionString)
		return
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	if *noColor {
		color.NoColor = true
	}

	if err := run(logger, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "tzmeet: %v\n", err)
		if errors.Is(err, planner.ErrInvalidRequest) {
			flag.Usage()
		}
		os.Exit(1)
	}
}

func run(logger *slog.Logger, out io.Writer) error {
	path := *configPath
	if path == "" {
		path = os.Getenv("TZMEET_CONFIG")
	}
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := loadConfig(path, os.Getenv, *save)
	if err != nil {
		return err
	}
	if *save {
		logger.Info("config saved", "path", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	opts := []planner.Option{
		planner.WithMapsAPIKey(cfg.MapsAPIKey),
		planner.WithNagerBaseURL(cfg.NagerBaseURL),
		planner.WithOffline(cfg.Offline),
		planner.WithNoCache(cfg.NoCache),
		planner.WithCacheDir(cfg.CacheDir),
		planner.WithRedisAddr(cfg.RedisAddr),
	}
	p := planner.NewWithLogger(ctx, logger, opts...)
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("Failed to close planner", "error", err)
		}
	}()

	req := request(cfg)
	if *at >= 0 {
		hour := *at
		req.Hour = &hour
	}
	res, err := p.Plan(ctx, req)
	if err != nil {
		return err
	}
	return write(out, res, *format)
}

// loadConfig returns the file settings overridden by the environment and then
// by flags. With save set, the file plus flags is written back first;
// environment values are never saved.
func loadConfig(path string, getenv func(string) string, save bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if save {
		saved := *cfg
		saved.Participants = slices.Clone(cfg.Participants)
		saved.Server.PrewarmCountries = slices.Clone(cfg.Server.PrewarmCountries)
		if err := applyFlags(&saved); err != nil {
			return nil, err
		}
		if err := saved.Save(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(getenv)
	if err := applyFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cfg *config.Config) error {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["display"] {
		cfg.Display = *display
	}
	if set["filter"] {
		cfg.Filter = *filter
	}
	if set["awake"] {
		cfg.Awake = *awake
	}
	if set["offline"] {
		cfg.Offline = *offline
	}
	if set["no-cache"] {
		cfg.NoCache = *noCache
	}
	if set["cache-dir"] {
		cfg.CacheDir = *cacheDir
	}
	if set["maps-key"] {
		cfg.MapsAPIKey = *mapsAPIKey
	}

	if len(people) == 0 && len(locates) == 0 {
		return nil
	}
	cfg.Participants = make([]config.Participant, 0, len(people)+len(locates))
	for _, spec := range people {
		part, err := parsePerson(spec)
		if err != nil {
			return err
		}
		cfg.Participants = append(cfg.Participants, part)
	}
	for _, spec := range locates {
		cfg.Participants = append(cfg.Participants, parseLocate(spec))
	}
	return nil
}

// parsePerson parses "Name:CC:Zone". CC and Zone may be empty, but not both.
func parsePerson(spec string) (config.Participant, error) {
	parts := strings.SplitN(spec, ":", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	part := config.Participant{
		Name:     strings.TrimSpace(parts[0]),
		Country:  strings.ToUpper(strings.TrimSpace(parts[1])),
		Timezone: strings.TrimSpace(parts[2]),
	}
	if part.Country == "" && part.Timezone == "" {
		return part, fmt.Errorf("%w: participant %q needs a country or a timezone (Name:CC:Zone)", planner.ErrInvalidRequest, spec)
	}
	return part, nil
}

// parseLocate treats "lat,lng" as coordinates and anything else as an address.
func parseLocate(spec string) config.Participant {
	if lat, lng, ok := strings.Cut(spec, ","); ok {
		la, errLat := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		ln, errLng := strconv.ParseFloat(strings.TrimSpace(lng), 64)
		if errLat == nil && errLng == nil && la >= -90 && la <= 90 && ln >= -180 && ln <= 180 {
			return config.Participant{Lat: &la, Lng: &ln}
		}
	}
	return config.Participant{Name: spec, Location: spec}
}

func request(cfg *config.Config) planner.Request {
	req := planner.Request{
		Display:      cfg.Display,
		From:         *from,
		To:           *to,
		Filter:       cfg.Filter,
		Date:         *date,
		Awake:        cfg.Awake,
		Participants: make([]planner.ParticipantInput, 0, len(cfg.Participants)),
	}
	for _, p := range cfg.Participants {
		req.Participants = append(req.Participants, planner.ParticipantInput{
			Name:        p.Name,
			CountryCode: p.Country,
			Timezone:    p.Timezone,
			Location:    p.Location,
			Lat:         p.Lat,
			Lng:         p.Lng,
		})
	}
	return req
}

func write(w io.Writer, res *planner.Result, format string) error {
	switch format {
	case "text", "":
		return render.Text(w, res)
	case "html":
		return render.HTML(w, res)
	case "ics":
		return render.ICS(w, res)
	case "markdown", "md":
		out, err := render.Markdown(res)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out+"\n")
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		return fmt.Errorf("%w: unknown format %q", planner.ErrInvalidRequest, format)
	}
}
