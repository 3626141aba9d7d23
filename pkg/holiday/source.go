package holiday

import (
	"context"
	"log/slog"
)

// Source retrieves the holidays of one country for one year.
type Source interface {
	Fetch(ctx context.Context, countryCode string, year int) ([]Record, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, countryCode string, year int) ([]Record, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, countryCode string, year int) ([]Record, error) {
	return f(ctx, countryCode, year)
}

// Static serves records from memory: country code -> year -> records.
// Missing pairs yield an empty list. Intended for fixtures and demos.
type Static map[string]map[int][]Record

// Fetch returns the stored records for the pair.
func (s Static) Fetch(_ context.Context, countryCode string, year int) ([]Record, error) {
	return s[normalizeCC(countryCode)][year], nil
}

// Store persists fetched holiday lists across processes or restarts.
type Store interface {
	Get(ctx context.Context, countryCode string, year int) ([]Record, bool, error)
	Set(ctx context.Context, countryCode string, year int, records []Record) error
}

type cachedSource struct {
	source Source
	store  Store
	logger *slog.Logger
}

// Cached wraps source so that results are read from and written to store.
// Store errors are logged and otherwise ignored; failed fetches are never
// persisted so a later run can try again.
func Cached(source Source, store Store, logger *slog.Logger) Source {
	if store == nil {
		return source
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedSource{source: source, store: store, logger: logger}
}

func (c *cachedSource) Fetch(ctx context.Context, countryCode string, year int) ([]Record, error) {
	recs, ok, err := c.store.Get(ctx, countryCode, year)
	if err != nil {
		c.logger.Warn("holiday store read failed", "country", countryCode, "year", year, "error", err)
	} else if ok {
		c.logger.Debug("holiday store hit", "country", countryCode, "year", year, "count", len(recs))
		return recs, nil
	}

	recs, err = c.source.Fetch(ctx, countryCode, year)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, countryCode, year, recs); err != nil {
		c.logger.Warn("holiday store write failed", "country", countryCode, "year", year, "error", err)
	}
	return recs, nil
}
