package holiday

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultConcurrency  = 8
	defaultFetchTimeout = 30 * time.Second
)

type slot struct {
	country string
	year    int
}

// Loader populates a Cache from a Source for the (country, year) pairs of
// the current view. Queries against the cache must wait for the barrier
// returned by Start (or use Sync) so they never observe a half-filled view.
type Loader struct {
	cache        *Cache
	source       Source
	logger       *slog.Logger
	flight       singleflight.Group
	done         chan struct{}
	lastKey      string
	concurrency  int
	fetchTimeout time.Duration
	mu           sync.Mutex
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConcurrency bounds the number of fetches in flight.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithFetchTimeout bounds a single (country, year) fetch.
func WithFetchTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.fetchTimeout = d
		}
	}
}

// NewLoader returns a loader filling cache from source.
func NewLoader(cache *Cache, source Source, logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		cache:        cache,
		source:       source,
		logger:       logger,
		concurrency:  defaultConcurrency,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the cache the loader fills.
func (l *Loader) Cache() *Cache {
	return l.cache
}

// FetchKey is the composite de-duplication key of a view: the sorted country
// list and the sorted year list.
func FetchKey(countries []string, years []int) string {
	cs := make([]string, 0, len(countries))
	for _, c := range countries {
		if c = normalizeCC(c); c != "" {
			cs = append(cs, c)
		}
	}
	slices.Sort(cs)
	cs = slices.Compact(cs)

	ys := slices.Clone(years)
	slices.Sort(ys)
	ys = slices.Compact(ys)
	yss := make([]string, len(ys))
	for i, y := range ys {
		yss[i] = strconv.Itoa(y)
	}
	return strings.Join(cs, ",") + "|" + strings.Join(yss, ",")
}

// Start issues fetches for every missing (country, year) pair and returns a
// channel closed once all of them have settled. If the view key equals the
// previously started one, no fetch is issued and the earlier barrier is
// returned. Fetches run detached from ctx cancellation (bounded by the fetch
// timeout) so a caller that gives up never leaves holes for other waiters.
func (l *Loader) Start(ctx context.Context, countries []string, years []int) <-chan struct{} {
	key := FetchKey(countries, years)

	l.mu.Lock()
	defer l.mu.Unlock()
	if key == l.lastKey && l.done != nil {
		l.logger.Debug("holiday view unchanged, skipping fetch", "key", key)
		return l.done
	}

	l.lastKey = key
	done := make(chan struct{})
	l.done = done

	var pairs []slot
	for _, cc := range countries {
		cc = normalizeCC(cc)
		if cc == "" {
			continue
		}
		for _, y := range years {
			if !l.cache.Has(cc, y) {
				pairs = append(pairs, slot{country: cc, year: y})
			}
		}
	}

	if len(pairs) == 0 {
		close(done)
		return done
	}

	l.logger.Debug("fetching holidays", "key", key, "pairs", len(pairs))
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(l.concurrency)
		for _, p := range pairs {
			g.Go(func() error {
				l.Ensure(fetchCtx, p.country, p.year)
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // Ensure never fails, failures degrade to empty lists
	}()
	return done
}

// Sync starts the view and waits for its barrier or for ctx to end.
func (l *Loader) Sync(ctx context.Context, countries []string, years []int) error {
	select {
	case <-l.Start(ctx, countries, years):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure guarantees the cache holds an entry for the pair. A failing fetch
// stores an empty list: "no holidays known" rather than an error. Concurrent
// calls for the same pair share one fetch.
func (l *Loader) Ensure(ctx context.Context, countryCode string, year int) {
	cc := normalizeCC(countryCode)
	if l.cache.Has(cc, year) {
		return
	}

	_, _, _ = l.flight.Do(cc+"/"+strconv.Itoa(year), func() (any, error) { //nolint:errcheck // always nil
		if l.cache.Has(cc, year) {
			return nil, nil
		}
		fctx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()

		start := time.Now()
		recs, err := l.source.Fetch(fctx, cc, year)
		if err != nil {
			l.logger.Warn("holiday fetch failed, assuming none",
				"country", cc, "year", year, "error", err, "duration", time.Since(start))
			recs = nil
		} else {
			l.logger.Debug("holidays fetched",
				"country", cc, "year", year, "count", len(recs), "duration", time.Since(start))
		}
		l.cache.Put(cc, year, recs)
		return nil, nil
	})
}
