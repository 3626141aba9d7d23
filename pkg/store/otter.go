// Package store persists fetched holiday lists so that restarts and other
// processes do not hit the upstream API again.
package store

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
)

const (
	// DefaultTTL keeps a fetched year for a month; published calendars rarely change.
	DefaultTTL = 30 * 24 * time.Hour

	cacheFile           = "holidays.gob"
	defaultSaveInterval = 15 * time.Minute
)

// Entry is one persisted (country, year) holiday list.
type Entry struct {
	ExpiresAt time.Time
	Records   []holiday.Record
}

// Otter is an in-memory holiday store backed by a gob file on disk.
type Otter struct {
	cache        *otter.Cache[string, Entry]
	logger       *slog.Logger
	saveCancel   context.CancelFunc
	dir          string
	saveWg       sync.WaitGroup
	ttl          time.Duration
	saveInterval time.Duration
	mu           sync.Mutex
}

// OtterOption configures an Otter store.
type OtterOption func(*Otter)

// WithTTL sets how long entries stay valid.
func WithTTL(ttl time.Duration) OtterOption {
	return func(o *Otter) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithSaveInterval sets how often the store is flushed to disk.
func WithSaveInterval(d time.Duration) OtterOption {
	return func(o *Otter) {
		if d > 0 {
			o.saveInterval = d
		}
	}
}

// NewOtter opens the store in dir, loading any previous snapshot. An empty
// dir keeps the store in memory only.
func NewOtter(ctx context.Context, dir string, logger *slog.Logger, opts ...OtterOption) (*Otter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Otter{
		dir:          dir,
		logger:       logger,
		ttl:          DefaultTTL,
		saveInterval: defaultSaveInterval,
	}
	for _, opt := range opts {
		opt(o)
	}

	o.cache = otter.Must(&otter.Options[string, Entry]{
		MaximumSize:      10_000,
		InitialCapacity:  256,
		ExpiryCalculator: otter.ExpiryWriting[string, Entry](o.ttl),
	})

	if dir == "" {
		return o, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if err := o.loadFromDisk(); err != nil {
		logger.Warn("failed to load holiday store from disk", "error", err)
	}
	logger.Info("holiday store initialized", "dir", dir, "entries_loaded", o.cache.EstimatedSize())

	o.startPeriodicSave(ctx)
	return o, nil
}

// Key is the store key of a (country, year) pair.
func Key(countryCode string, year int) string {
	return strings.ToUpper(strings.TrimSpace(countryCode)) + "/" + strconv.Itoa(year)
}

// Get returns the stored records of a pair.
func (o *Otter) Get(_ context.Context, countryCode string, year int) ([]holiday.Record, bool, error) {
	key := Key(countryCode, year)
	entry, found := o.cache.GetIfPresent(key)
	if !found {
		return nil, false, nil
	}
	if time.Now().After(entry.ExpiresAt) {
		o.logger.Debug("holiday store entry expired", "key", key, "expired_at", entry.ExpiresAt)
		o.cache.Invalidate(key)
		return nil, false, nil
	}
	return entry.Records, true, nil
}

// Set stores the records of a pair.
func (o *Otter) Set(_ context.Context, countryCode string, year int, records []holiday.Record) error {
	if records == nil {
		records = []holiday.Record{}
	}
	key := Key(countryCode, year)
	entry := Entry{Records: records, ExpiresAt: time.Now().Add(o.ttl)}
	o.cache.Set(key, entry)
	o.logger.Debug("holiday store set", "key", key, "count", len(records), "expires_at", entry.ExpiresAt)
	return nil
}

// Len returns the approximate number of stored pairs.
func (o *Otter) Len() int {
	return o.cache.EstimatedSize()
}

func (o *Otter) path() string {
	return filepath.Join(o.dir, cacheFile)
}

func (o *Otter) loadFromDisk() error {
	file, err := os.Open(o.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			o.logger.Debug("no existing holiday store file", "path", o.path())
			return nil
		}
		return fmt.Errorf("opening store file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			o.logger.Debug("failed to close store file", "error", err)
		}
	}()

	var entries map[string]Entry
	if err := gob.NewDecoder(file).Decode(&entries); err != nil {
		return fmt.Errorf("decoding store file: %w", err)
	}

	now := time.Now()
	valid := 0
	for key, entry := range entries {
		if now.Before(entry.ExpiresAt) {
			o.cache.Set(key, entry)
			valid++
		}
	}
	o.logger.Debug("loaded holiday store from disk",
		"path", o.path(), "total_entries", len(entries), "valid_entries", valid)
	return nil
}

// Save writes a snapshot of all live entries to disk.
func (o *Otter) Save() error {
	if o.dir == "" {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	tempPath := o.path() + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			o.logger.Debug("failed to remove temp file", "error", err)
		}
	}()

	entries := make(map[string]Entry)
	now := time.Now()
	for key, entry := range o.cache.All() {
		if now.Before(entry.ExpiresAt) {
			entries[key] = entry
		}
	}

	if err := gob.NewEncoder(file).Encode(entries); err != nil {
		_ = file.Close() //nolint:errcheck // already failing
		return fmt.Errorf("encoding store file: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close() //nolint:errcheck // already failing
		return fmt.Errorf("syncing store file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing store file: %w", err)
	}
	if err := os.Rename(tempPath, o.path()); err != nil {
		return fmt.Errorf("replacing store file: %w", err)
	}

	o.logger.Debug("holiday store saved", "entries", len(entries), "path", o.path())
	return nil
}

func (o *Otter) startPeriodicSave(ctx context.Context) {
	saveCtx, cancel := context.WithCancel(ctx)
	o.saveCancel = cancel

	o.saveWg.Add(1)
	go func() {
		defer o.saveWg.Done()
		ticker := time.NewTicker(o.saveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-saveCtx.Done():
				return
			case <-ticker.C:
				if err := o.Save(); err != nil {
					o.logger.Error("periodic holiday store save failed", "error", err)
				}
			}
		}
	}()
}

// Close stops periodic saving and writes a final snapshot.
func (o *Otter) Close() error {
	if o.saveCancel != nil {
		o.saveCancel()
	}
	o.saveWg.Wait()
	if err := o.Save(); err != nil {
		o.logger.Error("final holiday store save failed", "error", err)
		return err
	}
	return nil
}
