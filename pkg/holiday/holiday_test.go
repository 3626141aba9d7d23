package holiday

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"slices"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingSource struct {
	mu     sync.Mutex
	calls  map[string]int
	data   Static
	failCC string
}

func newCountingSource(data Static) *countingSource {
	return &countingSource{calls: make(map[string]int), data: data}
}

func (s *countingSource) Fetch(ctx context.Context, cc string, year int) ([]Record, error) {
	s.mu.Lock()
	s.calls[fmt.Sprintf("%s/%d", cc, year)]++
	s.mu.Unlock()
	if cc == s.failCC {
		return nil, errors.New("upstream unavailable")
	}
	return s.data.Fetch(ctx, cc, year)
}

func (s *countingSource) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *countingSource) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

var fixtures = Static{
	"US": {
		2024: {
			{Date: "2024-01-01", Name: "New Year's Day", CountryCode: "US", Type: TypePublic},
			{Date: "2024-07-04", Name: "Independence Day", CountryCode: "US", Type: TypePublic},
			{Date: "2024-12-25", Name: "Christmas Day", CountryCode: "US", Type: TypePublic},
		},
	},
	"JP": {
		2024: {
			{Date: "2024-01-01", Name: "New Year's Day", CountryCode: "JP", Type: TypePublic},
			{Date: "2024-12-25", Name: "Christmas", CountryCode: "JP", Type: TypeObservance},
		},
	},
	"GB": {
		2024: {
			{Date: "2024-01-01", Name: "New Year's Day", CountryCode: "GB", Type: TypePublic},
			{Date: "2024-12-25", Name: "Christmas Day", CountryCode: "GB", Type: TypePublic},
		},
	},
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"Public", TypePublic},
		{"public", TypePublic},
		{" Bank ", TypeBank},
		{"School", TypeSchool},
		{"Authorities", TypeAuthorities},
		{"Optional", TypeOptional},
		{"Observance", TypeObservance},
		{"", TypeObservance},
		{"festival", TypeObservance},
	}
	for _, tt := range tests {
		if got := ParseType(tt.in); got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordTitle(t *testing.T) {
	if got := (Record{Name: "Christmas Day", LocalName: "Weihnachtstag"}).Title(); got != "Christmas Day" {
		t.Errorf("Title() = %q", got)
	}
	if got := (Record{LocalName: "Weihnachtstag"}).Title(); got != "Weihnachtstag" {
		t.Errorf("Title() fallback = %q", got)
	}
}

func TestCachePutIsWriteOnce(t *testing.T) {
	c := NewCache()
	if c.Has("US", 2024) {
		t.Fatal("empty cache reports a slot")
	}
	if !c.Put("us", 2024, fixtures["US"][2024]) {
		t.Fatal("first Put was not written")
	}
	if c.Put("US", 2024, nil) {
		t.Error("second Put overwrote a populated slot")
	}
	recs, ok := c.Get("US", 2024)
	if !ok || len(recs) != 3 {
		t.Errorf("Get = %d records, ok=%v; want 3, true", len(recs), ok)
	}

	c.Put("FR", 2024, nil)
	recs, ok = c.Get("FR", 2024)
	if !ok || recs == nil || len(recs) != 0 {
		t.Errorf("nil Put should populate an empty slot, got %v ok=%v", recs, ok)
	}

	c.Put("US", 2025, nil)
	if got := c.Years("US"); len(got) != 2 || got[0] != 2024 || got[1] != 2025 {
		t.Errorf("Years(US) = %v", got)
	}
}

func TestFetchKey(t *testing.T) {
	a := FetchKey([]string{"jp", "US", "US"}, []int{2025, 2024})
	b := FetchKey([]string{"US", "JP"}, []int{2024, 2025, 2025})
	if a != b {
		t.Errorf("FetchKey not order independent: %q vs %q", a, b)
	}
	if a != "JP,US|2024,2025" {
		t.Errorf("FetchKey = %q", a)
	}
}

func TestLoaderSkipsUnchangedView(t *testing.T) {
	src := newCountingSource(fixtures)
	l := NewLoader(NewCache(), src, quietLogger())
	ctx := context.Background()

	if err := l.Sync(ctx, []string{"US", "JP"}, []int{2024}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := src.total(); got != 2 {
		t.Fatalf("first view fetched %d times, want 2", got)
	}

	if err := l.Sync(ctx, []string{"JP", "US"}, []int{2024}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := src.total(); got != 2 {
		t.Errorf("unchanged view refetched: %d calls", got)
	}

	// A new year only fetches the missing pairs.
	if err := l.Sync(ctx, []string{"US", "JP"}, []int{2024, 2025}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := src.total(); got != 4 {
		t.Errorf("widened view made %d calls, want 4", got)
	}
	if src.count("US/2024") != 1 || src.count("US/2025") != 1 {
		t.Errorf("unexpected call counts: %v", src.calls)
	}
}

func TestLoaderFailureStoresEmptyList(t *testing.T) {
	src := newCountingSource(fixtures)
	src.failCC = "GB"
	c := NewCache()
	l := NewLoader(c, src, quietLogger())

	if err := l.Sync(context.Background(), []string{"US", "GB"}, []int{2024}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	recs, ok := c.Get("GB", 2024)
	if !ok || len(recs) != 0 {
		t.Errorf("failed fetch left %v ok=%v, want populated empty slot", recs, ok)
	}
	if got, _ := c.Get("US", 2024); len(got) != 3 {
		t.Errorf("US records = %d, want 3", len(got))
	}

	// Failures are not retried within a process.
	l.Ensure(context.Background(), "GB", 2024)
	if got := src.count("GB/2024"); got != 1 {
		t.Errorf("GB fetched %d times, want 1", got)
	}
}

func TestLoaderSharesConcurrentFetches(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	src := SourceFunc(func(ctx context.Context, cc string, year int) ([]Record, error) {
		calls.Add(1)
		<-release
		return nil, nil
	})
	l := NewLoader(NewCache(), src, quietLogger())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Ensure(context.Background(), "DE", 2024)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("concurrent Ensure made %d fetches, want 1", got)
	}
}

func TestLoaderFetchOutlivesCanceledCaller(t *testing.T) {
	src := SourceFunc(func(ctx context.Context, cc string, year int) ([]Record, error) {
		time.Sleep(10 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fixtures[cc][year], nil
	})
	c := NewCache()
	l := NewLoader(c, src, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := l.Start(ctx, []string{"US"}, []int{2024})
	cancel()
	<-done

	if got, _ := c.Get("US", 2024); len(got) != 3 {
		t.Errorf("canceled caller left %d records, want 3", len(got))
	}
}

func TestIndexGroupHoliday(t *testing.T) {
	c := NewCache()
	for cc, years := range fixtures {
		for y, recs := range years {
			c.Put(cc, y, recs)
		}
	}

	tests := []struct {
		name      string
		countries []string
		date      time.Time
		want      bool
	}{
		{"single country public", []string{"US"}, time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC), true},
		{"day after", []string{"US"}, time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC), false},
		{"shared new year", []string{"US", "JP", "GB"}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"not shared by all", []string{"US", "JP"}, time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC), false},
		{"observance does not count", []string{"US", "JP"}, time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), false},
		{"public in both", []string{"US", "GB"}, time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), true},
		{"empty group", nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := c.Index(tt.countries, []int{2024})
			if got := idx.IsGroupHoliday(tt.date); got != tt.want {
				t.Errorf("IsGroupHoliday(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestIndexDisplayZoneProjection(t *testing.T) {
	c := NewCache()
	c.Put("US", 2024, fixtures["US"][2024])
	idx := c.Index([]string{"US"}, []int{2024})

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	// Midday July 4 in Tokyo is still July 3 in New York.
	if idx.IsGroupHoliday(time.Date(2024, 7, 4, 0, 0, 0, 0, tokyo)) {
		t.Error("July 4 in Tokyo should map to July 3 in New York")
	}
	if !idx.IsGroupHoliday(time.Date(2024, 7, 5, 0, 0, 0, 0, tokyo)) {
		t.Error("July 5 in Tokyo should map to July 4 in New York")
	}
}

func TestIndexByCountryAndOn(t *testing.T) {
	c := NewCache()
	c.Put("US", 2024, fixtures["US"][2024])
	c.Put("US", 2025, []Record{{Date: "2025-01-01", Name: "New Year's Day", CountryCode: "US", Type: TypePublic}})
	idx := c.Index([]string{"us", "US"}, []int{2025, 2024})

	if got := idx.Countries(); len(got) != 1 || got[0] != "US" {
		t.Fatalf("Countries() = %v", got)
	}
	recs := idx.ByCountry()["US"]
	if len(recs) != 4 {
		t.Fatalf("ByCountry()[US] = %d records, want 4", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Date > recs[i].Date {
			t.Errorf("records not date ordered: %s before %s", recs[i-1].Date, recs[i].Date)
		}
	}

	on := idx.On(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC))
	if len(on["US"]) != 1 || on["US"][0].Name != "Christmas Day" {
		t.Errorf("On(2024-12-25) = %v", on)
	}
}

func TestIndexProject(t *testing.T) {
	c := NewCache()
	c.Put("JP", 2024, fixtures["JP"][2024])
	idx := c.Index([]string{"JP"}, []int{2024})

	start, end, err := idx.Project(fixtures["JP"][2024][0], time.UTC)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	wantStart := time.Date(2023, 12, 31, 15, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("span = %v, want 24h", end.Sub(start))
	}

	if _, _, err := idx.Project(Record{Date: "not-a-date", CountryCode: "JP"}, time.UTC); err == nil {
		t.Error("Project accepted a malformed date")
	}
}

type memoryStore struct {
	mu     sync.Mutex
	data   map[string][]Record
	sets   int
	getErr error
}

func (m *memoryStore) Get(_ context.Context, cc string, year int) ([]Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	recs, ok := m.data[fmt.Sprintf("%s/%d", cc, year)]
	return recs, ok, nil
}

func (m *memoryStore) Set(_ context.Context, cc string, year int, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[fmt.Sprintf("%s/%d", cc, year)] = recs
	return nil
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	src := newCountingSource(fixtures)
	src.failCC = "GB"
	store := &memoryStore{data: make(map[string][]Record)}
	cached := Cached(src, store, quietLogger())

	for range 2 {
		recs, err := cached.Fetch(ctx, "US", 2024)
		if err != nil || len(recs) != 3 {
			t.Fatalf("Fetch(US) = %d, %v", len(recs), err)
		}
	}
	if got := src.count("US/2024"); got != 1 {
		t.Errorf("source called %d times, want 1", got)
	}

	if _, err := cached.Fetch(ctx, "GB", 2024); err == nil {
		t.Error("expected upstream error")
	}
	if store.sets != 1 {
		t.Errorf("store written %d times, failures must not be persisted", store.sets)
	}

	store.getErr = errors.New("store down")
	if recs, err := cached.Fetch(ctx, "US", 2024); err != nil || len(recs) != 3 {
		t.Errorf("store errors should fall through to source, got %d, %v", len(recs), err)
	}

	if Cached(src, nil, nil) != Source(src) {
		t.Error("Cached with nil store should return the source unchanged")
	}
}

func TestViewYears(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		dates      []time.Time
		want       []int
	}{
		{"mid year", "2024-07-01", "2024-07-31", nil, []int{2024}},
		{"ends on new year's eve", "2024-12-01", "2024-12-31", nil, []int{2024, 2025}},
		{"starts on new year's day", "2024-01-01", "2024-01-31", nil, []int{2023, 2024}},
		{"crosses new year", "2024-12-30", "2025-01-02", nil, []int{2024, 2025}},
		{"extra date on new year's day", "2024-07-01", "2024-07-31", []time.Time{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}, []int{2024, 2025}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := calrange.Parse(tt.start, tt.end, time.UTC)
			if err != nil {
				t.Fatal(err)
			}
			if got := ViewYears(r, tt.dates...); !slices.Equal(got, tt.want) {
				t.Errorf("ViewYears = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIndexNewYearAcrossDateLine(t *testing.T) {
	c := NewCache()
	c.Put("NZ", 2024, []Record{{Date: "2024-12-25", Name: "Christmas Day", CountryCode: "NZ", Type: TypePublic}})
	c.Put("NZ", 2025, []Record{{Date: "2025-01-01", Name: "New Year's Day", CountryCode: "NZ", Type: TypePublic}})

	r, err := calrange.Parse("2024-12-01", "2024-12-31", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	idx := c.Index([]string{"NZ"}, ViewYears(r))

	// Midday December 31st in UTC is already January 1st in Auckland.
	nye := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	if !idx.IsGroupHoliday(nye) {
		t.Error("2024-12-31 in UTC should map to New Year's Day in New Zealand")
	}
	if on := idx.On(nye); len(on["NZ"]) != 1 || on["NZ"][0].Name != "New Year's Day" {
		t.Errorf("On(2024-12-31) = %v", on)
	}
}
