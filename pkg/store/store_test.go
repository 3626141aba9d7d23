package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var usRecords = []holiday.Record{
	{Date: "2024-07-04", Name: "Independence Day", CountryCode: "US", Type: holiday.TypePublic},
	{Date: "2024-12-25", Name: "Christmas Day", CountryCode: "US", Type: holiday.TypePublic},
}

func TestKey(t *testing.T) {
	if got := Key(" us ", 2024); got != "US/2024" {
		t.Errorf("Key = %q", got)
	}
}

func TestOtterRoundTripThroughDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewOtter(ctx, dir, quietLogger())
	if err != nil {
		t.Fatalf("NewOtter: %v", err)
	}
	if _, ok, err := s.Get(ctx, "US", 2024); ok || err != nil {
		t.Fatalf("empty store Get = ok %v, err %v", ok, err)
	}
	if err := s.Set(ctx, "US", 2024, usRecords); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "AQ", 2024, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewOtter(ctx, dir, quietLogger())
	if err != nil {
		t.Fatalf("NewOtter reopen: %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	recs, ok, err := reopened.Get(ctx, "us", 2024)
	if err != nil || !ok {
		t.Fatalf("Get after reopen = ok %v, err %v", ok, err)
	}
	if len(recs) != 2 || recs[0].Name != "Independence Day" || recs[1].Type != holiday.TypePublic {
		t.Errorf("records after reopen = %+v", recs)
	}

	empty, ok, err := reopened.Get(ctx, "AQ", 2024)
	if err != nil || !ok || len(empty) != 0 {
		t.Errorf("empty entry after reopen = %v ok %v err %v", empty, ok, err)
	}
}

func TestOtterMemoryOnly(t *testing.T) {
	ctx := context.Background()
	s, err := NewOtter(ctx, "", quietLogger())
	if err != nil {
		t.Fatalf("NewOtter: %v", err)
	}
	if err := s.Set(ctx, "US", 2024, usRecords); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "US", 2024); !ok { //nolint:errcheck // memory store never errors
		t.Error("memory store lost entry")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close on memory store: %v", err)
	}
}

func TestOtterExpiredEntriesNotLoaded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewOtter(ctx, dir, quietLogger(), WithTTL(time.Millisecond))
	if err != nil {
		t.Fatalf("NewOtter: %v", err)
	}
	if err := s.Set(ctx, "US", 2024, usRecords); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := s.Get(ctx, "US", 2024); ok { //nolint:errcheck // memory store never errors
		t.Error("expired entry returned")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewOtter(ctx, dir, quietLogger())
	if err != nil {
		t.Fatalf("NewOtter: %v", err)
	}
	defer reopened.Close() //nolint:errcheck // test cleanup
	if reopened.Len() != 0 {
		t.Errorf("expired entries were persisted: %d", reopened.Len())
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	s := NewRedis(redis.NewClient(&redis.Options{Addr: addr}), "tzmeet-test:"+t.Name(), time.Minute, quietLogger())
	defer s.Close() //nolint:errcheck // test cleanup

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if _, ok, err := s.Get(ctx, "ZZ", 1999); ok || err != nil {
		t.Fatalf("missing key Get = ok %v, err %v", ok, err)
	}
	if err := s.Set(ctx, "US", 2024, usRecords); err != nil {
		t.Fatalf("Set: %v", err)
	}
	recs, ok, err := s.Get(ctx, "US", 2024)
	if err != nil || !ok || len(recs) != 2 {
		t.Errorf("Get = %v ok %v err %v", recs, ok, err)
	}
}
