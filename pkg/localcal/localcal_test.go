package localcal

import (
	"context"
	"slices"
	"testing"

	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
)

func find(recs []holiday.Record, date string) (holiday.Record, bool) {
	for _, r := range recs {
		if r.Date == date {
			return r, true
		}
	}
	return holiday.Record{}, false
}

func TestFetchUS(t *testing.T) {
	recs, err := Source{}.Fetch(context.Background(), "us", 2024)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("no US holidays")
	}

	r, ok := find(recs, "2024-07-04")
	if !ok {
		t.Fatal("2024-07-04 missing")
	}
	if r.Type != holiday.TypePublic || r.CountryCode != "US" {
		t.Errorf("2024-07-04 = %+v", r)
	}
	if _, ok := find(recs, "2024-07-05"); ok {
		t.Error("2024-07-05 should not be a holiday")
	}

	for i := 1; i < len(recs); i++ {
		if recs[i-1].Date > recs[i].Date {
			t.Fatalf("records not sorted at %d", i)
		}
	}
	for _, r := range recs {
		if r.Date[:4] != "2024" {
			t.Errorf("record outside requested year: %s", r.Date)
		}
	}
}

func TestFetchObserved(t *testing.T) {
	// July 4, 2026 is a Saturday; the federal holiday is observed Friday.
	recs, err := Source{}.Fetch(context.Background(), "US", 2026)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if _, ok := find(recs, "2026-07-04"); !ok {
		t.Error("actual date missing")
	}
	if r, ok := find(recs, "2026-07-03"); !ok || r.Type != holiday.TypePublic {
		t.Errorf("observed date = %+v, %v", r, ok)
	}
}

func TestFetchUnsupported(t *testing.T) {
	recs, err := Source{}.Fetch(context.Background(), "ZZ", 2024)
	if err != nil || len(recs) != 0 {
		t.Errorf("lenient Fetch(ZZ) = %v, %v", recs, err)
	}
	if _, err := (Source{Strict: true}).Fetch(context.Background(), "ZZ", 2024); err == nil {
		t.Error("strict Fetch(ZZ) should fail")
	}
}

func TestSupported(t *testing.T) {
	got := Supported()
	if !slices.IsSorted(got) {
		t.Errorf("Supported() not sorted: %v", got)
	}
	for _, cc := range []string{"US", "GB", "DE"} {
		if !slices.Contains(got, cc) || !Has(cc) {
			t.Errorf("%s should be supported", cc)
		}
	}
	if Has("ZZ") {
		t.Error("ZZ should not be supported")
	}
}
