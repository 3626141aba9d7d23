package participant

import (
	"slices"
	"testing"
)

func TestAddIsIdempotent(t *testing.T) {
	r := NewRegistry()
	p := Participant{ID: "35.6762,139.6503", Name: "Japan", CountryCode: "JP", Timezone: "Asia/Tokyo"}

	if !r.Add(p) {
		t.Fatal("first Add should change the registry")
	}
	if r.Add(p) {
		t.Error("second Add with same id should be a no-op")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	renamed := p
	renamed.Name = "Tokyo"
	r.Add(renamed)
	if got, _ := r.Get(p.ID); got.Name != "Japan" {
		t.Errorf("duplicate id replaced existing participant: %+v", got)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry(
		Participant{ID: "a", CountryCode: "US", Timezone: "America/New_York"},
		Participant{ID: "b", CountryCode: "JP", Timezone: "Asia/Tokyo"},
		Participant{ID: "c", CountryCode: "DE", Timezone: "Europe/Berlin"},
	)

	if !r.Remove("b") {
		t.Fatal("first Remove should change the registry")
	}
	if r.Remove("b") {
		t.Error("second Remove should be a no-op")
	}
	if r.Remove("missing") {
		t.Error("removing an unknown id should be a no-op")
	}

	var ids []string
	for _, p := range r.List() {
		ids = append(ids, p.ID)
	}
	if !slices.Equal(ids, []string{"a", "c"}) {
		t.Errorf("ids after remove = %v", ids)
	}
	if got, ok := r.Get("c"); !ok || got.CountryCode != "DE" {
		t.Errorf("Get(c) after remove = %+v, %v", got, ok)
	}
}

func TestCountryCodes(t *testing.T) {
	r := NewRegistry(
		Participant{ID: "1", CountryCode: "us", Timezone: "America/New_York"},
		Participant{ID: "2", CountryCode: "JP", Timezone: "Asia/Tokyo"},
		Participant{ID: "3", CountryCode: "", Timezone: "UTC"},
		Participant{ID: "4", CountryCode: "US", Timezone: "America/Los_Angeles"},
	)

	if got := r.CountryCodes(); !slices.Equal(got, []string{"US", "JP"}) {
		t.Errorf("CountryCodes = %v, want [US JP]", got)
	}
}

func TestTimezonesStripsAdvisory(t *testing.T) {
	r := NewRegistry(
		Participant{ID: "1", Timezone: "UTC (fallback)"},
		Participant{ID: "2", Timezone: "UTC"},
		Participant{ID: "3", Timezone: "Europe/Berlin"},
		Participant{ID: "4", Timezone: ""},
	)

	if got := r.Timezones(); !slices.Equal(got, []string{"UTC", "Europe/Berlin"}) {
		t.Errorf("Timezones = %v", got)
	}
}

func TestNew(t *testing.T) {
	p := New("Somewhere", "fr", "")
	if p.ID == "" {
		t.Error("expected generated id")
	}
	if p.Timezone != FallbackTimezone || p.Advisory == "" {
		t.Errorf("expected UTC fallback with advisory, got %+v", p)
	}
	if p.CountryCode != "FR" {
		t.Errorf("CountryCode = %q, want FR", p.CountryCode)
	}

	if q := New("Other", "fr", ""); q.ID == p.ID {
		t.Error("generated ids should be unique")
	}
}

func TestCoordinateID(t *testing.T) {
	if got := CoordinateID(35.67621, 139.65031); got != "35.6762,139.6503" {
		t.Errorf("CoordinateID = %q", got)
	}
}
