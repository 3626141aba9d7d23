package geo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const tokyoGeocode = `{
  "status": "OK",
  "results": [{
    "address_components": [
      {"long_name": "Chiyoda City", "short_name": "Chiyoda City", "types": ["locality", "political"]},
      {"long_name": "Japan", "short_name": "JP", "types": ["country", "political"]}
    ]
  }]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMaps struct {
	geocode  string
	timezone string
	status   int
}

func (f fakeMaps) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("key") != "test-key" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/geocode/json"):
		_, _ = io.WriteString(w, f.geocode)
	case strings.HasSuffix(r.URL.Path, "/timezone/json"):
		_, _ = io.WriteString(w, f.timezone)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newResolver(t *testing.T, f fakeMaps) *Resolver {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewResolver(NewClient("test-key", srv.URL, srv.Client(), quietLogger()), quietLogger())
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		maps        fakeMaps
		wantCountry string
		wantName    string
		wantZone    string
		wantAdvice  bool
	}{
		{
			name:        "full answer",
			maps:        fakeMaps{geocode: tokyoGeocode, timezone: `{"status":"OK","timeZoneId":"Asia/Tokyo"}`},
			wantCountry: "JP",
			wantName:    "Chiyoda City, Japan",
			wantZone:    "Asia/Tokyo",
		},
		{
			name:        "timezone fails, country zone used",
			maps:        fakeMaps{geocode: tokyoGeocode, timezone: `{"status":"OVER_QUERY_LIMIT"}`},
			wantCountry: "JP",
			wantName:    "Chiyoda City, Japan",
			wantZone:    "Asia/Tokyo",
			wantAdvice:  true,
		},
		{
			name:       "ocean",
			maps:       fakeMaps{geocode: `{"status":"ZERO_RESULTS","results":[]}`, timezone: `{"status":"ZERO_RESULTS"}`},
			wantName:   "Unknown",
			wantZone:   "UTC",
			wantAdvice: true,
		},
		{
			name:       "server down",
			maps:       fakeMaps{status: http.StatusBadGateway},
			wantName:   "Unknown",
			wantZone:   "UTC",
			wantAdvice: true,
		},
		{
			name:        "bogus zone",
			maps:        fakeMaps{geocode: tokyoGeocode, timezone: `{"status":"OK","timeZoneId":"Mars/Olympus"}`},
			wantCountry: "JP",
			wantName:    "Chiyoda City, Japan",
			wantZone:    "Asia/Tokyo",
			wantAdvice:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newResolver(t, tt.maps).Resolve(context.Background(), 35.6938, 139.7034)
			if p.ID != "35.6938,139.7034" {
				t.Errorf("ID = %q", p.ID)
			}
			if p.CountryCode != tt.wantCountry {
				t.Errorf("CountryCode = %q, want %q", p.CountryCode, tt.wantCountry)
			}
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name, tt.wantName)
			}
			if p.Timezone != tt.wantZone {
				t.Errorf("Timezone = %q, want %q", p.Timezone, tt.wantZone)
			}
			if (p.Advisory != "") != tt.wantAdvice {
				t.Errorf("Advisory = %q, want advisory %v", p.Advisory, tt.wantAdvice)
			}
			if p.Latitude == nil || *p.Latitude != 35.6938 {
				t.Errorf("Latitude = %v", p.Latitude)
			}
		})
	}
}

func TestNoAPIKey(t *testing.T) {
	c := NewClient("", "", nil, quietLogger())
	if c.Enabled() {
		t.Error("client without key reports enabled")
	}
	if _, err := c.TimezoneForCoordinates(context.Background(), 0, 0); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}

	p := NewResolver(c, quietLogger()).Resolve(context.Background(), 0, 0)
	if p.Timezone != "UTC" || p.Advisory == "" {
		t.Errorf("keyless resolve = %+v", p)
	}
}

func TestGeocodeLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") != "Berlin" {
			_, _ = io.WriteString(w, `{"status":"ZERO_RESULTS","results":[]}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":52.52,"lng":13.405}}}]}`)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, srv.Client(), quietLogger())
	loc, err := c.GeocodeLocation(context.Background(), "Berlin")
	if err != nil {
		t.Fatalf("GeocodeLocation: %v", err)
	}
	if loc.Latitude != 52.52 || loc.Longitude != 13.405 {
		t.Errorf("loc = %+v", loc)
	}
	if _, err := c.GeocodeLocation(context.Background(), "Atlantis"); err == nil {
		t.Error("expected failure for unknown place")
	}
}
