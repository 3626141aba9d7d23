// Package participant holds the set of people a meeting is planned for.
package participant

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// FallbackTimezone is used when a participant's zone cannot be resolved.
const FallbackTimezone = "UTC"

// UnknownCountry is the display name used when a country cannot be resolved.
const UnknownCountry = "Unknown"

// Participant is a single meeting attendee.
type Participant struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	CountryCode string   `json:"country_code,omitempty"`
	Timezone    string   `json:"timezone"`
	Advisory    string   `json:"advisory,omitempty"` // set when Timezone or CountryCode is a fallback
	Latitude    *float64 `json:"lat,omitempty"`
	Longitude   *float64 `json:"lng,omitempty"`
}

// New builds a participant, filling in an ID and the UTC fallback zone.
func New(name, countryCode, timezone string) Participant {
	p := Participant{
		ID:          uuid.NewString(),
		Name:        name,
		CountryCode: strings.ToUpper(strings.TrimSpace(countryCode)),
		Timezone:    StripAdvisory(timezone),
	}
	if p.Timezone == "" {
		p.Timezone = FallbackTimezone
		p.Advisory = "timezone unknown, using " + FallbackTimezone
	}
	return p
}

// CoordinateID derives a stable participant ID from a map position.
func CoordinateID(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// Zone returns the raw IANA identifier, never empty.
func (p Participant) Zone() string {
	if tz := StripAdvisory(p.Timezone); tz != "" {
		return tz
	}
	return FallbackTimezone
}

// StripAdvisory removes a trailing advisory note such as " (fallback)" or
// " - approximate" from a timezone string.
func StripAdvisory(tz string) string {
	tz = strings.TrimSpace(tz)
	if i := strings.IndexAny(tz, " ("); i >= 0 {
		tz = tz[:i]
	}
	return tz
}

// Registry is an insertion-ordered set of participants keyed by ID.
// It is not safe for concurrent mutation.
type Registry struct {
	items []Participant
	index map[string]int
}

// NewRegistry returns a registry pre-filled with ps (duplicates ignored).
func NewRegistry(ps ...Participant) *Registry {
	r := &Registry{index: make(map[string]int)}
	for _, p := range ps {
		r.Add(p)
	}
	return r
}

// Add inserts p unless a participant with the same ID exists.
// It reports whether the registry changed.
func (r *Registry) Add(p Participant) bool {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if _, ok := r.index[p.ID]; ok {
		return false
	}
	r.index[p.ID] = len(r.items)
	r.items = append(r.items, p)
	return true
}

// Remove deletes the participant with id. Removing an absent id is a no-op.
// It reports whether the registry changed.
func (r *Registry) Remove(id string) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	r.items = slices.Delete(r.items, i, i+1)
	delete(r.index, id)
	for j := i; j < len(r.items); j++ {
		r.index[r.items[j].ID] = j
	}
	return true
}

// Get returns the participant with id.
func (r *Registry) Get(id string) (Participant, bool) {
	i, ok := r.index[id]
	if !ok {
		return Participant{}, false
	}
	return r.items[i], true
}

// Len returns the number of participants.
func (r *Registry) Len() int {
	return len(r.items)
}

// List returns a copy of all participants in insertion order.
func (r *Registry) List() []Participant {
	return slices.Clone(r.items)
}

// CountryCodes returns the distinct non-empty country codes in first-seen order.
func (r *Registry) CountryCodes() []string {
	var codes []string
	seen := make(map[string]bool)
	for _, p := range r.items {
		cc := strings.ToUpper(strings.TrimSpace(p.CountryCode))
		if cc == "" || seen[cc] {
			continue
		}
		seen[cc] = true
		codes = append(codes, cc)
	}
	return codes
}

// Timezones returns the distinct raw zone identifiers in first-seen order.
func (r *Registry) Timezones() []string {
	var zones []string
	seen := make(map[string]bool)
	for _, p := range r.items {
		tz := p.Zone()
		if seen[tz] {
			continue
		}
		seen[tz] = true
		zones = append(zones, tz)
	}
	return zones
}
