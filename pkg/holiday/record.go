// Package holiday merges per-country public holiday data into a single index
// that answers "is this date a day off for everyone?".
package holiday

import (
	"strings"
	"time"

	"github.com/codeGROOVE-dev/tzmeet/pkg/calrange"
)

// Type is the kind of a holiday record.
type Type string

// Holiday kinds as reported by holiday data sources. Only TypePublic counts
// as a universal day off.
const (
	TypePublic      Type = "Public"
	TypeBank        Type = "Bank"
	TypeSchool      Type = "School"
	TypeAuthorities Type = "Authorities"
	TypeOptional    Type = "Optional"
	TypeObservance  Type = "Observance"
)

// ParseType maps a source type string to a Type. Unknown strings are
// treated as observances so they never mark a group holiday.
func ParseType(s string) Type {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return TypePublic
	case "bank":
		return TypeBank
	case "school":
		return TypeSchool
	case "authorities":
		return TypeAuthorities
	case "optional":
		return TypeOptional
	default:
		return TypeObservance
	}
}

// Record is one holiday of one country.
type Record struct {
	Date        string `json:"date"` // YYYY-MM-DD in the issuing country's calendar
	LocalName   string `json:"localName"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	Type        Type   `json:"type"`
}

// IsPublic reports whether the record is an authoritative day off.
func (r Record) IsPublic() bool {
	return r.Type == TypePublic
}

// Title returns the best label for display, preferring the English name.
func (r Record) Title() string {
	if r.Name != "" {
		return r.Name
	}
	return r.LocalName
}

// Day returns local midnight of the record's date in loc.
func (r Record) Day(loc *time.Location) (time.Time, error) {
	return calrange.ParseDate(r.Date, loc)
}
