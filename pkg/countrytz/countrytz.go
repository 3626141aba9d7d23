// Package countrytz maps ISO 3166-1 alpha-2 country codes to IANA timezones.
package countrytz

import (
	"slices"
	"sort"
	"strings"
)

// Fallback is returned for unknown country codes.
const Fallback = "UTC"

// Representative returns the single zone that stands in for a country when
// projecting all-day holidays onto a timeline. For multi-zone countries the
// first listed zone wins; this is an approximation, not a per-region answer.
func Representative(countryCode string) string {
	zones := zonesByCountry[normalize(countryCode)]
	if len(zones) == 0 {
		return Fallback
	}
	return zones[0]
}

// Zones returns every zone listed for a country, representative first.
func Zones(countryCode string) []string {
	return slices.Clone(zonesByCountry[normalize(countryCode)])
}

// Known reports whether the country code appears in the table.
func Known(countryCode string) bool {
	_, ok := zonesByCountry[normalize(countryCode)]
	return ok
}

// CountryForZone returns the country listing zone, if any.
func CountryForZone(zone string) (string, bool) {
	for cc, zones := range zonesByCountry {
		if slices.Contains(zones, zone) {
			return cc, true
		}
	}
	return "", false
}

// Countries returns all known country codes, sorted.
func Countries() []string {
	codes := make([]string, 0, len(zonesByCountry))
	for cc := range zonesByCountry {
		codes = append(codes, cc)
	}
	sort.Strings(codes)
	return codes
}

func normalize(cc string) string {
	return strings.ToUpper(strings.TrimSpace(cc))
}
