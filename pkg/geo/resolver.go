package geo

import (
	"context"
	"log/slog"

	"github.com/codeGROOVE-dev/tzmeet/pkg/countrytz"
	"github.com/codeGROOVE-dev/tzmeet/pkg/participant"
	"github.com/codeGROOVE-dev/tzmeet/pkg/tzconvert"
)

// Resolver turns a map position into a participant. It never fails: missing
// data degrades to the "Unknown" country and the UTC zone with an advisory.
type Resolver struct {
	client *Client
	logger *slog.Logger
}

// NewResolver returns a resolver over client.
func NewResolver(client *Client, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{client: client, logger: logger}
}

// Resolve builds a participant for the position. The ID is derived from the
// coordinates so the same click yields the same participant.
func (r *Resolver) Resolve(ctx context.Context, lat, lng float64) participant.Participant {
	p := participant.Participant{
		ID:        participant.CoordinateID(lat, lng),
		Name:      participant.UnknownCountry,
		Latitude:  &lat,
		Longitude: &lng,
	}

	place, err := r.client.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		r.logger.Warn("country lookup failed", "lat", lat, "lng", lng, "error", err)
	} else {
		p.CountryCode = place.CountryCode
		p.Name = place.Country
		if place.Locality != "" {
			p.Name = place.Locality + ", " + place.Country
		}
	}

	tz, err := r.client.TimezoneForCoordinates(ctx, lat, lng)
	if err == nil {
		if _, lerr := tzconvert.Load(tz); lerr != nil {
			err = lerr
		}
	}
	switch {
	case err == nil:
		p.Timezone = tz
	case p.CountryCode != "" && countrytz.Known(p.CountryCode):
		r.logger.Warn("timezone lookup failed, using country zone", "lat", lat, "lng", lng, "country", p.CountryCode, "error", err)
		p.Timezone = countrytz.Representative(p.CountryCode)
		p.Advisory = "timezone approximated from country"
	default:
		r.logger.Warn("timezone lookup failed", "lat", lat, "lng", lng, "error", err)
		p.Timezone = participant.FallbackTimezone
		p.Advisory = "timezone unknown, using " + participant.FallbackTimezone
	}
	if p.CountryCode == "" {
		if p.Advisory != "" {
			p.Advisory += "; "
		}
		p.Advisory += "country unknown"
	}
	return p
}
