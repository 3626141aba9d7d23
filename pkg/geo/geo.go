// Package geo resolves map positions to a country and an IANA timezone using
// the Google Geocoding and Time Zone APIs.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// DefaultBaseURL is the Google Maps API host.
const DefaultBaseURL = "https://maps.googleapis.com"

// ErrNoAPIKey is returned when no Google Maps API key is configured.
var ErrNoAPIKey = errors.New("google maps API key not configured")

// Location represents a geographic location with coordinates.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Place is the country a position falls in.
type Place struct {
	Country     string // English country name
	CountryCode string // ISO 3166-1 alpha-2
	Locality    string
}

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client handles Google Maps API operations.
type Client struct {
	httpClient HTTPClient
	logger     *slog.Logger
	now        func() time.Time
	apiKey     string
	baseURL    string
}

// NewClient creates a new Google Maps API client. An empty baseURL uses
// DefaultBaseURL.
func NewClient(apiKey, baseURL string, httpClient HTTPClient, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	params.Set("key", c.apiKey)
	apiURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}

	previewLen := min(len(body), 200)
	c.logger.Debug("maps API raw response", "path", path, "status", resp.StatusCode, "body_preview", string(body[:previewLen]))

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

// GeocodeLocation converts a location string to coordinates using Google Geocoding API.
func (c *Client) GeocodeLocation(ctx context.Context, location string) (*Location, error) {
	var result struct {
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/maps/api/geocode/json", url.Values{"address": {location}}, &result); err != nil {
		return nil, fmt.Errorf("geocoding %q: %w", location, err)
	}
	if result.Status != "OK" || len(result.Results) == 0 {
		return nil, fmt.Errorf("geocoding failed for %s: %s", location, result.Status)
	}
	first := result.Results[0].Geometry.Location
	return &Location{Latitude: first.Lat, Longitude: first.Lng}, nil
}

// ReverseGeocode returns the country containing the coordinates.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*Place, error) {
	var result struct {
		Results []struct {
			AddressComponents []struct {
				LongName  string   `json:"long_name"`
				ShortName string   `json:"short_name"`
				Types     []string `json:"types"`
			} `json:"address_components"`
		} `json:"results"`
		Status string `json:"status"`
	}
	params := url.Values{"latlng": {fmt.Sprintf("%f,%f", lat, lng)}}
	if err := c.get(ctx, "/maps/api/geocode/json", params, &result); err != nil {
		return nil, fmt.Errorf("reverse geocoding %f,%f: %w", lat, lng, err)
	}
	if result.Status != "OK" || len(result.Results) == 0 {
		return nil, fmt.Errorf("reverse geocoding failed for %f,%f: %s", lat, lng, result.Status)
	}

	place := &Place{}
	for _, r := range result.Results {
		for _, comp := range r.AddressComponents {
			switch {
			case place.CountryCode == "" && slices.Contains(comp.Types, "country"):
				place.Country = comp.LongName
				place.CountryCode = strings.ToUpper(comp.ShortName)
			case place.Locality == "" && slices.Contains(comp.Types, "locality"):
				place.Locality = comp.LongName
			}
		}
	}
	if place.CountryCode == "" {
		return nil, fmt.Errorf("no country at %f,%f", lat, lng)
	}
	return place, nil
}

// TimezoneForCoordinates gets the timezone for given coordinates using Google Timezone API.
func (c *Client) TimezoneForCoordinates(ctx context.Context, lat, lng float64) (string, error) {
	var result struct {
		TimeZoneID   string `json:"timeZoneId"`
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	params := url.Values{
		"location":  {fmt.Sprintf("%f,%f", lat, lng)},
		"timestamp": {fmt.Sprint(c.now().Unix())},
	}
	if err := c.get(ctx, "/maps/api/timezone/json", params, &result); err != nil {
		return "", fmt.Errorf("timezone lookup %f,%f: %w", lat, lng, err)
	}
	if result.Status != "OK" {
		if result.ErrorMessage != "" {
			return "", fmt.Errorf("timezone API failed: %s", result.ErrorMessage)
		}
		return "", fmt.Errorf("timezone API failed with status: %s", result.Status)
	}
	return result.TimeZoneID, nil
}
