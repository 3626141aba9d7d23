// Package nager fetches public holidays from the Nager.Date API.
package nager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/codeGROOVE-dev/tzmeet/pkg/holiday"
)

// DefaultBaseURL is the public Nager.Date endpoint.
const DefaultBaseURL = "https://date.nager.at"

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a holiday.Source backed by Nager.Date.
type Client struct {
	httpClient HTTPClient
	logger     *slog.Logger
	baseURL    string
}

// NewClient creates a Nager.Date client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, httpClient HTTPClient, logger *slog.Logger) *Client {
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
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// apiHoliday is one element of the PublicHolidays response. Newer API
// versions report a types array, older ones a single type string.
type apiHoliday struct {
	Date        string   `json:"date"`
	LocalName   string   `json:"localName"`
	Name        string   `json:"name"`
	CountryCode string   `json:"countryCode"`
	Type        string   `json:"type"`
	Types       []string `json:"types"`
}

func (h apiHoliday) holidayType() holiday.Type {
	for _, t := range h.Types {
		if holiday.ParseType(t) == holiday.TypePublic {
			return holiday.TypePublic
		}
	}
	if len(h.Types) > 0 {
		return holiday.ParseType(h.Types[0])
	}
	return holiday.ParseType(h.Type)
}

// Fetch returns the holidays of countryCode for year.
func (c *Client) Fetch(ctx context.Context, countryCode string, year int) ([]holiday.Record, error) {
	cc := strings.ToUpper(strings.TrimSpace(countryCode))
	if cc == "" {
		return nil, errors.New("fetching holidays: empty country code")
	}
	apiURL := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.baseURL, year, cc)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s holidays for %d: %w", cc, year, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best effort for the error message
		return nil, fmt.Errorf("fetching %s holidays for %d: status %d: %s",
			cc, year, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result []apiHoliday
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding %s holidays for %d: %w", cc, year, err)
	}

	recs := make([]holiday.Record, 0, len(result))
	for _, h := range result {
		code := h.CountryCode
		if code == "" {
			code = cc
		}
		recs = append(recs, holiday.Record{
			Date:        h.Date,
			LocalName:   h.LocalName,
			Name:        h.Name,
			CountryCode: strings.ToUpper(code),
			Type:        h.holidayType(),
		})
	}
	c.logger.Debug("nager holidays decoded", "country", cc, "year", year, "count", len(recs))
	return recs, nil
}
