// Package geo resolves site addresses to coordinates through a
// Nominatim-compatible geocoding endpoint. The server-held API key never
// reaches clients; site creation calls this directly.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNoResults is returned when the provider cannot resolve the address.
var ErrNoResults = errors.New("geo: no results for address")

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// Client is an HTTP geocoder. Failures are expected to be non-fatal for
// callers: a site without coordinates is still a valid site.
type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(baseURL, apiKey string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("User-Agent", "obra-limpa/1.0")

	return &Client{http: httpClient, apiKey: apiKey}
}

type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *Client) Geocode(ctx context.Context, address string) (float64, float64, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", address).
		SetQueryParam("format", "json").
		SetQueryParam("limit", "1")
	if c.apiKey != "" {
		req.SetQueryParam("key", c.apiKey)
	}

	resp, err := req.Get("/search")
	if err != nil {
		return 0, 0, fmt.Errorf("geo: request failed: %w", err)
	}
	if resp.IsError() {
		return 0, 0, fmt.Errorf("geo: provider returned %s", resp.Status())
	}

	var results []geocodeResult
	if err := json.Unmarshal(resp.Body(), &results); err != nil {
		return 0, 0, fmt.Errorf("geo: decode response: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, ErrNoResults
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geo: invalid latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geo: invalid longitude %q: %w", results[0].Lon, err)
	}
	return lat, lng, nil
}
