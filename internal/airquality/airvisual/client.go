// Package airvisual provides an airquality.Provider backed by the IQAir
// AirVisual API.
package airvisual

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/envmonitor/envmonitor/internal/airquality"
	"github.com/envmonitor/envmonitor/internal/provider"
	"github.com/envmonitor/envmonitor/internal/provider/resilience"
	"github.com/envmonitor/envmonitor/pkg/textnorm"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "airvisual"

	// DefaultBaseURL is the AirVisual API base URL.
	DefaultBaseURL = "https://api.airvisual.com/v2"
)

// ClientConfig holds configuration for the AirVisual client.
type ClientConfig struct {
	// APIKey is the AirVisual API key.
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient executes requests. If nil, a resilient client with
	// default settings is created.
	HTTPClient provider.HTTPDoer

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AirVisual API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient provider.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new AirVisual client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetAirQuality fetches the nearest station's reading for coordinates, or
// the reading for a named city.
func (c *Client) GetAirQuality(ctx context.Context, q airquality.Query) (*airquality.Report, error) {
	if c.apiKey == "" {
		return nil, provider.MissingAPIKey("AIRVISUAL_API_KEY")
	}

	var endpoint string
	params := url.Values{}
	switch {
	case q.HasCoordinates():
		endpoint = "/nearest_city"
		params.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	case q.HasName():
		endpoint = "/city"
		params.Set("city", textnorm.StripDiacritics(q.City))
		params.Set("state", textnorm.StripDiacritics(q.State))
		params.Set("country", countryName(q.Country))
	default:
		return nil, fmt.Errorf("%w: lat/lon or city/state/country is required", provider.ErrInvalidArgument)
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.UpstreamError{Provider: ProviderName, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("air quality request rejected")
		return nil, &provider.UpstreamError{Provider: ProviderName, StatusCode: resp.StatusCode}
	}

	var report airquality.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, &provider.UpstreamError{Provider: ProviderName, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return &report, nil
}

// countryName maps the ISO code returned by the weather provider for Brazil
// to the country name AirVisual expects. Other values pass through.
func countryName(country string) string {
	if strings.EqualFold(country, "BR") {
		return "Brazil"
	}
	return country
}
