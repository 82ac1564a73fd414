// Package openweathermap provides a weather.Provider backed by the
// OpenWeatherMap current weather API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/envmonitor/envmonitor/internal/provider"
	"github.com/envmonitor/envmonitor/internal/provider/resilience"
	"github.com/envmonitor/envmonitor/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// DefaultUnits requests temperatures in Celsius.
	DefaultUnits = "metric"

	// DefaultLang is the language of condition descriptions.
	DefaultLang = "pt_br"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key.
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// Units is the unit system (defaults to DefaultUnits).
	Units string

	// Lang is the description language (defaults to DefaultLang).
	Lang string

	// HTTPClient executes requests. If nil, a resilient client with
	// default settings is created.
	HTTPClient provider.HTTPDoer

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	units      string
	lang       string
	httpClient provider.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	units := cfg.Units
	if units == "" {
		units = DefaultUnits
	}

	lang := cfg.Lang
	if lang == "" {
		lang = DefaultLang
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		units:      units,
		lang:       lang,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrentWeather fetches current conditions by city name, or by
// coordinates when no city is given.
func (c *Client) GetCurrentWeather(ctx context.Context, q weather.Query) (*weather.Report, error) {
	if c.apiKey == "" {
		return nil, provider.MissingAPIKey("OWM_API_KEY")
	}

	params := url.Values{}
	switch {
	case q.City != "":
		params.Set("q", q.City)
	case q.HasCoordinates():
		params.Set("lat", strconv.FormatFloat(*q.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(*q.Lon, 'f', -1, 64))
	default:
		return nil, fmt.Errorf("%w: city or lat/lon is required", provider.ErrInvalidArgument)
	}
	params.Set("appid", c.apiKey)
	params.Set("units", c.units)
	params.Set("lang", c.lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.UpstreamError{Provider: ProviderName, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("weather request rejected")
		return nil, &provider.UpstreamError{Provider: ProviderName, StatusCode: resp.StatusCode}
	}

	var report weather.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, &provider.UpstreamError{Provider: ProviderName, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return &report, nil
}
