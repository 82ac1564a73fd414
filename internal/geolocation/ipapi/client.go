// Package ipapi provides a geolocation.Locator backed by ipapi.co.
package ipapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/envmonitor/envmonitor/internal/geolocation"
	"github.com/envmonitor/envmonitor/internal/provider"
	"github.com/envmonitor/envmonitor/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "ipapi"

	// DefaultBaseURL is the ipapi.co base URL.
	DefaultBaseURL = "https://ipapi.co"

	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second
)

var (
	errEmptyIP    = errors.New("client ip is empty")
	errNoLocation = errors.New("response has neither coordinates nor city")
)

// ClientConfig holds configuration for the ipapi.co client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient executes requests. If nil, a resilient client with a
	// DefaultTimeout per request is created.
	HTTPClient provider.HTTPDoer

	// Logger receives a warning for every failed lookup.
	Logger zerolog.Logger
}

// Client is an ipapi.co client.
type Client struct {
	baseURL    string
	httpClient provider.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new ipapi.co client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = DefaultTimeout
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Locate looks up ip. It returns nil, after logging a warning, when the
// lookup fails for any reason.
func (c *Client) Locate(ctx context.Context, ip string) *geolocation.Location {
	loc, err := c.lookup(ctx, ip)
	if err != nil {
		c.logger.Warn().Err(err).Str("ip", ip).Msg("ip geolocation failed")
		return nil
	}
	return loc
}

func (c *Client) lookup(ctx context.Context, ip string) (*geolocation.Location, error) {
	if ip == "" {
		return nil, errEmptyIP
	}

	endpoint := fmt.Sprintf("%s/%s/json/", c.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.UpstreamError{Provider: ProviderName, Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.UpstreamError{Provider: ProviderName, StatusCode: resp.StatusCode}
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if body.Error {
		return nil, fmt.Errorf("lookup rejected: %s", body.Reason)
	}

	hasCoordinates := body.Latitude != nil && body.Longitude != nil
	if !hasCoordinates && body.City == "" {
		return nil, errNoLocation
	}

	return &geolocation.Location{
		Lat:     body.Latitude,
		Lon:     body.Longitude,
		City:    body.City,
		State:   body.Region,
		Country: body.CountryName,
	}, nil
}

type lookupResponse struct {
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
}
