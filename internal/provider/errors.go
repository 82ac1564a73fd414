// Package provider defines the error taxonomy shared by the upstream data
// providers (weather, air quality, geolocation).
package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Provider errors.
var (
	// ErrInvalidArgument is returned when a provider is called without the
	// inputs it needs to build a request.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingAPIKey is returned when a provider has no API key configured.
	ErrMissingAPIKey = errors.New("api key is not set")
)

// UpstreamError reports a failed call to an upstream provider: either a
// non-2xx response or a transport failure (network error, timeout, open
// circuit, undecodable body).
type UpstreamError struct {
	// Provider is the name of the upstream service.
	Provider string

	// StatusCode is the upstream HTTP status, or 0 if no response was received.
	StatusCode int

	// Err is the underlying transport or decoding error, if any.
	Err error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// MissingAPIKey returns an ErrMissingAPIKey error naming the configuration key.
func MissingAPIKey(key string) error {
	return fmt.Errorf("%s %w", key, ErrMissingAPIKey)
}

// IsStatus reports whether err carries an upstream HTTP status equal to code.
func IsStatus(err error, code int) bool {
	var upstreamErr *UpstreamError
	return errors.As(err, &upstreamErr) && upstreamErr.StatusCode == code
}
