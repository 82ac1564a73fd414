// Package metrics resolves a caller's location and collects current weather
// and air quality for it.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/envmonitor/envmonitor/internal/airquality"
	"github.com/envmonitor/envmonitor/internal/geolocation"
	"github.com/envmonitor/envmonitor/internal/weather"
)

// ErrInvalidInput is returned when no usable location could be resolved.
var ErrInvalidInput = errors.New("Provide either (lat, lon) or (city, state, country)") //nolint:staticcheck // returned verbatim to API clients

// Mode is how the upstream providers were queried.
type Mode string

const (
	// ModeCoordinates queries both providers by latitude and longitude.
	ModeCoordinates Mode = "coordinates"

	// ModeName queries both providers by city, state and country.
	ModeName Mode = "name"
)

// Request is the caller-supplied location. Empty strings and nil pointers
// mean the value was not supplied.
type Request struct {
	City    string
	State   string
	Country string
	Lat     *float64
	Lon     *float64

	// ClientIP is used for geolocation when no location is supplied.
	ClientIP string
}

// Result is the combined outcome of a collection.
type Result struct {
	City       *string
	Country    *string
	Mode       Mode
	Weather    *weather.Report
	AirQuality *airquality.Report
}

// ServiceConfig holds the dependencies of the metrics service.
type ServiceConfig struct {
	Weather    weather.Provider
	AirQuality airquality.Provider
	Locator    geolocation.Locator
	Logger     zerolog.Logger
}

// Service orchestrates location resolution and provider calls.
type Service struct {
	weather    weather.Provider
	airQuality airquality.Provider
	locator    geolocation.Locator
	logger     zerolog.Logger
}

// NewService creates a new metrics service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		weather:    cfg.Weather,
		airQuality: cfg.AirQuality,
		locator:    cfg.Locator,
		logger:     cfg.Logger,
	}
}

// location is the working state of a request while it is being resolved.
type location struct {
	city, state, country string
	lat, lon             *float64
}

func (l *location) hasCoordinates() bool {
	return l.lat != nil && l.lon != nil
}

func (l *location) hasName() bool {
	return l.city != "" && l.state != "" && l.country != ""
}

// Collect resolves the location described by req and fetches weather, then
// air quality, for it.
//
// Resolution runs in order:
//  1. With no lat, lon or city, the client IP is geolocated.
//  2. With a city but incomplete coordinates, the weather provider is asked
//     for the city's coordinates and country; the state becomes the city.
//  3. Coordinates win over names. If neither a full coordinate pair nor
//     city, state and country are known, ErrInvalidInput is returned.
func (s *Service) Collect(ctx context.Context, req Request) (*Result, error) {
	loc := location{
		city:    req.City,
		state:   req.State,
		country: req.Country,
		lat:     req.Lat,
		lon:     req.Lon,
	}

	if loc.lat == nil && loc.lon == nil && loc.city == "" {
		s.locate(ctx, req.ClientIP, &loc)
	}

	if loc.city != "" && !loc.hasCoordinates() {
		s.discover(ctx, &loc)
	}

	result := &Result{}
	var (
		wq weather.Query
		aq airquality.Query
	)
	switch {
	case loc.hasCoordinates():
		result.Mode = ModeCoordinates
		wq = weather.ByCoordinates(*loc.lat, *loc.lon)
		aq = airquality.ByCoordinates(*loc.lat, *loc.lon)
	case loc.hasName():
		result.Mode = ModeName
		wq = weather.ByCity(loc.city)
		aq = airquality.ByName(loc.city, loc.state, loc.country)
	default:
		return nil, ErrInvalidInput
	}

	w, err := s.weather.GetCurrentWeather(ctx, wq)
	if err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}

	a, err := s.airQuality.GetAirQuality(ctx, aq)
	if err != nil {
		return nil, fmt.Errorf("fetching air quality: %w", err)
	}

	result.Weather = w
	result.AirQuality = a
	result.City = w.CityName()
	if loc.city != "" {
		result.City = &loc.city
	}
	if loc.country != "" {
		result.Country = &loc.country
	}

	return result, nil
}

func (s *Service) locate(ctx context.Context, ip string, loc *location) {
	if s.locator == nil {
		return
	}

	found := s.locator.Locate(ctx, ip)
	if found == nil {
		return
	}

	loc.lat = found.Lat
	loc.lon = found.Lon
	loc.city = found.City
	loc.state = found.State
	loc.country = found.Country

	s.logger.Info().
		Str("city", loc.city).
		Str("state", loc.state).
		Str("country", loc.country).
		Msg("detected location from client ip")
}

func (s *Service) discover(ctx context.Context, loc *location) {
	report, err := s.weather.GetCurrentWeather(ctx, weather.ByCity(loc.city))
	if err != nil {
		s.logger.Warn().Err(err).Str("city", loc.city).Msg("failed to discover coordinates for city")
		return
	}

	loc.lat = report.Latitude()
	loc.lon = report.Longitude()
	loc.country = ""
	if c := report.Country(); c != nil {
		loc.country = *c
	}
	// No geocoder provides the state; the city name stands in for it.
	loc.state = loc.city

	event := s.logger.Info().Str("city", loc.city).Str("country", loc.country)
	if loc.hasCoordinates() {
		event = event.Float64("lat", *loc.lat).Float64("lon", *loc.lon)
	}
	event.Msg("discovered coordinates for city")
}
