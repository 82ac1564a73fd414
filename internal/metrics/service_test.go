package metrics_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envmonitor/envmonitor/internal/airquality"
	"github.com/envmonitor/envmonitor/internal/geolocation"
	"github.com/envmonitor/envmonitor/internal/metrics"
	"github.com/envmonitor/envmonitor/internal/provider"
	"github.com/envmonitor/envmonitor/internal/weather"
)

func ptr[T any](v T) *T {
	return &v
}

// mockWeather records every query and answers with respond.
type mockWeather struct {
	mu      sync.Mutex
	queries []weather.Query
	respond func(call int, q weather.Query) (*weather.Report, error)
}

func (m *mockWeather) Name() string {
	return "mock-weather"
}

func (m *mockWeather) GetCurrentWeather(_ context.Context, q weather.Query) (*weather.Report, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	call := len(m.queries)
	m.mu.Unlock()

	if m.respond == nil {
		return &weather.Report{}, nil
	}
	return m.respond(call, q)
}

func (m *mockWeather) calls() []weather.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]weather.Query(nil), m.queries...)
}

type mockAirQuality struct {
	mu      sync.Mutex
	queries []airquality.Query
	err     error
}

func (m *mockAirQuality) Name() string {
	return "mock-airquality"
}

func (m *mockAirQuality) GetAirQuality(_ context.Context, q airquality.Query) (*airquality.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.err != nil {
		return nil, m.err
	}
	return &airquality.Report{Status: "success"}, nil
}

func (m *mockAirQuality) calls() []airquality.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]airquality.Query(nil), m.queries...)
}

type mockLocator struct {
	mu    sync.Mutex
	ips   []string
	found *geolocation.Location
}

func (m *mockLocator) Locate(_ context.Context, ip string) *geolocation.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ips = append(m.ips, ip)
	return m.found
}

func (m *mockLocator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ips)
}

type fixture struct {
	weather    *mockWeather
	airQuality *mockAirQuality
	locator    *mockLocator
	logs       *bytes.Buffer
	service    *metrics.Service
}

func newFixture() *fixture {
	f := &fixture{
		weather:    &mockWeather{},
		airQuality: &mockAirQuality{},
		locator:    &mockLocator{},
		logs:       &bytes.Buffer{},
	}
	f.service = metrics.NewService(metrics.ServiceConfig{
		Weather:    f.weather,
		AirQuality: f.airQuality,
		Locator:    f.locator,
		Logger:     zerolog.New(f.logs),
	})
	return f
}

func reportFor(name string, lat, lon float64, country string) *weather.Report {
	return &weather.Report{
		Name:  ptr(name),
		Coord: &weather.Coord{Lat: ptr(lat), Lon: ptr(lon)},
		Sys:   &weather.System{Country: ptr(country)},
	}
}

func TestCollect_Coordinates(t *testing.T) {
	f := newFixture()
	f.weather.respond = func(int, weather.Query) (*weather.Report, error) {
		return reportFor("São Paulo", -23.55, -46.63, "BR"), nil
	}

	result, err := f.service.Collect(context.Background(), metrics.Request{
		Lat: ptr(-23.55),
		Lon: ptr(-46.63),
	})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeCoordinates, result.Mode)
	require.NotNil(t, result.City)
	assert.Equal(t, "São Paulo", *result.City, "city falls back to the weather report name")
	assert.Nil(t, result.Country)

	weatherCalls := f.weather.calls()
	require.Len(t, weatherCalls, 1)
	assert.Empty(t, weatherCalls[0].City)
	assert.Equal(t, -23.55, *weatherCalls[0].Lat)
	assert.Equal(t, -46.63, *weatherCalls[0].Lon)

	aqCalls := f.airQuality.calls()
	require.Len(t, aqCalls, 1)
	assert.True(t, aqCalls[0].HasCoordinates())
	assert.False(t, aqCalls[0].HasName())

	assert.Equal(t, 0, f.locator.callCount())
}

func TestCollect_CoordinatesWinOverNames(t *testing.T) {
	f := newFixture()

	result, err := f.service.Collect(context.Background(), metrics.Request{
		City:    "Paris",
		State:   "Ile-de-France",
		Country: "FR",
		Lat:     ptr(48.85),
		Lon:     ptr(2.35),
	})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeCoordinates, result.Mode)
	assert.Len(t, f.weather.calls(), 1, "no discovery when coordinates are complete")
	assert.True(t, f.airQuality.calls()[0].HasCoordinates())
	assert.Equal(t, "Paris", *result.City)
	assert.Equal(t, "FR", *result.Country)
}

func TestCollect_ZeroCoordinatesArePresent(t *testing.T) {
	f := newFixture()

	result, err := f.service.Collect(context.Background(), metrics.Request{
		Lat: ptr(0.0),
		Lon: ptr(0.0),
	})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeCoordinates, result.Mode)
	assert.Equal(t, 0, f.locator.callCount())
}

func TestCollect_CityOnlyDiscoversCoordinates(t *testing.T) {
	f := newFixture()
	f.weather.respond = func(int, weather.Query) (*weather.Report, error) {
		return reportFor("São Paulo", -23.55, -46.63, "BR"), nil
	}

	result, err := f.service.Collect(context.Background(), metrics.Request{City: "São Paulo"})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeCoordinates, result.Mode)

	weatherCalls := f.weather.calls()
	require.Len(t, weatherCalls, 2, "one discovery call and one final call")
	assert.Equal(t, "São Paulo", weatherCalls[0].City)
	assert.False(t, weatherCalls[0].HasCoordinates())
	assert.Empty(t, weatherCalls[1].City)
	assert.Equal(t, -23.55, *weatherCalls[1].Lat)

	aqCalls := f.airQuality.calls()
	require.Len(t, aqCalls, 1)
	assert.Equal(t, -46.63, *aqCalls[0].Lon)

	assert.Equal(t, "São Paulo", *result.City)
	assert.Equal(t, "BR", *result.Country)
	assert.Equal(t, 0, f.locator.callCount())
	assert.Contains(t, f.logs.String(), "discovered coordinates for city")
}

func TestCollect_DiscoveryFailureFallsBackToName(t *testing.T) {
	f := newFixture()
	f.weather.respond = func(call int, q weather.Query) (*weather.Report, error) {
		if call == 1 {
			return nil, &provider.UpstreamError{Provider: "openweathermap", StatusCode: http.StatusNotFound}
		}
		return &weather.Report{Name: ptr("Paris")}, nil
	}

	result, err := f.service.Collect(context.Background(), metrics.Request{
		City:    "Paris",
		State:   "Ile-de-France",
		Country: "FR",
	})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeName, result.Mode)

	weatherCalls := f.weather.calls()
	require.Len(t, weatherCalls, 2)
	assert.Equal(t, "Paris", weatherCalls[1].City)

	aqCalls := f.airQuality.calls()
	require.Len(t, aqCalls, 1)
	assert.Equal(t, airquality.ByName("Paris", "Ile-de-France", "FR"), aqCalls[0])

	assert.Equal(t, "Paris", *result.City)
	assert.Equal(t, "FR", *result.Country)
	assert.Contains(t, f.logs.String(), `"level":"warn"`)
	assert.Contains(t, f.logs.String(), "failed to discover coordinates for city")
}

func TestCollect_DiscoveryFailureWithoutStateIsInvalid(t *testing.T) {
	f := newFixture()
	f.weather.respond = func(int, weather.Query) (*weather.Report, error) {
		return nil, errors.New("boom")
	}

	_, err := f.service.Collect(context.Background(), metrics.Request{City: "Atlantis"})

	assert.ErrorIs(t, err, metrics.ErrInvalidInput)
	assert.Len(t, f.weather.calls(), 1)
	assert.Empty(t, f.airQuality.calls())
}

func TestCollect_DiscoveryOverwritesStateAndCountry(t *testing.T) {
	f := newFixture()
	f.weather.respond = func(call int, q weather.Query) (*weather.Report, error) {
		if call == 1 {
			// A report without coordinates still overwrites them.
			return &weather.Report{Sys: &weather.System{Country: ptr("BR")}}, nil
		}
		return &weather.Report{}, nil
	}

	result, err := f.service.Collect(context.Background(), metrics.Request{
		City:    "Recife",
		State:   "Pernambuco",
		Country: "Brazil",
		Lat:     ptr(-8.05),
	})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeName, result.Mode)
	aqCalls := f.airQuality.calls()
	require.Len(t, aqCalls, 1)
	assert.Equal(t, airquality.ByName("Recife", "Recife", "BR"), aqCalls[0])
	assert.Equal(t, "BR", *result.Country)
}

func TestCollect_DiscoveryWithoutCountryClearsIt(t *testing.T) {
	f := newFixture()
	f.weather.respond = func(call int, q weather.Query) (*weather.Report, error) {
		if call == 1 {
			return &weather.Report{Coord: &weather.Coord{Lat: ptr(1.0), Lon: ptr(2.0)}}, nil
		}
		return &weather.Report{}, nil
	}

	result, err := f.service.Collect(context.Background(), metrics.Request{City: "Somewhere", Country: "Nowhere"})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeCoordinates, result.Mode)
	assert.Nil(t, result.Country)
}

func TestCollect_IPGeolocation(t *testing.T) {
	f := newFixture()
	f.locator.found = &geolocation.Location{
		Lat:     ptr(38.72),
		Lon:     ptr(-9.14),
		City:    "Lisbon",
		State:   "Lisbon",
		Country: "Portugal",
	}

	result, err := f.service.Collect(context.Background(), metrics.Request{ClientIP: "85.240.1.1"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.locator.callCount())
	assert.Equal(t, []string{"85.240.1.1"}, f.locator.ips)
	assert.Equal(t, metrics.ModeCoordinates, result.Mode)
	assert.Len(t, f.weather.calls(), 1, "coordinates from geolocation skip discovery")
	assert.Equal(t, "Lisbon", *result.City)
	assert.Equal(t, "Portugal", *result.Country)
	assert.Contains(t, f.logs.String(), "detected location from client ip")
}

func TestCollect_IPGeolocationCityOnly(t *testing.T) {
	f := newFixture()
	f.locator.found = &geolocation.Location{City: "Porto", State: "Porto", Country: "Portugal"}
	f.weather.respond = func(int, weather.Query) (*weather.Report, error) {
		return reportFor("Porto", 41.15, -8.61, "PT"), nil
	}

	result, err := f.service.Collect(context.Background(), metrics.Request{ClientIP: "85.240.1.1"})
	require.NoError(t, err)

	assert.Equal(t, metrics.ModeCoordinates, result.Mode)
	assert.Len(t, f.weather.calls(), 2)
	assert.Equal(t, "PT", *result.Country)
}

func TestCollect_IPGeolocationFailure(t *testing.T) {
	f := newFixture()

	_, err := f.service.Collect(context.Background(), metrics.Request{ClientIP: "127.0.0.1"})

	require.ErrorIs(t, err, metrics.ErrInvalidInput)
	assert.Equal(t, "Provide either (lat, lon) or (city, state, country)", err.Error())
	assert.Equal(t, 1, f.locator.callCount())
	assert.Empty(t, f.weather.calls())
	assert.Empty(t, f.airQuality.calls())
}

func TestCollect_PartialCoordinatesSkipGeolocation(t *testing.T) {
	f := newFixture()

	_, err := f.service.Collect(context.Background(), metrics.Request{Lon: ptr(10.0)})

	assert.ErrorIs(t, err, metrics.ErrInvalidInput)
	assert.Equal(t, 0, f.locator.callCount())
	assert.Empty(t, f.weather.calls())
}

func TestCollect_WeatherError(t *testing.T) {
	f := newFixture()
	f.weather.respond = func(int, weather.Query) (*weather.Report, error) {
		return nil, &provider.UpstreamError{Provider: "openweathermap", StatusCode: http.StatusUnauthorized}
	}

	_, err := f.service.Collect(context.Background(), metrics.Request{Lat: ptr(1.0), Lon: ptr(2.0)})
	require.Error(t, err)

	assert.True(t, provider.IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "fetching weather: openweathermap: unexpected status 401 Unauthorized", err.Error())
	assert.Empty(t, f.airQuality.calls(), "air quality is not fetched after a weather failure")
}

func TestCollect_AirQualityError(t *testing.T) {
	f := newFixture()
	f.airQuality.err = &provider.UpstreamError{Provider: "airvisual", StatusCode: http.StatusTooManyRequests}

	_, err := f.service.Collect(context.Background(), metrics.Request{Lat: ptr(1.0), Lon: ptr(2.0)})
	require.Error(t, err)

	var upstreamErr *provider.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, "airvisual", upstreamErr.Provider)
	assert.Contains(t, err.Error(), "fetching air quality")
}

func TestCollect_NilLocator(t *testing.T) {
	service := metrics.NewService(metrics.ServiceConfig{
		Weather:    &mockWeather{},
		AirQuality: &mockAirQuality{},
		Logger:     zerolog.Nop(),
	})

	_, err := service.Collect(context.Background(), metrics.Request{})

	assert.ErrorIs(t, err, metrics.ErrInvalidInput)
}
