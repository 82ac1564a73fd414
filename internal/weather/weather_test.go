package weather_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envmonitor/envmonitor/internal/weather"
)

func TestQuery(t *testing.T) {
	assert.False(t, weather.ByCity("Recife").HasCoordinates())
	assert.True(t, weather.ByCoordinates(0, 0).HasCoordinates())

	lat := 1.5
	assert.False(t, weather.Query{Lat: &lat}.HasCoordinates())
}

func TestReport_NilSafe(t *testing.T) {
	var report *weather.Report

	assert.Nil(t, report.Temperature())
	assert.Nil(t, report.Humidity())
	assert.Nil(t, report.Description())
	assert.Nil(t, report.Icon())
	assert.Nil(t, report.Latitude())
	assert.Nil(t, report.Longitude())
	assert.Nil(t, report.Country())
	assert.Nil(t, report.CityName())
}

func TestReport_EmptyConditionList(t *testing.T) {
	var report weather.Report
	require.NoError(t, json.Unmarshal([]byte(`{"weather":[],"main":{"temp":10}}`), &report))

	assert.Nil(t, report.Description())
	assert.Nil(t, report.Icon())
	require.NotNil(t, report.Temperature())
	assert.InDelta(t, 10.0, *report.Temperature(), 0.001)
	assert.Nil(t, report.Humidity())
}

func TestReport_HumidityRounded(t *testing.T) {
	var report weather.Report
	require.NoError(t, json.Unmarshal([]byte(`{"main":{"humidity":71.6}}`), &report))

	require.NotNil(t, report.Humidity())
	assert.Equal(t, 72, *report.Humidity())
}

func TestReport_ZeroCoordinatesArePresent(t *testing.T) {
	var report weather.Report
	require.NoError(t, json.Unmarshal([]byte(`{"coord":{"lat":0,"lon":0}}`), &report))

	require.NotNil(t, report.Latitude())
	require.NotNil(t, report.Longitude())
	assert.Zero(t, *report.Latitude())
}
