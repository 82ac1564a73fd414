// Package weather defines the current-conditions model returned by weather
// providers and the Provider interface the metrics service depends on.
package weather

import (
	"context"
	"math"
)

// Query selects the location for a current-weather lookup. City takes
// precedence over coordinates.
type Query struct {
	City string
	Lat  *float64
	Lon  *float64
}

// ByCity returns a query for a city name.
func ByCity(city string) Query {
	return Query{City: city}
}

// ByCoordinates returns a query for a latitude/longitude pair.
func ByCoordinates(lat, lon float64) Query {
	return Query{Lat: &lat, Lon: &lon}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (q Query) HasCoordinates() bool {
	return q.Lat != nil && q.Lon != nil
}

// Report is a current-weather payload as returned by the upstream. Every
// field is optional; absent keys stay nil.
type Report struct {
	Name       *string     `json:"name"`
	Coord      *Coord      `json:"coord"`
	Main       *Main       `json:"main"`
	Conditions []Condition `json:"weather"`
	Sys        *System     `json:"sys"`
}

// Coord is the resolved position of the report.
type Coord struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Main holds the headline measurements.
type Main struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
}

// Condition is one entry of the weather condition list.
type Condition struct {
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

// System holds upstream metadata about the location.
type System struct {
	Country *string `json:"country"`
}

// Temperature returns the current temperature, or nil.
func (r *Report) Temperature() *float64 {
	if r == nil || r.Main == nil {
		return nil
	}
	return r.Main.Temp
}

// Humidity returns the relative humidity in percent, or nil.
func (r *Report) Humidity() *int {
	if r == nil || r.Main == nil || r.Main.Humidity == nil {
		return nil
	}
	h := int(math.Round(*r.Main.Humidity))
	return &h
}

// Description returns the first condition's description, or nil.
func (r *Report) Description() *string {
	if c := r.firstCondition(); c != nil {
		return c.Description
	}
	return nil
}

// Icon returns the first condition's icon code, or nil.
func (r *Report) Icon() *string {
	if c := r.firstCondition(); c != nil {
		return c.Icon
	}
	return nil
}

// Latitude returns coord.lat, or nil.
func (r *Report) Latitude() *float64 {
	if r == nil || r.Coord == nil {
		return nil
	}
	return r.Coord.Lat
}

// Longitude returns coord.lon, or nil.
func (r *Report) Longitude() *float64 {
	if r == nil || r.Coord == nil {
		return nil
	}
	return r.Coord.Lon
}

// Country returns sys.country, or nil.
func (r *Report) Country() *string {
	if r == nil || r.Sys == nil {
		return nil
	}
	return r.Sys.Country
}

// CityName returns the resolved location name, or nil.
func (r *Report) CityName() *string {
	if r == nil {
		return nil
	}
	return r.Name
}

func (r *Report) firstCondition() *Condition {
	if r == nil || len(r.Conditions) == 0 {
		return nil
	}
	return &r.Conditions[0]
}

// Provider fetches current weather from an upstream source.
type Provider interface {
	// GetCurrentWeather returns the current conditions for q.
	GetCurrentWeather(ctx context.Context, q Query) (*Report, error)

	// Name returns the provider identifier.
	Name() string
}
