// Package airquality defines the air quality payload returned by providers
// and the Provider interface the metrics service depends on.
package airquality

import "context"

// Query selects the location for an air quality lookup. Coordinates are used
// when both are set; otherwise city, state and country are all required.
type Query struct {
	City    string
	State   string
	Country string
	Lat     *float64
	Lon     *float64
}

// ByCoordinates returns a query for a latitude/longitude pair.
func ByCoordinates(lat, lon float64) Query {
	return Query{Lat: &lat, Lon: &lon}
}

// ByName returns a query for a named city.
func ByName(city, state, country string) Query {
	return Query{City: city, State: state, Country: country}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (q Query) HasCoordinates() bool {
	return q.Lat != nil && q.Lon != nil
}

// HasName reports whether city, state and country are all set.
func (q Query) HasName() bool {
	return q.City != "" && q.State != "" && q.Country != ""
}

// Report is an air quality payload as returned by the upstream.
type Report struct {
	Status string `json:"status"`
	Data   *Data  `json:"data"`
}

// Data is the body of a successful report.
type Data struct {
	City     *string   `json:"city"`
	State    *string   `json:"state"`
	Country  *string   `json:"country"`
	Location *Location `json:"location"`
	Current  *Current  `json:"current"`
}

// Location is a GeoJSON point, ordered [longitude, latitude].
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Current holds the latest observations.
type Current struct {
	Pollution *Pollution `json:"pollution"`
}

// Pollution is the latest US AQI reading.
type Pollution struct {
	// AQIUS is the US EPA air quality index.
	AQIUS *float64 `json:"aqius"`

	// MainUS is the dominant pollutant code for the US index, e.g. "p2".
	MainUS *string `json:"mainus"`
}

// CityName returns data.city, or nil.
func (r *Report) CityName() *string {
	if r == nil || r.Data == nil {
		return nil
	}
	return r.Data.City
}

// Position returns the station latitude and longitude. ok is false when the
// location is missing or has fewer than two coordinates.
func (r *Report) Position() (lat, lon float64, ok bool) {
	if r == nil || r.Data == nil || r.Data.Location == nil {
		return 0, 0, false
	}
	c := r.Data.Location.Coordinates
	if len(c) < 2 {
		return 0, 0, false
	}
	return c[1], c[0], true
}

// Pollution returns data.current.pollution, or nil.
func (r *Report) Pollution() *Pollution {
	if r == nil || r.Data == nil || r.Data.Current == nil {
		return nil
	}
	return r.Data.Current.Pollution
}

// Provider fetches air quality from an upstream source.
type Provider interface {
	// GetAirQuality returns the latest air quality for q.
	GetAirQuality(ctx context.Context, q Query) (*Report, error)

	// Name returns the provider identifier.
	Name() string
}
