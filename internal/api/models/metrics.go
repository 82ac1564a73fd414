package models

// Source tags reported in the metrics payload.
const (
	WeatherSource    = "OpenWeatherMap"
	AirQualitySource = "OpenAQ"
)

// Pollutant units.
const (
	UnitUSAQI             = "US AQI"
	UnitDominantPollutant = "Dominant pollutant"
)

// Weather is the current-conditions section of a metrics response.
// Unknown values are serialized as null.
type Weather struct {
	Source      string   `json:"source"`
	Temperature *float64 `json:"temperature"`
	Humidity    *int     `json:"humidity"`
	Description *string  `json:"description"`
	Icon        *string  `json:"icon"`
}

// Pollutant is one air quality reading.
type Pollutant struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
}

// Coordinates is the position of the reporting air quality station.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AirQuality is the air quality section of a metrics response. Pollutants is
// never null; it is empty when no reading is available.
type AirQuality struct {
	Source      string       `json:"source"`
	Location    *string      `json:"location"`
	Coordinates *Coordinates `json:"coordinates"`
	Pollutants  []Pollutant  `json:"pollutants"`
}

// MetricsResponse is the body of GET /api/metrics.
type MetricsResponse struct {
	City       *string    `json:"city"`
	Country    *string    `json:"country"`
	Weather    Weather    `json:"weather"`
	AirQuality AirQuality `json:"air_quality"`
}
