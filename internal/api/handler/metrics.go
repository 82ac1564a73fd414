package handler

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/envmonitor/envmonitor/internal/airquality"
	"github.com/envmonitor/envmonitor/internal/api/middleware"
	"github.com/envmonitor/envmonitor/internal/api/models"
	"github.com/envmonitor/envmonitor/internal/api/response"
	"github.com/envmonitor/envmonitor/internal/metrics"
	"github.com/envmonitor/envmonitor/internal/weather"
)

// MetricsCollector resolves a location and collects weather and air quality
// for it.
type MetricsCollector interface {
	Collect(ctx context.Context, req metrics.Request) (*metrics.Result, error)
}

// MetricsHandler handles the environmental metrics endpoint.
type MetricsHandler struct {
	collector MetricsCollector
	logger    zerolog.Logger
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(collector MetricsCollector, logger zerolog.Logger) *MetricsHandler {
	return &MetricsHandler{
		collector: collector,
		logger:    logger,
	}
}

// GetMetrics handles GET /api/metrics - current weather and air quality.
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	req, fieldErrors := parseMetricsQuery(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}
	req.ClientIP = clientIP(r)

	result, err := h.collector.Collect(r.Context(), req)
	if err != nil {
		if errors.Is(err, metrics.ErrInvalidInput) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}

		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("failed to collect metrics")
		response.InternalError(w, r, err.Error())
		return
	}

	response.JSON(w, r, http.StatusOK, models.MetricsResponse{
		City:       result.City,
		Country:    result.Country,
		Weather:    toWeather(result.Weather),
		AirQuality: toAirQuality(result.AirQuality),
	})
}

func parseMetricsQuery(r *http.Request) (metrics.Request, []models.FieldError) {
	q := r.URL.Query()
	req := metrics.Request{
		City:    strings.TrimSpace(q.Get("city")),
		State:   strings.TrimSpace(q.Get("state")),
		Country: strings.TrimSpace(q.Get("country")),
	}

	var fieldErrors []models.FieldError
	parseCoord := func(field string, limit float64) *float64 {
		raw := strings.TrimSpace(q.Get(field))
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   field,
				Message: "must be a number",
				Code:    "invalid_number",
			})
			return nil
		}
		if v < -limit || v > limit {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   field,
				Message: "must be between -" + strconv.Itoa(int(limit)) + " and " + strconv.Itoa(int(limit)),
				Code:    "out_of_range",
			})
			return nil
		}
		return &v
	}
	req.Lat = parseCoord("lat", 90)
	req.Lon = parseCoord("lon", 180)

	return req, fieldErrors
}

// clientIP returns the host part of RemoteAddr. RealIP may already have
// replaced it with a bare address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func toWeather(report *weather.Report) models.Weather {
	return models.Weather{
		Source:      models.WeatherSource,
		Temperature: report.Temperature(),
		Humidity:    report.Humidity(),
		Description: report.Description(),
		Icon:        report.Icon(),
	}
}

func toAirQuality(report *airquality.Report) models.AirQuality {
	aq := models.AirQuality{
		Source:     models.AirQualitySource,
		Location:   report.CityName(),
		Pollutants: []models.Pollutant{},
	}

	lat, lon, ok := report.Position()
	pollution := report.Pollution()
	if !ok || pollution == nil {
		return aq
	}

	var aqi float64
	if pollution.AQIUS != nil {
		aqi = *pollution.AQIUS
	}
	var dominant string
	if pollution.MainUS != nil {
		dominant = strings.ToUpper(*pollution.MainUS)
	}

	aq.Coordinates = &models.Coordinates{Latitude: lat, Longitude: lon}
	aq.Pollutants = []models.Pollutant{
		{Parameter: "AQI", Value: aqi, Unit: models.UnitUSAQI},
		{Parameter: dominant, Value: 0, Unit: models.UnitDominantPollutant},
	}
	return aq
}
