// Package main provides the entrypoint for the Env Monitor API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/envmonitor/envmonitor/internal/airquality/airvisual"
	"github.com/envmonitor/envmonitor/internal/api"
	"github.com/envmonitor/envmonitor/internal/api/middleware"
	"github.com/envmonitor/envmonitor/internal/config"
	"github.com/envmonitor/envmonitor/internal/geolocation/ipapi"
	"github.com/envmonitor/envmonitor/internal/metrics"
	"github.com/envmonitor/envmonitor/internal/provider/resilience"
	"github.com/envmonitor/envmonitor/internal/telemetry"
	"github.com/envmonitor/envmonitor/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "envmonitor-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = log.Level(cfg.LogLevel())

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Server.Environment).
		Msg("starting Env Monitor API")

	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := resilience.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	registry := resilience.NewRegistry()
	newProviderClient := func(name string, timeout time.Duration) *resilience.Client {
		rc := resilience.DefaultClientConfig(name)
		rc.Timeout = timeout
		rc.Registry = registry
		rc.Metrics = providerMetrics
		rc.CircuitBreaker.OnStateChange = resilience.LogStateChange(log)
		return resilience.NewClient(rc)
	}

	weatherClient := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     cfg.OpenWeatherMap.APIKey,
		BaseURL:    cfg.OpenWeatherMap.BaseURL,
		Units:      cfg.OpenWeatherMap.Units,
		Lang:       cfg.OpenWeatherMap.Lang,
		HTTPClient: newProviderClient(openweathermap.ProviderName, 20*time.Second),
		Logger:     log,
	})
	airQualityClient := airvisual.NewClient(airvisual.ClientConfig{
		APIKey:     cfg.AirVisual.APIKey,
		BaseURL:    cfg.AirVisual.BaseURL,
		HTTPClient: newProviderClient(airvisual.ProviderName, 20*time.Second),
		Logger:     log,
	})
	locator := ipapi.NewClient(ipapi.ClientConfig{
		BaseURL:    cfg.IPAPI.BaseURL,
		HTTPClient: newProviderClient(ipapi.ProviderName, ipapi.DefaultTimeout),
		Logger:     log,
	})

	service := metrics.NewService(metrics.ServiceConfig{
		Weather:    weatherClient,
		AirQuality: airQualityClient,
		Locator:    locator,
		Logger:     log,
	})
	log.Info().
		Int("providers", registry.ProviderCount()).
		Msg("metrics service initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		Collector:   service,
		Providers:   registry,
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.Server.RateLimitPerMinute,
			WindowLength: time.Minute,
		},
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.Server.CORSAllowedOrigins,
			MaxAge:         middleware.DefaultCORS.MaxAge,
		},
		RequireTLS: cfg.Server.RequireTLS,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
