// Package config loads the Env Monitor API configuration from defaults, an
// optional TOML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/envmonitor/envmonitor/internal/provider"
)

// Config is the complete service configuration.
type Config struct {
	Server         ServerConfig         `toml:"server"`
	Logging        LoggingConfig        `toml:"logging"`
	OpenWeatherMap OpenWeatherMapConfig `toml:"openweathermap"`
	AirVisual      AirVisualConfig      `toml:"airvisual"`
	IPAPI          IPAPIConfig          `toml:"ipapi"`
	Telemetry      TelemetryConfig      `toml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               int      `toml:"port"`
	Environment        string   `toml:"environment"`
	RequireTLS         bool     `toml:"require_tls"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"`
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// OpenWeatherMapConfig holds weather provider settings.
type OpenWeatherMapConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Units   string `toml:"units"`
	Lang    string `toml:"lang"`
}

// AirVisualConfig holds air quality provider settings.
type AirVisualConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// IPAPIConfig holds IP geolocation settings.
type IPAPIConfig struct {
	BaseURL string `toml:"base_url"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `toml:"enabled"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

// Default returns the configuration used when nothing is overridden.
// API keys have no default.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:               8080,
			Environment:        "development",
			RateLimitPerMinute: 60,
			CORSAllowedOrigins: []string{"*"},
			ReadTimeoutSecs:    15,
			WriteTimeoutSecs:   90,
			IdleTimeoutSecs:    60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		OpenWeatherMap: OpenWeatherMapConfig{
			BaseURL: "https://api.openweathermap.org/data/2.5",
			Units:   "metric",
			Lang:    "pt_br",
		},
		AirVisual: AirVisualConfig{
			BaseURL: "https://api.airvisual.com/v2",
		},
		IPAPI: IPAPIConfig{
			BaseURL: "https://ipapi.co",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1.0,
		},
	}
}

// Load builds the configuration. path names an optional TOML file; an empty
// path skips it. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setString("APP_ENV", &c.Server.Environment)
	setString("LOG_LEVEL", &c.Logging.Level)
	setString("OWM_API_KEY", &c.OpenWeatherMap.APIKey)
	setString("OWM_BASE_URL", &c.OpenWeatherMap.BaseURL)
	setString("OWM_UNITS", &c.OpenWeatherMap.Units)
	setString("OWM_LANG", &c.OpenWeatherMap.Lang)
	setString("AIRVISUAL_API_KEY", &c.AirVisual.APIKey)
	setString("AIRVISUAL_BASE_URL", &c.AirVisual.BaseURL)
	setString("IPAPI_BASE_URL", &c.IPAPI.BaseURL)
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)

	if v, ok := lookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = splitList(v)
	}

	errs = append(errs,
		setInt("APP_PORT", &c.Server.Port),
		setInt("RATE_LIMIT_PER_MINUTE", &c.Server.RateLimitPerMinute),
		setBool("REQUIRE_TLS", &c.Server.RequireTLS),
		setBool("OTEL_ENABLED", &c.Telemetry.Enabled),
		setFloat("OTEL_SAMPLE_RATIO", &c.Telemetry.SampleRatio),
	)

	return errors.Join(errs...)
}

// Validate reports every invalid setting. Missing API keys wrap
// provider.ErrMissingAPIKey.
func (c *Config) Validate() error {
	var errs []error

	if c.OpenWeatherMap.APIKey == "" {
		errs = append(errs, provider.MissingAPIKey("OWM_API_KEY"))
	}
	if c.AirVisual.APIKey == "" {
		errs = append(errs, provider.MissingAPIKey("AIRVISUAL_API_KEY"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Server.Port))
	}
	if c.Server.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got %d", c.Server.RateLimitPerMinute))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("sample ratio must be between 0 and 1, got %g", c.Telemetry.SampleRatio))
	}

	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, or info if it is invalid.
func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

// ReadTimeout returns the server read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the server write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSecs) * time.Second
}

// IdleTimeout returns the server idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeoutSecs) * time.Second
}

func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func setString(key string, dst *string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
	}
}

func setInt(key string, dst *int) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setBool(key string, dst *bool) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

func setFloat(key string, dst *float64) error {
	v, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", key, v)
	}
	*dst = f
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
