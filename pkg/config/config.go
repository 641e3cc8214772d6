package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults and limits.
const (
	DefaultHTTPClientTimeout   = 15
	MaxHTTPClientTimeout       = 120
	DefaultMinFetchIntervalMs  = 8000
	DefaultUnlockFee           = 10.0
	DefaultPerMinuteRate       = 2.5
	DefaultCurrency            = "SEK"
	DefaultHistoryLimit        = 20
	MaxHistoryLimit            = 100
	DefaultRealtimePingSeconds = 30
	DefaultRequestTimeout      = 20
	DefaultTrackIntervalMs     = 1000
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	API        APIConfig
	Zones      ZonesConfig
	Pricing    PricingConfig
	History    HistoryConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Realtime   RealtimeConfig
	Tracing    TracingConfig
	Resilience ResilienceConfig
}

// ServerConfig holds process-level settings and the inspection server port.
type ServerConfig struct {
	Port        string
	Environment string
	ServiceName string
	LogLevel    string
	CORSOrigins string // Comma-separated list of allowed origins
	// RequestTimeout bounds console requests, in seconds.
	RequestTimeout int
}

// APIConfig describes the rental backend.
type APIConfig struct {
	BaseURL        string
	AuthToken      string
	TimeoutSeconds int
}

// ZonesConfig tunes the zone rule tracker.
type ZonesConfig struct {
	MinFetchIntervalMs int
	City               string
	CatalogPath        string
	// TrackPath replays a recorded GPS track instead of waiting for pushed fixes.
	TrackPath       string
	TrackIntervalMs int
	TrackLoop       bool
}

// PricingConfig mirrors the tariff used for the local cost estimate.
type PricingConfig struct {
	UnlockFee     float64
	PerMinuteRate float64
	Currency      string
}

// HistoryConfig holds ride history settings
type HistoryConfig struct {
	Limit int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds event bus settings
type NATSConfig struct {
	Enabled    bool
	URL        string
	StreamName string
}

// RealtimeConfig holds the push feed settings
type RealtimeConfig struct {
	Enabled     bool
	URL         string
	PingSeconds int
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRate   float64
}

// ResilienceConfig groups runtime resilience controls
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig captures default and per-service breaker tuning
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
	ServiceOverrides map[string]CircuitBreakerSettings
}

// CircuitBreakerSettings overrides defaults for a specific upstream service
type CircuitBreakerSettings struct {
	FailureThreshold int `json:"failure_threshold"`
	SuccessThreshold int `json:"success_threshold"`
	TimeoutSeconds   int `json:"timeout_seconds"`
	IntervalSeconds  int `json:"interval_seconds"`
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8090"),
			Environment: getEnv("ENVIRONMENT", "development"),
			ServiceName: serviceName,
			LogLevel:    getEnv("LOG_LEVEL", ""),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT_SECONDS", DefaultRequestTimeout),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080/api"), "/"),
			AuthToken:      getEnv("API_AUTH_TOKEN", ""),
			TimeoutSeconds: getEnvAsInt("HTTP_CLIENT_TIMEOUT", DefaultHTTPClientTimeout),
		},
		Zones: ZonesConfig{
			MinFetchIntervalMs: getEnvAsInt("ZONE_MIN_FETCH_INTERVAL_MS", DefaultMinFetchIntervalMs),
			City:               getEnv("ZONE_CITY", ""),
			CatalogPath:        getEnv("ZONE_CATALOG_PATH", ""),
			TrackPath:          getEnv("GEO_TRACK_PATH", ""),
			TrackIntervalMs:    getEnvAsInt("GEO_TRACK_INTERVAL_MS", DefaultTrackIntervalMs),
			TrackLoop:          getEnvAsBool("GEO_TRACK_LOOP", false),
		},
		Pricing: PricingConfig{
			UnlockFee:     getEnvAsFloat("PRICING_UNLOCK_FEE", DefaultUnlockFee),
			PerMinuteRate: getEnvAsFloat("PRICING_PER_MINUTE", DefaultPerMinuteRate),
			Currency:      getEnv("PRICING_CURRENCY", DefaultCurrency),
		},
		History: HistoryConfig{
			Limit: getEnvAsInt("HISTORY_LIMIT", DefaultHistoryLimit),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			Enabled:    getEnvAsBool("NATS_ENABLED", false),
			URL:        getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			StreamName: getEnv("NATS_STREAM", "SCOOTER"),
		},
		Realtime: RealtimeConfig{
			Enabled:     getEnvAsBool("REALTIME_ENABLED", false),
			URL:         getEnv("REALTIME_URL", "ws://localhost:8080/ws"),
			PingSeconds: getEnvAsInt("REALTIME_PING_SECONDS", DefaultRealtimePingSeconds),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvAsFloat("OTEL_SAMPLE_RATE", 1.0),
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          getEnvAsBool("CB_ENABLED", true),
				FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("CB_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("CB_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("CB_INTERVAL_SECONDS", 60),
			},
		},
	}

	if breakerOverrides := getEnv("CB_SERVICE_OVERRIDES", ""); breakerOverrides != "" {
		var serviceConfig map[string]CircuitBreakerSettings
		if err := json.Unmarshal([]byte(breakerOverrides), &serviceConfig); err != nil {
			return nil, fmt.Errorf("invalid CB_SERVICE_OVERRIDES value: %w", err)
		}
		cfg.Resilience.CircuitBreaker.ServiceOverrides = serviceConfig
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT must be positive, got %d", c.API.TimeoutSeconds)
	}
	if c.API.TimeoutSeconds > MaxHTTPClientTimeout {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT %d exceeds maximum %d", c.API.TimeoutSeconds, MaxHTTPClientTimeout)
	}
	if c.Zones.MinFetchIntervalMs < 0 {
		return fmt.Errorf("ZONE_MIN_FETCH_INTERVAL_MS must be positive, got %d", c.Zones.MinFetchIntervalMs)
	}
	if c.Pricing.UnlockFee < 0 {
		return fmt.Errorf("PRICING_UNLOCK_FEE must be positive, got %v", c.Pricing.UnlockFee)
	}
	if c.Pricing.PerMinuteRate < 0 {
		return fmt.Errorf("PRICING_PER_MINUTE must be positive, got %v", c.Pricing.PerMinuteRate)
	}
	if c.History.Limit <= 0 {
		c.History.Limit = DefaultHistoryLimit
	}
	if c.History.Limit > MaxHistoryLimit {
		return fmt.Errorf("HISTORY_LIMIT %d exceeds maximum %d", c.History.Limit, MaxHistoryLimit)
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = DefaultRequestTimeout
	}
	if c.Zones.TrackIntervalMs <= 0 {
		c.Zones.TrackIntervalMs = DefaultTrackIntervalMs
	}
	if c.Realtime.PingSeconds <= 0 {
		c.Realtime.PingSeconds = DefaultRealtimePingSeconds
	}

	cb := &c.Resilience.CircuitBreaker
	if cb.TimeoutSeconds <= 0 {
		cb.TimeoutSeconds = 30
	}
	if cb.IntervalSeconds <= 0 {
		cb.IntervalSeconds = 60
	}
	if cb.FailureThreshold <= 0 {
		cb.FailureThreshold = 5
	}
	if cb.SuccessThreshold <= 0 {
		cb.SuccessThreshold = 1
	}
	return nil
}

// HTTPTimeout returns the transport timeout for backend calls.
func (c APIConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MinFetchInterval returns the zone check throttle window.
func (c ZonesConfig) MinFetchInterval() time.Duration {
	return time.Duration(c.MinFetchIntervalMs) * time.Millisecond
}

// TrackInterval returns the pacing of replayed GPS fixes.
func (c ZonesConfig) TrackInterval() time.Duration {
	return time.Duration(c.TrackIntervalMs) * time.Millisecond
}

// RequestTimeoutDuration returns the console request deadline.
func (c ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// SettingsFor returns effective breaker settings for a specific upstream service name
func (c CircuitBreakerConfig) SettingsFor(service string) CircuitBreakerSettings {
	settings := CircuitBreakerSettings{
		FailureThreshold: c.FailureThreshold,
		SuccessThreshold: c.SuccessThreshold,
		TimeoutSeconds:   c.TimeoutSeconds,
		IntervalSeconds:  c.IntervalSeconds,
	}

	if override, ok := c.ServiceOverrides[service]; ok {
		if override.FailureThreshold > 0 {
			settings.FailureThreshold = override.FailureThreshold
		}
		if override.SuccessThreshold > 0 {
			settings.SuccessThreshold = override.SuccessThreshold
		}
		if override.TimeoutSeconds > 0 {
			settings.TimeoutSeconds = override.TimeoutSeconds
		}
		if override.IntervalSeconds > 0 {
			settings.IntervalSeconds = override.IntervalSeconds
		}
	}

	return settings
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
