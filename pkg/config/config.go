package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "PACKTRACK"

	EnvAppEnv        = "PACKTRACK_APP_ENV"
	EnvLogLevel      = "PACKTRACK_LOG_LEVEL"
	EnvAPIBaseURL    = "PACKTRACK_API_BASE_URL"
	EnvAPIVersion    = "PACKTRACK_API_VERSION"
	EnvAPITimeout    = "PACKTRACK_API_TIMEOUT"
	EnvAPIHeaders    = "PACKTRACK_API_HEADERS"
	EnvAPIToken      = "PACKTRACK_API_TOKEN"
	EnvCacheStale    = "PACKTRACK_CACHE_STALE_TIME"
	EnvCacheGC       = "PACKTRACK_CACHE_GC_TIME"
	EnvCacheRetries  = "PACKTRACK_CACHE_READ_RETRIES"
	EnvMetricsEnable = "PACKTRACK_METRICS_ENABLED"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultAPIVersion = "v1"
	DefaultTimeout    = 30 * time.Second
)

type Config struct {
	App     AppConfig
	API     APIConfig
	Cache   CacheConfig
	Metrics MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PACKTRACK_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"PACKTRACK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PACKTRACK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig is the backend connection surface: base URL, version segment, timeout and default headers.
type APIConfig struct {
	BaseURL string            `envconfig:"PACKTRACK_API_BASE_URL" required:"true"`
	Version string            `envconfig:"PACKTRACK_API_VERSION" default:"v1"`
	Timeout time.Duration     `envconfig:"PACKTRACK_API_TIMEOUT" default:"30s"`
	Headers Headers           `envconfig:"PACKTRACK_API_HEADERS" default:"Accept:application/json"`
	Token   string            `envconfig:"PACKTRACK_API_TOKEN"`
}

// Headers are default request headers read as "Name:value,Name:value". Only the first
// colon of a pair separates name from value, so values may hold URLs.
type Headers map[string]string

// Decode implements envconfig.Decoder.
func (h *Headers) Decode(value string) error {
	out := Headers{}
	for _, pair := range strings.Split(value, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, val, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("invalid header %q, expected Name:value", pair)
		}
		out[name] = strings.TrimSpace(val)
	}
	*h = out
	return nil
}

// Endpoint returns {baseUrl}/api/{version}.
func (a APIConfig) Endpoint() string {
	version := strings.Trim(strings.TrimSpace(a.Version), "/")
	if version == "" {
		version = DefaultAPIVersion
	}
	return strings.TrimRight(strings.TrimSpace(a.BaseURL), "/") + "/api/" + version
}

// RequestTimeout returns the configured timeout or the 30s default.
func (a APIConfig) RequestTimeout() time.Duration {
	if a.Timeout <= 0 {
		return DefaultTimeout
	}
	return a.Timeout
}

func (a APIConfig) validate() error {
	raw := strings.TrimSpace(a.BaseURL)
	if raw == "" {
		return fmt.Errorf("%s is required", EnvAPIBaseURL)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", EnvAPIBaseURL, raw)
	}
	if a.Timeout < 0 {
		return fmt.Errorf("%s must not be negative", EnvAPITimeout)
	}
	return nil
}

type CacheConfig struct {
	StaleTime      time.Duration `envconfig:"PACKTRACK_CACHE_STALE_TIME" default:"5m"`
	GCTime         time.Duration `envconfig:"PACKTRACK_CACHE_GC_TIME" default:"10m"`
	GCInterval     time.Duration `envconfig:"PACKTRACK_CACHE_GC_INTERVAL" default:"1m"`
	ReadRetries    int           `envconfig:"PACKTRACK_CACHE_READ_RETRIES" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"PACKTRACK_CACHE_RETRY_BASE_DELAY" default:"250ms"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"PACKTRACK_METRICS_ENABLED" default:"false"`
	Addr    string `envconfig:"PACKTRACK_METRICS_ADDR" default:":9090"`
}
