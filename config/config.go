package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/postinsights/cache"
	"github.com/jonwraymond/postinsights/gemini"
	"github.com/jonwraymond/postinsights/insight"
	"github.com/jonwraymond/postinsights/observe"
	"github.com/jonwraymond/postinsights/secret"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the fully resolved service configuration.
type Config struct {
	HTTPAddr string

	Cache cache.BackendConfig

	Model           string
	Temperature     *float32
	GenerateTimeout time.Duration
	Concurrency     int
	TopN            int

	CredentialRef       string
	CredentialProviders []string
	DotEnv              []string

	Observe observe.Config
}

type configFile struct {
	Service struct {
		Name     string `yaml:"name"`
		HTTPAddr string `yaml:"http_addr"`
	} `yaml:"service"`
	Cache struct {
		Backend string `yaml:"backend"`
		Dir     string `yaml:"dir"`
		GCS     struct {
			Bucket   string `yaml:"bucket"`
			Prefix   string `yaml:"prefix"`
			Attempts uint   `yaml:"attempts"`
		} `yaml:"gcs"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Generation struct {
		Model       string   `yaml:"model"`
		Temperature *float32 `yaml:"temperature"`
		Timeout     string   `yaml:"timeout"`
		Concurrency int      `yaml:"concurrency"`
		TopPosts    int      `yaml:"top_posts"`
	} `yaml:"generation"`
	Credentials struct {
		Ref       string   `yaml:"ref"`
		Providers []string `yaml:"providers"`
		DotEnv    []string `yaml:"dotenv"`
	} `yaml:"credentials"`
	Observability struct {
		LogLevel        string  `yaml:"log_level"`
		TracingExporter string  `yaml:"tracing_exporter"`
		SamplePct       float64 `yaml:"sample_pct"`
		MetricsExporter string  `yaml:"metrics_exporter"`
	} `yaml:"observability"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Cache: cache.BackendConfig{
			Kind: cache.KindDir,
			Dir:  cache.DefaultDir,
		},
		Model:               gemini.DefaultModel,
		GenerateTimeout:     insight.DefaultTimeout,
		Concurrency:         4,
		TopN:                insight.DefaultTopN,
		CredentialRef:       secret.DefaultRef,
		CredentialProviders: []string{"session", "env"},
		DotEnv:              []string{".env"},
		Observe: observe.Config{
			ServiceName: "postinsights",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.applyFile(raw); err != nil {
			return Config{}, err
		}
	}

	cfg.DotEnv = envCSV("POSTINSIGHTS_DOTENV", cfg.DotEnv)
	if err := secret.LoadDotEnv(cfg.DotEnv...); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	expanded, err := secret.ExpandEnvStrict(string(raw))
	if err != nil {
		return fmt.Errorf("expand config file: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Service.Name != "" {
		c.Observe.ServiceName = f.Service.Name
	}
	if f.Service.HTTPAddr != "" {
		c.HTTPAddr = f.Service.HTTPAddr
	}

	if f.Cache.Backend != "" {
		c.Cache.Kind = f.Cache.Backend
	}
	if f.Cache.Dir != "" {
		c.Cache.Dir = f.Cache.Dir
	}
	c.Cache.GCS = cache.GCSConfig{
		Bucket:   f.Cache.GCS.Bucket,
		Prefix:   f.Cache.GCS.Prefix,
		Attempts: f.Cache.GCS.Attempts,
	}
	c.Cache.Redis = cache.RedisConfig{
		Addr:     f.Cache.Redis.Addr,
		Password: f.Cache.Redis.Password,
		DB:       f.Cache.Redis.DB,
		Prefix:   f.Cache.Redis.Prefix,
	}

	if f.Generation.Model != "" {
		c.Model = f.Generation.Model
	}
	if f.Generation.Temperature != nil {
		c.Temperature = f.Generation.Temperature
	}
	if f.Generation.Timeout != "" {
		d, err := time.ParseDuration(f.Generation.Timeout)
		if err != nil {
			return fmt.Errorf("parse config file: generation.timeout: %w", err)
		}
		c.GenerateTimeout = d
	}
	if f.Generation.Concurrency > 0 {
		c.Concurrency = f.Generation.Concurrency
	}
	if f.Generation.TopPosts > 0 {
		c.TopN = f.Generation.TopPosts
	}

	if f.Credentials.Ref != "" {
		c.CredentialRef = f.Credentials.Ref
	}
	if len(f.Credentials.Providers) > 0 {
		c.CredentialProviders = trimNonEmpty(f.Credentials.Providers)
	}
	if len(f.Credentials.DotEnv) > 0 {
		c.DotEnv = trimNonEmpty(f.Credentials.DotEnv)
	}

	if f.Observability.LogLevel != "" {
		c.Observe.Logging.Level = f.Observability.LogLevel
	}
	if f.Observability.TracingExporter != "" {
		c.Observe.Tracing.Exporter = f.Observability.TracingExporter
	}
	if f.Observability.SamplePct > 0 {
		c.Observe.Tracing.SamplePct = f.Observability.SamplePct
	}
	if f.Observability.MetricsExporter != "" {
		c.Observe.Metrics.Exporter = f.Observability.MetricsExporter
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = envOrDefault("POSTINSIGHTS_HTTP_ADDR", c.HTTPAddr)

	c.Cache.Kind = envOrDefault("POSTINSIGHTS_CACHE_BACKEND", c.Cache.Kind)
	c.Cache.Dir = envOrDefault("POSTINSIGHTS_CACHE_DIR", c.Cache.Dir)
	c.Cache.GCS.Bucket = envOrDefault("POSTINSIGHTS_GCS_BUCKET", c.Cache.GCS.Bucket)
	c.Cache.GCS.Prefix = envOrDefault("POSTINSIGHTS_GCS_PREFIX", c.Cache.GCS.Prefix)
	c.Cache.Redis.Addr = envOrDefault("POSTINSIGHTS_REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.Password = envOrDefault("POSTINSIGHTS_REDIS_PASSWORD", c.Cache.Redis.Password)
	c.Cache.Redis.DB = envInt("POSTINSIGHTS_REDIS_DB", c.Cache.Redis.DB)
	c.Cache.Redis.Prefix = envOrDefault("POSTINSIGHTS_REDIS_PREFIX", c.Cache.Redis.Prefix)

	c.Model = envOrDefault("POSTINSIGHTS_MODEL", c.Model)
	c.GenerateTimeout = envDuration("POSTINSIGHTS_GENERATE_TIMEOUT", c.GenerateTimeout)
	c.Concurrency = envInt("POSTINSIGHTS_CONCURRENCY", c.Concurrency)
	c.TopN = envInt("POSTINSIGHTS_TOP_N", c.TopN)

	c.CredentialRef = envOrDefault("POSTINSIGHTS_CREDENTIAL_REF", c.CredentialRef)
	c.CredentialProviders = envCSV("POSTINSIGHTS_CREDENTIAL_PROVIDERS", c.CredentialProviders)

	c.Observe.Logging.Level = envOrDefault("POSTINSIGHTS_LOG_LEVEL", c.Observe.Logging.Level)
	c.Observe.Tracing.Exporter = envOrDefault("POSTINSIGHTS_TRACING_EXPORTER", c.Observe.Tracing.Exporter)
	c.Observe.Metrics.Exporter = envOrDefault("POSTINSIGHTS_METRICS_EXPORTER", c.Observe.Metrics.Exporter)

	c.Observe.Tracing.Enabled = c.Observe.Tracing.Exporter != "none"
	c.Observe.Metrics.Enabled = c.Observe.Metrics.Exporter != "none"
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	kinds := []string{cache.KindDir, cache.KindMemory, cache.KindGCS, cache.KindRedis}
	if !slices.Contains(kinds, c.Cache.Kind) {
		return fmt.Errorf("%w: cache backend %q (want one of %s)", ErrInvalid, c.Cache.Kind, strings.Join(kinds, ", "))
	}
	switch c.Cache.Kind {
	case cache.KindDir:
		if c.Cache.Dir == "" {
			return fmt.Errorf("%w: cache dir is empty", ErrInvalid)
		}
	case cache.KindGCS:
		if c.Cache.GCS.Bucket == "" {
			return fmt.Errorf("%w: missing POSTINSIGHTS_GCS_BUCKET", ErrInvalid)
		}
	case cache.KindRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("%w: missing POSTINSIGHTS_REDIS_ADDR", ErrInvalid)
		}
	}

	if c.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrInvalid)
	}
	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("%w: generate timeout must be positive, got %s", ErrInvalid, c.GenerateTimeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalid, c.Concurrency)
	}
	if c.TopN < 1 {
		return fmt.Errorf("%w: top posts must be at least 1, got %d", ErrInvalid, c.TopN)
	}
	if len(c.CredentialProviders) == 0 {
		return fmt.Errorf("%w: no credential providers", ErrInvalid)
	}

	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func envOrDefault(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
