package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/hamed0406/readycheck/internal/probe"
)

// EnvPrefix is prepended to every environment override, e.g. READYCHECK_LOG_DIR.
const EnvPrefix = "READYCHECK"

type Config struct {
	Addr           string        `mapstructure:"addr"`            // API bind address for `serve`
	LogDir         string        `mapstructure:"log_dir"`         // logs directory
	LogLevel       string        `mapstructure:"log_level"`       // debug, info, warn, error
	Concurrency    int           `mapstructure:"concurrency"`     // probes in flight at once
	DefaultTimeout time.Duration `mapstructure:"default_timeout"` // per probe, when a probe sets none
	Interval       time.Duration `mapstructure:"interval"`        // re-check period for `serve`; 0 disables the loop
	RetryAttempts  int           `mapstructure:"retry_attempts"`  // default extra attempts per probe
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`   // first backoff between attempts
	DatabaseURL    string        `mapstructure:"database_url"`    // report history; empty means in-memory
	History        int           `mapstructure:"history"`         // reports kept in memory
	SlackWebhook   string        `mapstructure:"slack_webhook"`
	AlertCooldown  time.Duration `mapstructure:"alert_cooldown"`
	AlertRecovery  bool          `mapstructure:"alert_on_recovery"`
	PublicAPIKeys  []string      `mapstructure:"public_api_keys"`
	AdminAPIKeys   []string      `mapstructure:"admin_api_keys"`
	RunsPerMinute  int           `mapstructure:"runs_per_minute"` // rate limit on POST /api/runs
	CORSOrigins    []string      `mapstructure:"cors_origins"`    // empty allows any origin
	// TrustProxyHeaders takes client addresses from X-Forwarded-For or
	// X-Real-IP for rate limiting. Only safe behind a proxy that sets them.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`

	Probes []ProbeSpec `mapstructure:"probes"`
}

// ProbeSpec is one probe as written in the config file.
type ProbeSpec struct {
	Name      string            `mapstructure:"name"`
	Kind      string            `mapstructure:"kind"`
	Target    string            `mapstructure:"target"` // URL, DSN, host:port or hostname
	Method    string            `mapstructure:"method"`
	Headers   map[string]string `mapstructure:"headers"`
	Body      string            `mapstructure:"body"`
	Command   string            `mapstructure:"command"`
	Container string            `mapstructure:"container"`
	Runtime   string            `mapstructure:"runtime"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Retries   *int              `mapstructure:"retries"`
	Expect    probe.Expect      `mapstructure:"expect"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("log_level", "info")
	v.SetDefault("concurrency", 4)
	v.SetDefault("default_timeout", 5*time.Second)
	v.SetDefault("interval", 30*time.Second)
	v.SetDefault("retry_attempts", 0)
	v.SetDefault("retry_backoff", 300*time.Millisecond)
	v.SetDefault("history", 50)
	v.SetDefault("alert_cooldown", 10*time.Minute)
	v.SetDefault("alert_on_recovery", true)
	v.SetDefault("runs_per_minute", 6)
	v.SetDefault("trust_proxy_headers", false)
	// keys without a useful default still need registering so that
	// AutomaticEnv picks them up during Unmarshal
	v.SetDefault("database_url", "")
	v.SetDefault("slack_webhook", "")
	v.SetDefault("public_api_keys", []string{})
	v.SetDefault("admin_api_keys", []string{})
	v.SetDefault("cors_origins", []string{})
}

// Load reads the YAML file at path (if non-empty), applies defaults and
// READYCHECK_* environment overrides, and validates the result. Probe entries
// are decoded but checked by the registry, which reports them all at once.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.PublicAPIKeys = splitKeys(cfg.PublicAPIKeys)
	cfg.AdminAPIKeys = splitKeys(cfg.AdminAPIKeys)
	cfg.CORSOrigins = splitKeys(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the process-level settings.
func (c *Config) Validate() error {
	var err error
	if c.Concurrency < 1 {
		err = multierr.Append(err, fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if c.DefaultTimeout <= 0 {
		err = multierr.Append(err, errors.New("default_timeout must be positive"))
	}
	if c.Interval < 0 {
		err = multierr.Append(err, errors.New("interval must not be negative"))
	}
	if c.RetryAttempts < 0 {
		err = multierr.Append(err, errors.New("retry_attempts must not be negative"))
	}
	if c.History < 1 {
		err = multierr.Append(err, errors.New("history must be >= 1"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// splitKeys accepts both YAML lists and a single comma-separated env value.
func splitKeys(in []string) []string {
	var out []string
	for _, s := range in {
		for _, k := range strings.Split(s, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}
