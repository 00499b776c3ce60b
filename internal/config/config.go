// Package config loads the gateway configuration from a YAML file and
// FEDERATION_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. FEDERATION_SOURCE_MODE.
const EnvPrefix = "FEDERATION"

// Source modes.
const (
	ModeStatic = "static"
	ModeFile   = "file"
	ModePoll   = "poll"
	ModeNATS   = "nats"
)

// Config is the root configuration of the gateway binary.
type Config struct {
	Listen      string            `mapstructure:"listen" validate:"required"`
	Log         LogConfig         `mapstructure:"log"`
	Source      SourceConfig      `mapstructure:"source"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	History     HistoryConfig     `mapstructure:"history"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// SourceConfig selects where supergraph definitions come from.
type SourceConfig struct {
	Mode string `mapstructure:"mode" validate:"required,oneof=static file poll nats"`
	// Path is the definition file for the static and file modes.
	Path string `mapstructure:"path"`
	// URL is the registry endpoint for the poll mode.
	URL      string        `mapstructure:"url" validate:"omitempty,url"`
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
	// HealthCheck makes producers probe every candidate before pushing it.
	HealthCheck bool       `mapstructure:"health_check"`
	NATS        NATSConfig `mapstructure:"nats"`
}

// NATSConfig locates the supergraph in a JetStream key-value bucket.
type NATSConfig struct {
	URL    string `mapstructure:"url"`
	Bucket string `mapstructure:"bucket"`
	Key    string `mapstructure:"key"`
}

// HealthCheckConfig bounds the pre-cutover health check.
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// MonitorConfig controls the periodic service monitor.
type MonitorConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxFailures int           `mapstructure:"max_failures" validate:"gte=1"`
}

// HistoryConfig bounds the in-memory history of committed definitions.
type HistoryConfig struct {
	Limit int `mapstructure:"limit" validate:"gte=0"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Source: SourceConfig{
			Mode:     ModeFile,
			Path:     "supergraph.graphql",
			Interval: 10 * time.Second,
			Debounce: 100 * time.Millisecond,
			NATS: NATSConfig{
				URL:    "nats://127.0.0.1:4222",
				Bucket: "supergraphs",
				Key:    "current",
			},
		},
		HealthCheck: HealthCheckConfig{
			Timeout: 10 * time.Second,
		},
		Monitor: MonitorConfig{
			Enabled:     true,
			Interval:    30 * time.Second,
			Timeout:     2 * time.Second,
			MaxFailures: 3,
		},
		History: HistoryConfig{
			Limit: 20,
		},
	}
}

// SetDefaults registers every default with v. Keys without a default are
// invisible to AutomaticEnv, so every field is listed here.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("listen", defaults.Listen)

	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	v.SetDefault("source.mode", defaults.Source.Mode)
	v.SetDefault("source.path", defaults.Source.Path)
	v.SetDefault("source.url", defaults.Source.URL)
	v.SetDefault("source.interval", defaults.Source.Interval)
	v.SetDefault("source.debounce", defaults.Source.Debounce)
	v.SetDefault("source.health_check", defaults.Source.HealthCheck)
	v.SetDefault("source.nats.url", defaults.Source.NATS.URL)
	v.SetDefault("source.nats.bucket", defaults.Source.NATS.Bucket)
	v.SetDefault("source.nats.key", defaults.Source.NATS.Key)

	v.SetDefault("health_check.timeout", defaults.HealthCheck.Timeout)

	v.SetDefault("monitor.enabled", defaults.Monitor.Enabled)
	v.SetDefault("monitor.interval", defaults.Monitor.Interval)
	v.SetDefault("monitor.timeout", defaults.Monitor.Timeout)
	v.SetDefault("monitor.max_failures", defaults.Monitor.MaxFailures)

	v.SetDefault("history.limit", defaults.History.Limit)
}

// NewViper returns a viper instance with defaults and environment binding.
// When configFile is not empty it is read as well.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
