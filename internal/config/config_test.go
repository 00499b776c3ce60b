package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, ModeFile, cfg.Source.Mode)
	assert.Equal(t, 100*time.Millisecond, cfg.Source.Debounce)
	assert.Equal(t, 10*time.Second, cfg.HealthCheck.Timeout)
	assert.Equal(t, 3, cfg.Monitor.MaxFailures)
	assert.NoError(t, cfg.Validate())
}

// TestLoadDefaults verifies that an empty viper yields the defaults.
func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestNewViperFileAndEnv verifies that the file overrides defaults and the
// environment overrides the file.
func TestNewViperFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
listen: ":9090"
source:
  mode: poll
  url: https://registry.example.com/supergraph
  interval: 30s
monitor:
  max_failures: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("FEDERATION_LOG_LEVEL", "debug")
	t.Setenv("FEDERATION_SOURCE_INTERVAL", "1m")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, ModePoll, cfg.Source.Mode)
	assert.Equal(t, "https://registry.example.com/supergraph", cfg.Source.URL)
	assert.Equal(t, time.Minute, cfg.Source.Interval)
	assert.Equal(t, 5, cfg.Monitor.MaxFailures)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestNewViperMissingFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestValidate covers field constraints and per-mode requirements.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "unknown mode",
			mutate: func(c *Config) { c.Source.Mode = "ftp" },
			fields: []string{"source.mode"},
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Log.Level = "verbose" },
			fields: []string{"log.level"},
		},
		{
			name:   "file without path",
			mutate: func(c *Config) { c.Source.Path = "" },
			fields: []string{"source.path"},
		},
		{
			name: "poll without url",
			mutate: func(c *Config) {
				c.Source.Mode = ModePoll
				c.Source.Interval = 0
			},
			fields: []string{"source.url", "source.interval"},
		},
		{
			name: "nats without bucket and key",
			mutate: func(c *Config) {
				c.Source.Mode = ModeNATS
				c.Source.NATS.Bucket = ""
				c.Source.NATS.Key = ""
			},
			fields: []string{"source.nats.bucket", "source.nats.key"},
		},
		{
			name:   "zero health check timeout",
			mutate: func(c *Config) { c.HealthCheck.Timeout = 0 },
			fields: []string{"health_check.timeout"},
		},
		{
			name:   "zero max failures",
			mutate: func(c *Config) { c.Monitor.MaxFailures = 0 },
			fields: []string{"monitor.max_failures"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)

			var fields []string
			for _, e := range verrs {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.fields, fields)
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	one := ValidationErrors{{Field: "source.mode", Value: "ftp", Message: "must be one of: static file poll nats"}}
	assert.Equal(t, "source.mode: must be one of: static file poll nats (got: ftp)", one.Error())

	two := append(one, ValidationError{Field: "listen", Value: "", Message: "is required"})
	assert.Contains(t, two.Error(), "2 validation errors:")
	assert.Contains(t, two.Error(), "  2. listen: is required")

	assert.Empty(t, ValidationErrors{}.Error())
}
