package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "factor not power of two", mutate: func(c *Config) { c.MaxOversamplingFactor = 24 }, wantErr: true},
		{name: "initial above max", mutate: func(c *Config) { c.InitialOversamplingFactor = 64 }, wantErr: true},
		{name: "initial below two", mutate: func(c *Config) { c.InitialOversamplingFactor = 1 }, wantErr: true},
		{name: "zero retries", mutate: func(c *Config) { c.MaxSamplingRetries = 0 }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "trace log level", mutate: func(c *Config) { c.LogLevel = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "configspace.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_oversampling_factor: 64\nmax_sampling_retries: 10\nseed: 42\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.MaxOversamplingFactor)
	assert.Equal(t, 10, cfg.MaxSamplingRetries)
	assert.Equal(t, uint64(42), cfg.Seed)

	t.Setenv("CCS_MAX_SAMPLING_RETRIES", "20")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxSamplingRetries)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--max-sampling-retries=30", "--log-level=debug"}))
	cfg, err = LoadWithFlags(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.MaxSamplingRetries)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 64, cfg.MaxOversamplingFactor)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_oversampling_factor: 3\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
