package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/llm-d/llm-d-configspace/internal/logging"
)

// Configuration keys, also used as flag names (with '_' replaced by '-').
const (
	KeyInitialOversamplingFactor = "initial_oversampling_factor"
	KeyMaxOversamplingFactor     = "max_oversampling_factor"
	KeyMaxSamplingRetries        = "max_sampling_retries"
	KeySeed                      = "seed"
	KeyLogLevel                  = "log_level"

	// EnvPrefix is the prefix of environment variables read by Load.
	EnvPrefix = "CCS"
)

// Defaults
const (
	// DefaultInitialOversamplingFactor is the batch multiplier of the first
	// re-sampling round when a distribution oversamples a parameter domain.
	DefaultInitialOversamplingFactor = 2
	// DefaultMaxOversamplingFactor caps the geometric growth of re-sampling
	// batches; sampling fails once the factor would exceed it.
	DefaultMaxOversamplingFactor = 32
	// DefaultMaxSamplingRetries bounds configuration rejection sampling
	// against forbidden clauses.
	DefaultMaxSamplingRetries = 100
	// DefaultLogLevel is the verbosity of the library logger.
	DefaultLogLevel = "info"
)

var errNotPowerOfTwo = errors.New("must be a power of two")

// Config holds the tunables of the library.
type Config struct {
	// InitialOversamplingFactor is the first batch multiplier used when re-sampling.
	InitialOversamplingFactor int `mapstructure:"initial_oversampling_factor" yaml:"initial_oversampling_factor"`

	// MaxOversamplingFactor is the largest batch multiplier before giving up.
	MaxOversamplingFactor int `mapstructure:"max_oversampling_factor" yaml:"max_oversampling_factor"`

	// MaxSamplingRetries bounds rejection sampling of configurations.
	MaxSamplingRetries int `mapstructure:"max_sampling_retries" yaml:"max_sampling_retries"`

	// Seed seeds the default random number generators. Zero picks a random seed.
	Seed uint64 `mapstructure:"seed" yaml:"seed"`

	// LogLevel is one of "info", "debug" or "trace".
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		InitialOversamplingFactor: DefaultInitialOversamplingFactor,
		MaxOversamplingFactor:     DefaultMaxOversamplingFactor,
		MaxSamplingRetries:        DefaultMaxSamplingRetries,
		LogLevel:                  DefaultLogLevel,
	}
}

// Validate checks for invalid configuration values.
func (c *Config) Validate() error {
	var errs []error
	if c.InitialOversamplingFactor < 2 || !isPowerOfTwo(c.InitialOversamplingFactor) {
		errs = append(errs, fmt.Errorf("initial_oversampling_factor %d: must be >= 2 and %w",
			c.InitialOversamplingFactor, errNotPowerOfTwo))
	}
	if c.MaxOversamplingFactor < 2 || !isPowerOfTwo(c.MaxOversamplingFactor) {
		errs = append(errs, fmt.Errorf("max_oversampling_factor %d: must be >= 2 and %w",
			c.MaxOversamplingFactor, errNotPowerOfTwo))
	}
	if c.InitialOversamplingFactor > c.MaxOversamplingFactor {
		errs = append(errs, fmt.Errorf("initial_oversampling_factor (%d) should be <= max_oversampling_factor (%d)",
			c.InitialOversamplingFactor, c.MaxOversamplingFactor))
	}
	if c.MaxSamplingRetries <= 0 {
		errs = append(errs, fmt.Errorf("max_sampling_retries must be > 0, got %d", c.MaxSamplingRetries))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return utilerrors.NewAggregate(errs)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// BindFlags registers one flag per configuration key on fs. Flags set on the
// command line take precedence over every other source in LoadWithFlags.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int(flagName(KeyInitialOversamplingFactor), d.InitialOversamplingFactor,
		"First batch multiplier when re-sampling out-of-domain values")
	fs.Int(flagName(KeyMaxOversamplingFactor), d.MaxOversamplingFactor,
		"Largest batch multiplier before sampling gives up")
	fs.Int(flagName(KeyMaxSamplingRetries), d.MaxSamplingRetries,
		"Rejection sampling budget for configurations")
	fs.Uint64(flagName(KeySeed), d.Seed, "Seed of default random generators (0 for random)")
	fs.String(flagName(KeyLogLevel), d.LogLevel, "Log verbosity: info, debug or trace")
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Load resolves the configuration from defaults, an optional YAML file at
// path and CCS_* environment variables.
func Load(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// LoadWithFlags is Load with an additional, highest-priority flag set.
func LoadWithFlags(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	d := Default()
	v.SetDefault(KeyInitialOversamplingFactor, d.InitialOversamplingFactor)
	v.SetDefault(KeyMaxOversamplingFactor, d.MaxOversamplingFactor)
	v.SetDefault(KeyMaxSamplingRetries, d.MaxSamplingRetries)
	v.SetDefault(KeySeed, d.Seed)
	v.SetDefault(KeyLogLevel, d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for _, key := range []string{
			KeyInitialOversamplingFactor,
			KeyMaxOversamplingFactor,
			KeyMaxSamplingRetries,
			KeySeed,
			KeyLogLevel,
		} {
			if f := fs.Lookup(flagName(key)); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", f.Name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading configuration file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Logger().V(logging.DEBUG).Info("Loaded configuration",
		"initialOversamplingFactor", cfg.InitialOversamplingFactor,
		"maxOversamplingFactor", cfg.MaxOversamplingFactor,
		"maxSamplingRetries", cfg.MaxSamplingRetries,
		"logLevel", cfg.LogLevel)
	return cfg, nil
}
