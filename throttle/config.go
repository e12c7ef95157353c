/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"fmt"
	"time"

	"github.com/acronis/go-throttle/config"
)

const cfgDefaultKeyPrefix = "throttle"

const (
	cfgKeyWindow        = "window"
	cfgKeyLimit         = "limit"
	cfgKeyLockout       = "lockout"
	cfgKeyMaxKeys       = "maxKeys"
	cfgKeySweepInterval = "sweepInterval"
)

// Default values.
const (
	DefaultWindow  = time.Minute
	DefaultLimit   = 5
	DefaultLockout = 3 * time.Minute
)

// Config represents a set of configuration parameters for KeyedCounter.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// Window is a length of the sliding window in which events are counted.
	Window config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`

	// Limit is the maximum number of events admitted within Window.
	Limit int `mapstructure:"limit" yaml:"limit" json:"limit"`

	// Lockout is a duration during which all events of a key are throttled after Limit is exceeded.
	Lockout config.TimeDuration `mapstructure:"lockout" yaml:"lockout" json:"lockout"`

	// MaxKeys is the maximum number of tracked keys (0 means unlimited).
	MaxKeys int `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`

	// SweepInterval is an interval of forgetting idle keys (0 disables sweeping).
	SweepInterval config.TimeDuration `mapstructure:"sweepInterval" yaml:"sweepInterval" json:"sweepInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

func makeConfigOptions(options []ConfigOption) configOptions {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	return &Config{keyPrefix: makeConfigOptions(options).keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	return &Config{
		keyPrefix: makeConfigOptions(options).keyPrefix,
		Window:    config.TimeDuration(DefaultWindow),
		Limit:     DefaultLimit,
		Lockout:   config.TimeDuration(DefaultLockout),
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyWindow, DefaultWindow.String())
	dp.SetDefault(cfgKeyLimit, DefaultLimit)
	dp.SetDefault(cfgKeyLockout, DefaultLockout.String())
	dp.SetDefault(cfgKeyMaxKeys, 0)
	dp.SetDefault(cfgKeySweepInterval, "0s")
}

// Set sets configuration values from config.DataProvider and validates them.
func (c *Config) Set(dp config.DataProvider) error {
	window, err := dp.GetDuration(cfgKeyWindow)
	if err != nil {
		return err
	}
	if window <= 0 {
		return dp.WrapKeyErr(cfgKeyWindow, fmt.Errorf("must be positive"))
	}
	c.Window = config.TimeDuration(window)

	if c.Limit, err = dp.GetInt(cfgKeyLimit); err != nil {
		return err
	}
	if c.Limit < 0 {
		return dp.WrapKeyErr(cfgKeyLimit, fmt.Errorf("must be non-negative"))
	}

	lockout, err := dp.GetDuration(cfgKeyLockout)
	if err != nil {
		return err
	}
	if lockout < 0 {
		return dp.WrapKeyErr(cfgKeyLockout, fmt.Errorf("must be non-negative"))
	}
	c.Lockout = config.TimeDuration(lockout)

	if c.MaxKeys, err = dp.GetInt(cfgKeyMaxKeys); err != nil {
		return err
	}
	if c.MaxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyMaxKeys, fmt.Errorf("must be non-negative"))
	}

	sweepInterval, err := dp.GetDuration(cfgKeySweepInterval)
	if err != nil {
		return err
	}
	if sweepInterval < 0 {
		return dp.WrapKeyErr(cfgKeySweepInterval, fmt.Errorf("must be non-negative"))
	}
	c.SweepInterval = config.TimeDuration(sweepInterval)

	return nil
}

// NewKeyedCounterFromConfig creates a new KeyedCounter with parameters from the Config.
// MaxKeys from the Config overrides the one from opts.
func NewKeyedCounterFromConfig[K comparable](cfg *Config, opts KeyedCounterOpts) (*KeyedCounter[K], error) {
	opts.MaxKeys = cfg.MaxKeys
	return NewKeyedCounterWithOpts[K](time.Duration(cfg.Window), cfg.Limit, time.Duration(cfg.Lockout), opts)
}
