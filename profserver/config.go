/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"fmt"

	"github.com/acronis/go-throttle/config"
)

const cfgDefaultKeyPrefix = "profserver"

const (
	cfgKeyEnabled = "enabled"
	cfgKeyAddress = "address"
)

const defaultAddress = "127.0.0.1:8081"

// Config represents a set of configuration parameters for profiling server.
type Config struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Address string `mapstructure:"address" yaml:"address" json:"address"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
// Key prefix is "profserver" if keyPrefix is empty.
func NewConfig(keyPrefix string) *Config {
	if keyPrefix == "" {
		keyPrefix = cfgDefaultKeyPrefix
	}
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for profiling server in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, false)
	dp.SetDefault(cfgKeyAddress, defaultAddress)
}

// Set sets profiling server configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Enabled && c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("must not be empty when profiling server is enabled"))
	}
	return nil
}
