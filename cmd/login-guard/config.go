/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"

	"github.com/acronis/go-throttle/config"
	"github.com/acronis/go-throttle/httpserver"
	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/profserver"
	"github.com/acronis/go-throttle/throttle"
)

const cfgKeyAuthUsers = "users"

// User represents credentials of the user that is allowed to log in.
type User struct {
	Email    string `mapstructure:"email" yaml:"email" json:"email"`
	Password string `mapstructure:"password" yaml:"password" json:"password"`
}

// AuthConfig contains credentials of the users that are allowed to log in.
type AuthConfig struct {
	Users []User `mapstructure:"users" yaml:"users" json:"users"`
}

var _ config.Config = (*AuthConfig)(nil)
var _ config.KeyPrefixProvider = (*AuthConfig)(nil)

// KeyPrefix implements config.KeyPrefixProvider interface.
func (c *AuthConfig) KeyPrefix() string {
	return "auth"
}

// SetProviderDefaults implements config.Config interface.
func (c *AuthConfig) SetProviderDefaults(_ config.DataProvider) {}

// Set implements config.Config interface.
func (c *AuthConfig) Set(dp config.DataProvider) error {
	var users []User
	if err := dp.UnmarshalKey(cfgKeyAuthUsers, &users); err != nil {
		return err
	}
	if len(users) == 0 {
		return dp.WrapKeyErr(cfgKeyAuthUsers, fmt.Errorf("at least one user must be configured"))
	}
	for i, u := range users {
		if u.Email == "" || u.Password == "" {
			return dp.WrapKeyErr(fmt.Sprintf("%s[%d]", cfgKeyAuthUsers, i), fmt.Errorf("email and password must be set"))
		}
	}
	c.Users = users
	return nil
}

// AppConfig is the whole configuration of the service.
type AppConfig struct {
	Log        *log.Config
	Server     *httpserver.Config
	Throttle   *throttle.Config
	ProfServer *profserver.Config
	Auth       *AuthConfig
}

// NewAppConfig creates a new AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:        log.NewConfig(),
		Server:     httpserver.NewConfig(),
		Throttle:   throttle.NewConfig(throttle.WithKeyPrefix("login.throttle")),
		ProfServer: profserver.NewConfig(""),
		Auth:       &AuthConfig{},
	}
}

func (c *AppConfig) all() []config.Config {
	return []config.Config{c.Log, c.Server, c.Throttle, c.ProfServer, c.Auth}
}

// LoadAppConfig loads the configuration from the YAML file.
// Values may be overridden by LOGIN_GUARD_* environment variables (e.g., LOGIN_GUARD_LOGIN_THROTTLE_LIMIT).
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := NewAppConfig()
	cfgs := cfg.all()
	if err := config.NewDefaultLoader("LOGIN_GUARD").LoadFromFile(path, config.DataTypeYAML, cfgs[0], cfgs[1:]...); err != nil {
		return nil, fmt.Errorf("load configuration from %q: %w", path, err)
	}
	return cfg, nil
}
