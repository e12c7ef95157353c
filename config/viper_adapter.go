/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ViperAdapter is DataProvider implementation that uses viper library under the hood.
type ViperAdapter struct {
	viper *viper.Viper
}

var _ DataProvider = (*ViperAdapter)(nil)

// NewViperAdapter creates a new ViperAdapter.
func NewViperAdapter() *ViperAdapter {
	return &ViperAdapter{viper.New()}
}

// UseEnvVars enables reading parameters from environment variables.
// E.g., with prefix "LOGIN_GUARD", "throttle.limit" is read from LOGIN_GUARD_THROTTLE_LIMIT.
func (va *ViperAdapter) UseEnvVars(prefix string) {
	va.viper.AutomaticEnv()
	va.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	va.viper.SetEnvPrefix(prefix)
}

// Set sets the value for the key in the override register.
func (va *ViperAdapter) Set(key string, value interface{}) {
	va.viper.Set(key, value)
}

// SetDefault sets the default value for the key.
func (va *ViperAdapter) SetDefault(key string, value interface{}) {
	va.viper.SetDefault(key, value)
}

// SetFromFile reads configuration data from the file.
func (va *ViperAdapter) SetFromFile(path string, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	va.viper.SetConfigFile(path)
	return va.viper.ReadInConfig()
}

// SetFromReader reads configuration data from the reader.
func (va *ViperAdapter) SetFromReader(reader io.Reader, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	return va.viper.ReadConfig(reader)
}

// IsSet checks whether the key has been set in any of the data locations (case-insensitive).
func (va *ViperAdapter) IsSet(key string) bool {
	return va.viper.IsSet(key)
}

// Get retrieves any value given the key to use.
func (va *ViperAdapter) Get(key string) interface{} {
	return va.viper.Get(key)
}

// GetBool tries to retrieve the value associated with the key as a bool.
func (va *ViperAdapter) GetBool(key string) (bool, error) {
	res, err := cast.ToBoolE(va.Get(key))
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetInt tries to retrieve the value associated with the key as an integer.
func (va *ViperAdapter) GetInt(key string) (int, error) {
	res, err := cast.ToIntE(va.Get(key))
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetString tries to retrieve the value associated with the key as a string.
func (va *ViperAdapter) GetString(key string) (string, error) {
	res, err := cast.ToStringE(va.Get(key))
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetStringFromSet tries to retrieve the value associated with the key as a string from the specified set.
func (va *ViperAdapter) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	str, err := va.GetString(key)
	if err != nil {
		return "", err
	}
	for _, s := range set {
		if str == s || (ignoreCase && strings.EqualFold(str, s)) {
			return s, nil
		}
	}
	return "", WrapKeyErr(key, fmt.Errorf("unknown value %q, should be one of %v", str, set))
}

// GetDuration tries to retrieve the value associated with the key as a duration.
// Strings are parsed by time.ParseDuration, integers are treated as nanoseconds.
func (va *ViperAdapter) GetDuration(key string) (time.Duration, error) {
	val := va.Get(key)
	if val == nil {
		return 0, nil
	}
	if d, ok := val.(TimeDuration); ok {
		return time.Duration(d), nil
	}
	res, err := cast.ToDurationE(val)
	return res, WrapKeyErrIfNeeded(key, err)
}

// GetByteSize tries to retrieve the value associated with the key as a size in bytes.
// Both integers and human-readable strings (e.g., "100M", "1Gi") are supported.
func (va *ViperAdapter) GetByteSize(key string) (ByteSize, error) {
	switch v := va.Get(key).(type) {
	case nil:
		return 0, nil
	case ByteSize:
		return v, nil
	case string:
		res, err := parseByteSize(v)
		return res, WrapKeyErrIfNeeded(key, err)
	default:
		num, err := cast.ToInt64E(v)
		if err != nil {
			return 0, WrapKeyErr(key, err)
		}
		if num < 0 {
			return 0, WrapKeyErr(key, fmt.Errorf("negative value is not allowed: %d", num))
		}
		return ByteSize(num), nil
	}
}

// UnmarshalKey takes a single key and decodes it into a struct using mapstructure.
func (va *ViperAdapter) UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error {
	viperOpts := make([]viper.DecoderConfigOption, 0, len(opts))
	for _, opt := range opts {
		viperOpts = append(viperOpts, viper.DecoderConfigOption(opt))
	}
	return WrapKeyErrIfNeeded(key, va.viper.UnmarshalKey(key, rawVal, viperOpts...))
}

// WrapKeyErr wraps error adding information about a key where this error occurs.
func (va *ViperAdapter) WrapKeyErr(key string, err error) error {
	return WrapKeyErr(key, err)
}
