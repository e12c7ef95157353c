/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"io"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DataProvider is an interface for providing configuration data
// from different sources (files, readers, environment variables).
type DataProvider interface {
	UseEnvVars(prefix string)

	Set(key string, value interface{})
	SetDefault(key string, value interface{})

	SetFromFile(path string, dataType DataType) error
	SetFromReader(reader io.Reader, dataType DataType) error

	IsSet(key string) bool
	Get(key string) interface{}

	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetString(key string) (string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetDuration(key string) (time.Duration, error)
	GetByteSize(key string) (ByteSize, error)

	UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error

	WrapKeyErr(key string, err error) error
}

// DecoderConfigOption configures mapstructure.DecoderConfig used by DataProvider.UnmarshalKey.
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// WithTextUnmarshalling makes the decoder use encoding.TextUnmarshaler implementations
// (e.g., TimeDuration and ByteSize) for string values.
func WithTextUnmarshalling() DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		)
	}
}
