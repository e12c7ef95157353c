/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration of application components from YAML/JSON files and environment variables.
// Each component describes its parameters with a type implementing Config,
// and Loader fills all of them from a single DataProvider.
package config

import "fmt"

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	// SetProviderDefaults sets default values of the parameters in the data provider.
	SetProviderDefaults(dp DataProvider)

	// Set reads and validates the parameters from the data provider.
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// DataType is a type of data format in which configuration may be described.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// WrapKeyErr wraps error adding information about a key where this error occurs.
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}

// WrapKeyErrIfNeeded does the same as WrapKeyErr, but returns nil for nil error.
func WrapKeyErrIfNeeded(key string, err error) error {
	if err == nil {
		return nil
	}
	return WrapKeyErr(key, err)
}
