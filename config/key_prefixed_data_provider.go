/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"io"
	"strings"
	"time"
)

// KeyPrefixedDataProvider is a DataProvider that prepends the key prefix to all keys.
// It lets every component read its own section (e.g., "throttle.limit") using short keys ("limit").
type KeyPrefixedDataProvider struct {
	delegate  DataProvider
	keyPrefix string
}

var _ DataProvider = (*KeyPrefixedDataProvider)(nil)

// NewKeyPrefixedDataProvider creates a new KeyPrefixedDataProvider.
func NewKeyPrefixedDataProvider(delegate DataProvider, keyPrefix string) *KeyPrefixedDataProvider {
	return &KeyPrefixedDataProvider{delegate: delegate, keyPrefix: keyPrefix}
}

func (kp *KeyPrefixedDataProvider) key(key string) string {
	return strings.Trim(kp.keyPrefix+"."+key, ".")
}

// UseEnvVars enables reading parameters from environment variables.
func (kp *KeyPrefixedDataProvider) UseEnvVars(prefix string) {
	kp.delegate.UseEnvVars(prefix)
}

// Set sets the value for the prefixed key.
func (kp *KeyPrefixedDataProvider) Set(key string, value interface{}) {
	kp.delegate.Set(kp.key(key), value)
}

// SetDefault sets the default value for the prefixed key.
func (kp *KeyPrefixedDataProvider) SetDefault(key string, value interface{}) {
	kp.delegate.SetDefault(kp.key(key), value)
}

// SetFromFile reads configuration data from the file.
func (kp *KeyPrefixedDataProvider) SetFromFile(path string, dataType DataType) error {
	return kp.delegate.SetFromFile(path, dataType)
}

// SetFromReader reads configuration data from the reader.
func (kp *KeyPrefixedDataProvider) SetFromReader(reader io.Reader, dataType DataType) error {
	return kp.delegate.SetFromReader(reader, dataType)
}

// IsSet checks whether the prefixed key has been set.
func (kp *KeyPrefixedDataProvider) IsSet(key string) bool {
	return kp.delegate.IsSet(kp.key(key))
}

// Get retrieves any value given the prefixed key.
func (kp *KeyPrefixedDataProvider) Get(key string) interface{} {
	return kp.delegate.Get(kp.key(key))
}

// GetBool retrieves the value associated with the prefixed key as a bool.
func (kp *KeyPrefixedDataProvider) GetBool(key string) (bool, error) {
	return kp.delegate.GetBool(kp.key(key))
}

// GetInt retrieves the value associated with the prefixed key as an integer.
func (kp *KeyPrefixedDataProvider) GetInt(key string) (int, error) {
	return kp.delegate.GetInt(kp.key(key))
}

// GetString retrieves the value associated with the prefixed key as a string.
func (kp *KeyPrefixedDataProvider) GetString(key string) (string, error) {
	return kp.delegate.GetString(kp.key(key))
}

// GetStringFromSet retrieves the value associated with the prefixed key as a string from the specified set.
func (kp *KeyPrefixedDataProvider) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	return kp.delegate.GetStringFromSet(kp.key(key), set, ignoreCase)
}

// GetDuration retrieves the value associated with the prefixed key as a duration.
func (kp *KeyPrefixedDataProvider) GetDuration(key string) (time.Duration, error) {
	return kp.delegate.GetDuration(kp.key(key))
}

// GetByteSize retrieves the value associated with the prefixed key as a size in bytes.
func (kp *KeyPrefixedDataProvider) GetByteSize(key string) (ByteSize, error) {
	return kp.delegate.GetByteSize(kp.key(key))
}

// UnmarshalKey decodes the value associated with the prefixed key into a struct.
func (kp *KeyPrefixedDataProvider) UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error {
	return kp.delegate.UnmarshalKey(kp.key(key), rawVal, opts...)
}

// WrapKeyErr wraps error adding information about the prefixed key.
func (kp *KeyPrefixedDataProvider) WrapKeyErr(key string, err error) error {
	return kp.delegate.WrapKeyErr(kp.key(key), err)
}
