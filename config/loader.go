/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import "io"

// Loader loads configuration values from the data provider (setting defaults before)
// and passes them to configuration objects.
type Loader struct {
	DataProvider DataProvider
}

// NewDefaultLoader creates a new Loader backed by viper that also reads environment variables with the prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// NewLoader creates a new Loader.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{dp}
}

// LoadFromFile loads configuration values from the file and sets them in configuration objects.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return err
	}
	return l.load(append([]Config{cfg}, cfgs...))
}

// LoadFromReader loads configuration values from the reader and sets them in configuration objects.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return err
	}
	return l.load(append([]Config{cfg}, cfgs...))
}

func (l *Loader) load(cfgs []Config) error {
	for _, cfg := range cfgs {
		cfg.SetProviderDefaults(l.providerFor(cfg))
	}
	for _, cfg := range cfgs {
		if err := cfg.Set(l.providerFor(cfg)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) providerFor(cfg Config) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(l.DataProvider, kp.KeyPrefix())
	}
	return l.DataProvider
}
