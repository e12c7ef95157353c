/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"

	"github.com/acronis/go-throttle/config"
)

const cfgDefaultKeyPrefix = "log"

const (
	cfgKeyLevel                        = "level"
	cfgKeyFormat                       = "format"
	cfgKeyOutput                       = "output"
	cfgKeyNoColor                      = "nocolor"
	cfgKeyAddCaller                    = "addCaller"
	cfgKeyFilePath                     = "file.path"
	cfgKeyFileRotationCompress         = "file.rotation.compress"
	cfgKeyFileRotationMaxSize          = "file.rotation.maxSize"
	cfgKeyFileRotationMaxBackups       = "file.rotation.maxBackups"
	cfgKeyFileRotationMaxAgeDays       = "file.rotation.maxAgeDays"
	cfgKeyFileRotationLocalTimeInNames = "file.rotation.localTimeInNames"
)

// Default and restriction values.
const (
	DefaultFileRotationMaxSizeBytes = 1024 * 1024 * 250
	MinFileRotationMaxSizeBytes     = 1024 * 1024

	DefaultFileRotationMaxBackups = 10
	MinFileRotationMaxBackups     = 1
)

// Level defines possible values for log levels.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format defines possible values for log formats.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output defines possible values for log outputs.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// Config represents a set of configuration parameters for logging.
type Config struct {
	Level     Level            `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format           `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output           `mapstructure:"output" yaml:"output" json:"output"`
	NoColor   bool             `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`
	AddCaller bool             `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
	File      FileOutputConfig `mapstructure:"file" yaml:"file" json:"file"`

	keyPrefix string
}

// FileOutputConfig is a configuration for file log output.
// Path may contain {{starttime}} and {{pid}} placeholders.
type FileOutputConfig struct {
	Path     string             `mapstructure:"path" yaml:"path" json:"path"`
	Rotation FileRotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
}

// FileRotationConfig is a configuration for file log rotation.
type FileRotationConfig struct {
	Compress         bool            `mapstructure:"compress" yaml:"compress" json:"compress"`
	MaxSize          config.ByteSize `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups       int             `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays       int             `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
	LocalTimeInNames bool            `mapstructure:"localTimeInNames" yaml:"localTimeInNames" json:"localTimeInNames"`
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
		Level:     LevelInfo,
		Format:    FormatJSON,
		Output:    OutputStdout,
		File: FileOutputConfig{
			Rotation: FileRotationConfig{
				MaxSize:    DefaultFileRotationMaxSizeBytes,
				MaxBackups: DefaultFileRotationMaxBackups,
			},
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for logger in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyLevel, string(LevelInfo))
	dp.SetDefault(cfgKeyFormat, string(FormatJSON))
	dp.SetDefault(cfgKeyOutput, string(OutputStdout))
	dp.SetDefault(cfgKeyFileRotationMaxSize, config.ByteSize(DefaultFileRotationMaxSizeBytes).String())
	dp.SetDefault(cfgKeyFileRotationMaxBackups, DefaultFileRotationMaxBackups)
}

var (
	availableLevels  = []string{string(LevelError), string(LevelWarn), string(LevelInfo), string(LevelDebug)}
	availableFormats = []string{string(FormatJSON), string(FormatText)}
	availableOutputs = []string{string(OutputStdout), string(OutputStderr), string(OutputFile)}
)

// Set sets logger configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	level, err := dp.GetStringFromSet(cfgKeyLevel, availableLevels, true)
	if err != nil {
		return err
	}
	c.Level = Level(level)

	format, err := dp.GetStringFromSet(cfgKeyFormat, availableFormats, true)
	if err != nil {
		return err
	}
	c.Format = Format(format)

	output, err := dp.GetStringFromSet(cfgKeyOutput, availableOutputs, true)
	if err != nil {
		return err
	}
	c.Output = Output(output)

	if c.NoColor, err = dp.GetBool(cfgKeyNoColor); err != nil {
		return err
	}
	if c.AddCaller, err = dp.GetBool(cfgKeyAddCaller); err != nil {
		return err
	}
	return c.setFileOutput(dp)
}

func (c *Config) setFileOutput(dp config.DataProvider) error {
	var err error

	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.File.Path == "" && c.Output == OutputFile {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("cannot be empty when %q output is used", OutputFile))
	}

	rotation := &c.File.Rotation
	if rotation.Compress, err = dp.GetBool(cfgKeyFileRotationCompress); err != nil {
		return err
	}
	if rotation.MaxSize, err = dp.GetByteSize(cfgKeyFileRotationMaxSize); err != nil {
		return err
	}
	if rotation.MaxSize < MinFileRotationMaxSizeBytes {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxSize,
			fmt.Errorf("should be >= %s", config.ByteSize(MinFileRotationMaxSizeBytes)))
	}
	if rotation.MaxBackups, err = dp.GetInt(cfgKeyFileRotationMaxBackups); err != nil {
		return err
	}
	if rotation.MaxBackups < MinFileRotationMaxBackups {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxBackups, fmt.Errorf("should be >= %d", MinFileRotationMaxBackups))
	}
	if rotation.MaxAgeDays, err = dp.GetInt(cfgKeyFileRotationMaxAgeDays); err != nil {
		return err
	}
	if rotation.MaxAgeDays < 0 {
		return dp.WrapKeyErr(cfgKeyFileRotationMaxAgeDays, fmt.Errorf("should be >= 0"))
	}
	rotation.LocalTimeInNames, err = dp.GetBool(cfgKeyFileRotationLocalTimeInNames)
	return err
}
