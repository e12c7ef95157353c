/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides structured logging on top of github.com/ssgreg/logf.
package log

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field hold data of a specific field.
type Field = logf.Field

// CloseFunc flushes buffered entries and stops the logger's writer.
type CloseFunc logf.ChannelWriterCloseFunc

// LogFunc allows logging a message with a bound level.
// nolint: revive
type LogFunc = logf.LogFunc

// Field constructors.
var (
	Error      = logf.Error
	NamedError = logf.NamedError
	String     = logf.String
	Strings    = logf.Strings
	Bytes      = logf.Bytes
	Int        = logf.Int
	Int64      = logf.Int64
	Uint64     = logf.Uint64
	Float64    = logf.Float64
	Bool       = logf.Bool
	Duration   = logf.Duration
	Time       = logf.Time
	Any        = logf.Any
)

// DurationIn returns a new Field with the "duration" as key and received duration in unit as value (int64).
func DurationIn(val, unit time.Duration) Field {
	return Int64("duration", val.Nanoseconds()/unit.Nanoseconds())
}

// FieldLogger is an interface for loggers which writes logs in structured format.
type FieldLogger interface {
	With(...Field) FieldLogger

	Debug(string, ...Field)
	Info(string, ...Field)
	Warn(string, ...Field)
	Error(string, ...Field)

	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})

	AtLevel(Level, func(LogFunc))
	WithLevel(level Level) FieldLogger
}

// LogfAdapter adapts logf.Logger to FieldLogger interface.
type LogfAdapter struct {
	Logger *logf.Logger
}

// NewDisabledLogger returns a new logger that logs nothing.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{logf.NewDisabledLogger()}
}

// NewLogger returns a new logger configured by cfg.
// CloseFunc must be called before the application exits, otherwise buffered entries may be lost.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc) {
	channel, closeFunc := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg, outputWriter(cfg)),
		EnableSyncOnError: true,
	})
	l := logf.NewLogger(toLogfLevel(cfg.Level), channel).With(logf.Int("pid", os.Getpid()))
	if cfg.AddCaller {
		l = l.WithCaller().WithCallerSkip(1) // skip LogfAdapter's frame
	}
	return &LogfAdapter{l}, CloseFunc(closeFunc)
}

// With returns a new logger with the given additional fields.
func (l *LogfAdapter) With(fs ...Field) FieldLogger {
	return &LogfAdapter{l.Logger.With(fs...)}
}

// Debug logs message at "debug" level.
func (l *LogfAdapter) Debug(s string, fields ...Field) {
	l.Logger.Debug(s, fields...)
}

// Info logs message at "info" level.
func (l *LogfAdapter) Info(s string, fields ...Field) {
	l.Logger.Info(s, fields...)
}

// Warn logs message at "warn" level.
func (l *LogfAdapter) Warn(s string, fields ...Field) {
	l.Logger.Warn(s, fields...)
}

// Error logs message at "error" level.
func (l *LogfAdapter) Error(s string, fields ...Field) {
	l.Logger.Error(s, fields...)
}

// Debugf logs a formatted message at "debug" level.
func (l *LogfAdapter) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, format, args...)
}

// Infof logs a formatted message at "info" level.
func (l *LogfAdapter) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, format, args...)
}

// Warnf logs a formatted message at "warn" level.
func (l *LogfAdapter) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, format, args...)
}

// Errorf logs a formatted message at "error" level.
func (l *LogfAdapter) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, format, args...)
}

func (l *LogfAdapter) logf(level Level, format string, args ...interface{}) {
	l.AtLevel(level, func(write LogFunc) {
		write(fmt.Sprintf(format, args...))
	})
}

// AtLevel calls fn if logging at the level is enabled, passing a LogFunc with the bound level.
func (l *LogfAdapter) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.Logger.AtLevel(toLogfLevel(level), fn)
}

// WithLevel returns a new logger with additional level check.
// Messages below the given AND previously set level are ignored, so it makes sense only to increase level.
func (l *LogfAdapter) WithLevel(level Level) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.WithLevel(toLogfLevel(level))}
}

func toLogfLevel(level Level) logf.Level {
	switch level {
	case LevelError:
		return logf.LevelError
	case LevelWarn:
		return logf.LevelWarn
	case LevelDebug:
		return logf.LevelDebug
	default:
		return logf.LevelInfo
	}
}

func outputWriter(cfg *Config) io.Writer {
	switch cfg.Output {
	case OutputFile:
		return &lumberjack.Logger{
			Filename:   resolvePlaceholders(cfg.File.Path),
			MaxSize:    int(cfg.File.Rotation.MaxSize / 1024 / 1024), // lumberjack measures in megabytes
			MaxBackups: cfg.File.Rotation.MaxBackups,
			MaxAge:     cfg.File.Rotation.MaxAgeDays,
			Compress:   cfg.File.Rotation.Compress,
			LocalTime:  cfg.File.Rotation.LocalTimeInNames,
		}
	case OutputStderr:
		return os.Stderr
	default:
		return os.Stdout
	}
}

func newAppender(cfg *Config, w io.Writer) logf.Appender {
	if cfg.Format == FormatText {
		noColor := cfg.NoColor
		return logftext.NewAppender(w, logftext.EncoderConfig{
			NoColor:    &noColor,
			EncodeTime: logf.RFC3339NanoTimeEncoder,
		})
	}
	return logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
		EncodeTime:   logf.RFC3339NanoTimeEncoder,
		FieldKeyTime: "time",
	}))
}

// resolvePlaceholders replaces {{starttime}} and {{pid}} in the log file path.
func resolvePlaceholders(filePath string) string {
	return strings.NewReplacer(
		"{{starttime}}", time.Now().Format("200601021504"),
		"{{pid}}", strconv.Itoa(os.Getpid()),
	).Replace(filePath)
}
