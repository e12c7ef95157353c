/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v3"
)

// TimeDuration is a time.Duration that can be decoded from both integers (nanoseconds)
// and human-readable strings (e.g., "1m30s") in JSON, YAML and text.
type TimeDuration time.Duration

// UnmarshalJSON implements json.Unmarshaler interface.
func (d *TimeDuration) UnmarshalJSON(data []byte) error {
	return d.parse(strings.Trim(string(data), `"`))
}

// UnmarshalYAML implements yaml.Unmarshaler interface.
func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid time duration format: %w", err)
	}
	return d.parse(s)
}

// UnmarshalText implements encoding.TextUnmarshaler interface (used by mapstructure decode hooks).
func (d *TimeDuration) UnmarshalText(text []byte) error {
	return d.parse(string(text))
}

func (d *TimeDuration) parse(s string) error {
	if num, err := strconv.ParseInt(s, 10, 64); err == nil {
		if num < 0 {
			return fmt.Errorf("negative value is not allowed: %d", num)
		}
		*d = TimeDuration(num)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid time duration format (%s): %w", s, err)
	}
	*d = TimeDuration(dur)
	return nil
}

// String returns the human-readable representation.
func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler interface.
func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalYAML implements yaml.Marshaler interface.
func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// MarshalText implements encoding.TextMarshaler interface.
func (d TimeDuration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ByteSize is a size in bytes that can be decoded from both integers
// and human-readable strings (e.g., "100M", "1Gi") in JSON, YAML and text.
type ByteSize uint64

// UnmarshalJSON implements json.Unmarshaler interface.
func (b *ByteSize) UnmarshalJSON(data []byte) error {
	res, err := parseByteSize(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*b = res
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler interface.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid byte size format: %w", err)
	}
	return b.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler interface (used by mapstructure decode hooks).
func (b *ByteSize) UnmarshalText(text []byte) error {
	return b.UnmarshalJSON(text)
}

// String returns the human-readable representation.
func (b ByteSize) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// MarshalJSON implements json.Marshaler interface.
func (b ByteSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// MarshalYAML implements yaml.Marshaler interface.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// MarshalText implements encoding.TextMarshaler interface.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func parseByteSize(s string) (ByteSize, error) {
	v := strings.TrimSpace(s)
	if num, err := strconv.ParseInt(v, 10, 64); err == nil {
		if num < 0 {
			return 0, fmt.Errorf("negative value is not allowed: %d", num)
		}
		return ByteSize(num), nil
	}
	// k8s-style power-of-two suffixes ("Ki", "Mi", ...) are understood by bytefmt without the trailing "i".
	if len(v) > 2 && v[len(v)-1] == 'i' && strings.ContainsRune("KMGTPE", rune(v[len(v)-2])) {
		v = v[:len(v)-1]
	}
	num, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size format (%s): %w", s, err)
	}
	return ByteSize(num), nil
}
