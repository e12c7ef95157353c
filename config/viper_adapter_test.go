/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newAdapterFromYAML(t *testing.T, data string) *ViperAdapter {
	t.Helper()
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(data), DataTypeYAML))
	return va
}

func TestViperAdapter_Getters(t *testing.T) {
	va := newAdapterFromYAML(t, `
enabled: true
limit: "7"
name: login
lockout: 3m
lockoutNanos: 1000
size: 10Mi
sizeNum: 2048
`)

	b, err := va.GetBool("enabled")
	require.NoError(t, err)
	require.True(t, b)

	i, err := va.GetInt("limit")
	require.NoError(t, err)
	require.Equal(t, 7, i)

	s, err := va.GetString("name")
	require.NoError(t, err)
	require.Equal(t, "login", s)

	d, err := va.GetDuration("lockout")
	require.NoError(t, err)
	require.Equal(t, 3*time.Minute, d)

	d, err = va.GetDuration("lockoutNanos")
	require.NoError(t, err)
	require.Equal(t, time.Microsecond, d)

	d, err = va.GetDuration("missing")
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), d)

	size, err := va.GetByteSize("size")
	require.NoError(t, err)
	require.Equal(t, ByteSize(10*1024*1024), size)

	size, err = va.GetByteSize("sizeNum")
	require.NoError(t, err)
	require.Equal(t, ByteSize(2048), size)

	require.True(t, va.IsSet("name"))
	require.False(t, va.IsSet("missing"))
}

func TestViperAdapter_GetterErrors(t *testing.T) {
	va := newAdapterFromYAML(t, `
limit: five
lockout: soon
size: lots
`)

	_, err := va.GetInt("limit")
	require.ErrorContains(t, err, "limit: ")

	_, err = va.GetDuration("lockout")
	require.ErrorContains(t, err, "lockout: ")

	_, err = va.GetByteSize("size")
	require.ErrorContains(t, err, "size: invalid byte size format")
}

func TestViperAdapter_UnmarshalKey(t *testing.T) {
	va := newAdapterFromYAML(t, `
server:
  address: ":9090"
  timeout: 15s
  maxBody: 1M
`)

	var dst struct {
		Address string       `mapstructure:"address"`
		Timeout TimeDuration `mapstructure:"timeout"`
		MaxBody ByteSize     `mapstructure:"maxBody"`
	}
	require.NoError(t, va.UnmarshalKey("server", &dst, WithTextUnmarshalling()))
	require.Equal(t, ":9090", dst.Address)
	require.Equal(t, TimeDuration(15*time.Second), dst.Timeout)
	require.Equal(t, ByteSize(1024*1024), dst.MaxBody)
}

func TestKeyPrefixedDataProvider(t *testing.T) {
	va := newAdapterFromYAML(t, "throttle:\n  limit: 3\n")
	dp := NewKeyPrefixedDataProvider(va, "throttle")

	dp.SetDefault("window", "1m")
	limit, err := dp.GetInt("limit")
	require.NoError(t, err)
	require.Equal(t, 3, limit)

	window, err := dp.GetDuration("window")
	require.NoError(t, err)
	require.Equal(t, time.Minute, window)
	require.Equal(t, "1m", va.Get("throttle.window"))

	require.EqualError(t, dp.WrapKeyErr("limit", errInvalid), "throttle.limit: invalid")
}
