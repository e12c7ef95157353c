/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttle/config"
	"github.com/acronis/go-throttle/log/logtest"
	"github.com/acronis/go-throttle/restapi"
	"github.com/acronis/go-throttle/testutil"
)

const (
	testEmail    = "john@example.com"
	testPassword = "correct horse battery staple"
)

func newTestAppConfig() *AppConfig {
	cfg := NewAppConfig()
	cfg.Throttle.Window = config.TimeDuration(time.Minute)
	cfg.Throttle.Limit = 3
	cfg.Throttle.Lockout = config.TimeDuration(3 * time.Minute)
	cfg.Auth.Users = []User{{Email: testEmail, Password: testPassword}}
	return cfg
}

func login(t *testing.T, handler http.Handler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "10.0.0.1:5555"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func requireErrorCode(t *testing.T, resp *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	require.Equal(t, wantStatus, resp.Code)
	var apiErr restapi.Error
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	require.Equal(t, serviceErrorDomain, apiErr.Domain)
	require.Equal(t, wantCode, apiErr.Code)
}

func TestApp_Login(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	app, err := NewApp(newTestAppConfig(), logtest.NewRecorder(), clock)
	require.NoError(t, err)

	t.Run("email is locked out after too many failed attempts", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			requireErrorCode(t, login(t, app.Router, testEmail, "wrong"), http.StatusUnauthorized, errCodeInvalidCredentials)
		}
		// Even the right password is rejected during the lockout.
		resp := login(t, app.Router, testEmail, testPassword)
		requireErrorCode(t, resp, http.StatusTooManyRequests, restapi.ErrCodeTooManyAttempts)
		require.Equal(t, "180", resp.Header().Get("Retry-After"))

		// Emails are compared case-insensitively.
		requireErrorCode(t, login(t, app.Router, "JOHN@example.com", testPassword),
			http.StatusTooManyRequests, restapi.ErrCodeTooManyAttempts)

		// Other emails from the same IP address are not affected.
		requireErrorCode(t, login(t, app.Router, "jane@example.com", "x"), http.StatusUnauthorized, errCodeInvalidCredentials)

		clock.Advance(3 * time.Minute)
		resp = login(t, app.Router, testEmail, testPassword)
		require.Equal(t, http.StatusOK, resp.Code)
		require.JSONEq(t, `{"email":"john@example.com"}`, resp.Body.String())
	})

	t.Run("successful login resets attempts", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			require.Equal(t, http.StatusUnauthorized, login(t, app.Router, testEmail, "wrong").Code)
		}
		require.Equal(t, http.StatusOK, login(t, app.Router, testEmail, testPassword).Code)
		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusUnauthorized, login(t, app.Router, testEmail, "wrong").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, login(t, app.Router, testEmail, "wrong").Code)
	})

	t.Run("client IP address is used without email", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusUnauthorized, login(t, app.Router, "", "").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, login(t, app.Router, "", "").Code)
		_, locked := app.Counter.LockedUntil("10.0.0.1")
		require.True(t, locked)
	})
}

func TestApp_Units(t *testing.T) {
	cfg := newTestAppConfig()
	app, err := NewApp(cfg, logtest.NewRecorder(), nil)
	require.NoError(t, err)
	require.Len(t, app.Units, 1)

	cfg.Throttle.SweepInterval = config.TimeDuration(time.Minute)
	cfg.Throttle.MaxKeys = 10
	cfg.ProfServer.Enabled = true
	cfg.ProfServer.Address = "127.0.0.1:0"
	app, err = NewApp(cfg, logtest.NewRecorder(), nil)
	require.NoError(t, err)
	require.Len(t, app.Units, 3)

	require.NotPanics(t, app.MustRegisterMetrics)
	app.UnregisterMetrics()
}

func TestLoadAppConfig(t *testing.T) {
	cfg, err := LoadAppConfig("config.yml")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Address)
	require.Equal(t, 5, cfg.Throttle.Limit)
	require.Equal(t, config.TimeDuration(3*time.Minute), cfg.Throttle.Lockout)
	require.Equal(t, 100000, cfg.Throttle.MaxKeys)
	require.Equal(t, []User{{Email: testEmail, Password: testPassword}}, cfg.Auth.Users)

	t.Setenv("LOGIN_GUARD_LOGIN_THROTTLE_LIMIT", "10")
	cfg, err = LoadAppConfig("config.yml")
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Throttle.Limit)

	noUsersPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(noUsersPath, []byte("server:\n  address: \":8080\"\n"), 0o600))
	_, err = LoadAppConfig(noUsersPath)
	require.ErrorContains(t, err, "auth.users: at least one user must be configured")
}
