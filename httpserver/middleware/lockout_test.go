/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/log/logtest"
	"github.com/acronis/go-throttle/restapi"
	"github.com/acronis/go-throttle/testutil"
	"github.com/acronis/go-throttle/throttle"
)

const testErrDomain = "LoginGuard"

func newTestSyncKeyedCounter(
	t *testing.T, limit int, lockout time.Duration,
) (*throttle.SyncKeyedCounter[string], *testutil.FakeClock) {
	t.Helper()
	clock := testutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	kc, err := throttle.NewKeyedCounterWithOpts[string](time.Minute, limit, lockout, throttle.KeyedCounterOpts{Clock: clock})
	require.NoError(t, err)
	return throttle.NewSyncKeyedCounter(kc), clock
}

func sendRequest(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = remoteAddr
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestLockout(t *testing.T) {
	t.Run("requests are throttled by remote IP", func(t *testing.T) {
		counter, clock := newTestSyncKeyedCounter(t, 2, 90*time.Second)
		next := &mockNextHandler{}
		handler := Lockout(counter, testErrDomain)(next)

		for i := 0; i < 2; i++ {
			resp := sendRequest(handler, "10.0.0.1:1234")
			require.Equal(t, http.StatusOK, resp.Code)
		}
		resp := sendRequest(handler, "10.0.0.1:5678") // port doesn't matter
		requireAPIErrorInRecorder(t, resp, http.StatusTooManyRequests, testErrDomain, restapi.ErrCodeTooManyAttempts)
		require.Equal(t, "90", resp.Header().Get("Retry-After"))
		require.Equal(t, 2, next.called)

		require.Equal(t, http.StatusOK, sendRequest(handler, "10.0.0.2:1234").Code)

		clock.Advance(30*time.Second + 500*time.Millisecond)
		resp = sendRequest(handler, "10.0.0.1:1234")
		require.Equal(t, http.StatusTooManyRequests, resp.Code)
		require.Equal(t, "60", resp.Header().Get("Retry-After"))

		clock.Advance(time.Minute)
		require.Equal(t, http.StatusOK, sendRequest(handler, "10.0.0.1:1234").Code)
		require.Equal(t, 4, next.called)
	})

	t.Run("no Retry-After without lockout duration", func(t *testing.T) {
		counter, _ := newTestSyncKeyedCounter(t, 0, 0)
		resp := sendRequest(Lockout(counter, testErrDomain)(&mockNextHandler{}), "10.0.0.1:1234")
		require.Equal(t, http.StatusTooManyRequests, resp.Code)
		require.Empty(t, resp.Header().Get("Retry-After"))
	})

	t.Run("rejection is logged with key", func(t *testing.T) {
		counter, _ := newTestSyncKeyedCounter(t, 0, time.Minute)
		logger := logtest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))
		Lockout(counter, testErrDomain)(&mockNextHandler{}).ServeHTTP(httptest.NewRecorder(), req)

		entry, found := logger.FindEntry("error in response")
		require.True(t, found)
		keyField, found := entry.FindField(LockoutLogFieldKey)
		require.True(t, found)
		require.Equal(t, "10.0.0.1", string(keyField.Bytes))
	})

	t.Run("custom key, bypass and retry after", func(t *testing.T) {
		counter, _ := newTestSyncKeyedCounter(t, 1, time.Minute)
		next := &mockNextHandler{}
		handler := LockoutWithOpts(counter, testErrDomain, LockoutOpts{
			GetKey: func(r *http.Request) (string, bool, error) {
				user := r.Header.Get("X-User")
				return user, user == "admin", nil
			},
			RetryAfter: func(_ *http.Request, remaining time.Duration) time.Duration {
				return remaining * 2
			},
		})(next)

		send := func(user string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.Header.Set("X-User", user)
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			return resp
		}
		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, send("admin").Code)
		}
		require.Equal(t, 0, counter.Len())

		require.Equal(t, http.StatusOK, send("john").Code)
		resp := send("john")
		require.Equal(t, http.StatusTooManyRequests, resp.Code)
		require.Equal(t, "120", resp.Header().Get("Retry-After"))
		require.Equal(t, 4, next.called)
	})

	t.Run("dry run", func(t *testing.T) {
		counter, _ := newTestSyncKeyedCounter(t, 0, time.Minute)
		next := &mockNextHandler{}
		logger := logtest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))
		resp := httptest.NewRecorder()
		LockoutWithOpts(counter, testErrDomain, LockoutOpts{DryRun: true})(next).ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, 1, next.called)
		entry, found := logger.FindEntry("too many attempts, serving will be continued because of dry run mode")
		require.True(t, found)
		require.Equal(t, log.LevelWarn, entry.Level)
	})

	t.Run("custom reject", func(t *testing.T) {
		counter, _ := newTestSyncKeyedCounter(t, 0, time.Minute)
		var gotParams LockoutParams
		handler := LockoutWithOpts(counter, testErrDomain, LockoutOpts{
			OnReject: func(rw http.ResponseWriter, _ *http.Request, params LockoutParams, _ http.Handler, _ log.FieldLogger) {
				gotParams = params
				rw.WriteHeader(http.StatusForbidden)
			},
		})(&mockNextHandler{})
		resp := sendRequest(handler, "10.0.0.1:1234")
		require.Equal(t, http.StatusForbidden, resp.Code)
		require.Equal(t, LockoutParams{ErrDomain: testErrDomain, Key: "10.0.0.1", RetryAfter: time.Minute}, gotParams)
	})

	t.Run("key error", func(t *testing.T) {
		counter, _ := newTestSyncKeyedCounter(t, 5, time.Minute)
		next := &mockNextHandler{}
		handler := LockoutWithOpts(counter, testErrDomain, LockoutOpts{
			GetKey: func(*http.Request) (string, bool, error) { return "", false, errors.New("no key") },
		})(next)
		resp := sendRequest(handler, "10.0.0.1:1234")
		requireAPIErrorInRecorder(t, resp, http.StatusInternalServerError, testErrDomain, restapi.ErrCodeInternal)
		require.Equal(t, 0, next.called)
	})
}

func TestGetLockoutKeyByFormValue(t *testing.T) {
	getKey := GetLockoutKeyByFormValue("email")

	newReq := func(form url.Values) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "192.168.1.10:4321"
		return req
	}

	key, bypass, err := getKey(newReq(url.Values{"email": {" John@Example.com "}}))
	require.NoError(t, err)
	require.False(t, bypass)
	require.Equal(t, "john@example.com", key)

	key, _, err = getKey(newReq(url.Values{"password": {"secret"}}))
	require.NoError(t, err)
	require.Equal(t, "192.168.1.10", key)
}

func TestGetLockoutKeyByRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	key, _, err := GetLockoutKeyByRemoteAddr(req)
	require.NoError(t, err)
	require.Equal(t, "::1", key)

	req.RemoteAddr = "unix-socket"
	key, _, err = GetLockoutKeyByRemoteAddr(req)
	require.NoError(t, err)
	require.Equal(t, "unix-socket", key)
}
