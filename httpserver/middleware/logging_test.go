/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/log/logtest"
)

func TestLoggingHandler_ServeHTTP(t *testing.T) {
	completedEntries := func(logger *logtest.Recorder) []logtest.RecordedEntry {
		return logger.FindAllEntriesByFilter(func(e logtest.RecordedEntry) bool {
			return strings.HasPrefix(e.Text, "response completed in ")
		})
	}

	t.Run("response is logged, logger is put into context", func(t *testing.T) {
		logger := logtest.NewRecorder()
		var loggerFromCtx log.FieldLogger
		next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			loggerFromCtx = GetLoggerFromContext(r.Context())
			rw.WriteHeader(http.StatusCreated)
			_, _ = rw.Write([]byte("ok"))
		})
		handler := RequestIDWithOpts(RequestIDOpts{
			GenerateID:         func() string { return "ext-id" },
			GenerateInternalID: func() string { return "int-id" },
		})(Logging(logger)(next))

		req := httptest.NewRequest(http.MethodPost, "/login?next=home", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, loggerFromCtx)
		entries := completedEntries(logger)
		require.Len(t, entries, 1)
		require.Equal(t, log.LevelInfo, entries[0].Level)
		for key, want := range map[string]string{
			"request_id":     "ext-id",
			"int_request_id": "int-id",
			"method":         http.MethodPost,
			"uri":            "/login?next=home",
		} {
			field, found := entries[0].FindField(key)
			require.True(t, found, key)
			require.Equal(t, want, string(field.Bytes), key)
		}
		statusField, found := entries[0].FindField("status")
		require.True(t, found)
		require.EqualValues(t, http.StatusCreated, statusField.Int)
		bytesField, found := entries[0].FindField("bytes_sent")
		require.True(t, found)
		require.EqualValues(t, 2, bytesField.Int)
	})

	t.Run("excluded endpoints are logged only on failure", func(t *testing.T) {
		logger := logtest.NewRecorder()
		status := http.StatusOK
		next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(status)
		})
		handler := LoggingWithOpts(logger, LoggingOpts{ExcludedEndpoints: []string{"/healthz"}})(next)

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Empty(t, completedEntries(logger))

		status = http.StatusServiceUnavailable
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Len(t, completedEntries(logger), 1)
	})
}
