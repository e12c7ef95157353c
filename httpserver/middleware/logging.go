/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/acronis/go-throttle/log"
)

// LoggingOpts represents an options for Logging middleware.
type LoggingOpts struct {
	// ExcludedEndpoints contains paths of requests that are not logged unless they fail.
	ExcludedEndpoints []string
}

type loggingHandler struct {
	next   http.Handler
	logger log.FieldLogger
	opts   LoggingOpts
}

// Logging is a middleware that logs info about HTTP request and response.
// Also, it puts logger (with external and internal request's ids in fields) into request's context.
func Logging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return LoggingWithOpts(logger, LoggingOpts{})
}

// LoggingWithOpts is a more configurable version of Logging middleware.
func LoggingWithOpts(logger log.FieldLogger, opts LoggingOpts) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &loggingHandler{next: next, logger: logger, opts: opts}
	}
}

func (h *loggingHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	loggerForNext := h.logger.With(
		log.String("request_id", GetRequestIDFromContext(ctx)),
		log.String("int_request_id", GetInternalRequestIDFromContext(ctx)),
	)
	logger := loggerForNext.With(
		log.String("method", r.Method),
		log.String("uri", r.URL.RequestURI()),
		log.String("remote_addr", r.RemoteAddr),
	)

	wrw := chimw.NewWrapResponseWriter(rw, r.ProtoMajor)
	h.next.ServeHTTP(wrw, r.WithContext(NewContextWithLogger(ctx, loggerForNext)))

	status := wrw.Status()
	if status == 0 {
		status = http.StatusOK
	}
	if status < http.StatusBadRequest && h.isExcluded(r.URL.Path) {
		return
	}
	duration := time.Since(startTime)
	logger.Info(
		fmt.Sprintf("response completed in %.3fs", duration.Seconds()),
		log.Int64("duration_ms", duration.Milliseconds()),
		log.Int("status", status),
		log.Int("bytes_sent", wrw.BytesWritten()),
	)
}

func (h *loggingHandler) isExcluded(path string) bool {
	for _, p := range h.opts.ExcludedEndpoints {
		if p == path {
			return true
		}
	}
	return false
}
