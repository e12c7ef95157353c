/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-throttle/httpserver/middleware"
	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/restapi"
)

// SystemEndpoints are the endpoints that are logged only if their requests fail.
var SystemEndpoints = []string{"/metrics", "/healthz"}

// HealthCheck is a function that reports whether the application is able to serve requests.
type HealthCheck func() error

// RouterOpts represents options for creating chi.Router.
type RouterOpts struct {
	ErrorDomain string

	// HealthCheck is called on every /healthz request. The application is considered healthy if nil.
	HealthCheck HealthCheck

	// MetricsHandler serves /metrics. promhttp.Handler() is used if nil.
	MetricsHandler http.Handler

	// ExcludedFromLogging contains paths (in addition to SystemEndpoints) that are logged only on failure.
	ExcludedFromLogging []string
}

// NewRouter creates a new chi.Router with request id, logging and recovery middlewares,
// and /metrics and /healthz endpoints.
func NewRouter(logger log.FieldLogger, opts RouterOpts) chi.Router {
	router := chi.NewRouter()

	router.Use(
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{
			ExcludedEndpoints: append(append([]string(nil), SystemEndpoints...), opts.ExcludedFromLogging...),
		}),
		middleware.Recovery(opts.ErrorDomain),
	)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, "/metrics", metricsHandler)
	router.Method(http.MethodGet, "/healthz", newHealthCheckHandler(opts.ErrorDomain, opts.HealthCheck))

	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		apiErr := restapi.NewError(opts.ErrorDomain, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound)
		restapi.RespondError(rw, http.StatusNotFound, apiErr, middleware.GetLoggerFromContext(r.Context()))
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		apiErr := restapi.NewError(opts.ErrorDomain, restapi.ErrCodeMethodNotAllowed, restapi.ErrMessageMethodNotAllowed)
		restapi.RespondError(rw, http.StatusMethodNotAllowed, apiErr, middleware.GetLoggerFromContext(r.Context()))
	})

	return router
}

func newHealthCheckHandler(errDomain string, check HealthCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		logger := middleware.GetLoggerFromContext(r.Context())
		if check != nil {
			if err := check(); err != nil {
				if logger != nil {
					logger.Error("health check failed", log.Error(err))
				}
				restapi.RespondCodeAndJSON(rw, http.StatusServiceUnavailable,
					restapi.NewError(errDomain, "unhealthy", err.Error()), logger)
				return
			}
		}
		restapi.RespondJSON(rw, map[string]string{"status": "ok"}, logger)
	})
}
