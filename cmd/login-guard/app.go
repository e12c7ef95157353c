/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/go-throttle/httpserver"
	"github.com/acronis/go-throttle/httpserver/middleware"
	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/lrucache"
	"github.com/acronis/go-throttle/profserver"
	"github.com/acronis/go-throttle/restapi"
	"github.com/acronis/go-throttle/service"
	"github.com/acronis/go-throttle/throttle"
)

const (
	serviceErrorDomain = "LoginGuard"
	metricsNamespace   = "login_guard"

	errCodeInvalidCredentials = "invalidCredentials"
	loginFormEmailField       = "email"
	loginFormPasswordField    = "password"
)

// App is the login-guard service: an HTTP server with the throttled /login endpoint,
// the sweeper of idle keys and, optionally, the profiling server.
type App struct {
	*service.CompositeUnit

	Counter *throttle.SyncKeyedCounter[string]
	Router  chi.Router

	throttleMetrics *throttle.PrometheusMetrics
	cacheMetrics    *lrucache.PrometheusMetrics
}

var _ service.Unit = (*App)(nil)
var _ service.MetricsRegisterer = (*App)(nil)

// NewApp creates a new App. Time source of the throttling is clock (RealClock if nil).
func NewApp(cfg *AppConfig, logger log.FieldLogger, clock throttle.Clock) (*App, error) {
	app := &App{
		throttleMetrics: throttle.NewPrometheusMetricsWithOpts(throttle.PrometheusMetricsOpts{Namespace: metricsNamespace}),
	}
	counterOpts := throttle.KeyedCounterOpts{
		Clock:            clock,
		Logger:           logger,
		MetricsCollector: app.throttleMetrics,
	}
	if cfg.Throttle.MaxKeys > 0 {
		app.cacheMetrics = lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{Namespace: metricsNamespace})
		counterOpts.CacheMetricsCollector = app.cacheMetrics
	}
	kc, err := throttle.NewKeyedCounterFromConfig[string](cfg.Throttle, counterOpts)
	if err != nil {
		return nil, fmt.Errorf("create keyed counter: %w", err)
	}
	app.Counter = throttle.NewSyncKeyedCounter(kc)

	app.Router = httpserver.NewRouter(logger, httpserver.RouterOpts{
		ErrorDomain:         serviceErrorDomain,
		ExcludedFromLogging: cfg.Server.Log.ExcludedEndpoints,
	})
	getKey := middleware.GetLockoutKeyByFormValue(loginFormEmailField)
	app.Router.With(
		middleware.LockoutWithOpts(app.Counter, serviceErrorDomain, middleware.LockoutOpts{GetKey: getKey}),
	).Post("/login", newLoginHandler(cfg.Auth.Users, app.Counter, getKey))

	units := []service.Unit{httpserver.New(cfg.Server, logger, app.Router)}
	if sweepInterval := time.Duration(cfg.Throttle.SweepInterval); sweepInterval > 0 {
		units = append(units, service.NewWorkerUnit(throttle.NewSweeper(app.Counter, sweepInterval, logger)))
	}
	if cfg.ProfServer.Enabled {
		units = append(units, profserver.New(cfg.ProfServer, logger))
	}
	app.CompositeUnit = service.NewCompositeUnit(units...)

	return app, nil
}

// MustRegisterMetrics registers all metrics of the App in Prometheus.
func (a *App) MustRegisterMetrics() {
	a.throttleMetrics.MustRegister()
	if a.cacheMetrics != nil {
		a.cacheMetrics.MustRegister()
	}
	restapi.MustInitAndRegisterMetrics(metricsNamespace)
	a.CompositeUnit.MustRegisterMetrics()
}

// UnregisterMetrics unregisters all metrics of the App.
func (a *App) UnregisterMetrics() {
	a.CompositeUnit.UnregisterMetrics()
	restapi.UnregisterMetrics()
	if a.cacheMetrics != nil {
		a.cacheMetrics.Unregister()
	}
	a.throttleMetrics.Unregister()
}

func newLoginHandler(
	users []User, counter *throttle.SyncKeyedCounter[string], getKey middleware.LockoutGetKeyFunc,
) http.HandlerFunc {
	passwords := make(map[string]string, len(users))
	for _, u := range users {
		passwords[strings.ToLower(u.Email)] = u.Password
	}

	return func(rw http.ResponseWriter, r *http.Request) {
		logger := middleware.GetLoggerFromContext(r.Context())

		email := strings.ToLower(strings.TrimSpace(r.FormValue(loginFormEmailField)))
		password, ok := passwords[email]
		if !ok || subtle.ConstantTimeCompare([]byte(password), []byte(r.FormValue(loginFormPasswordField))) != 1 {
			apiErr := restapi.NewError(serviceErrorDomain, errCodeInvalidCredentials, "Invalid email or password.")
			restapi.RespondError(rw, http.StatusUnauthorized, apiErr, logger)
			return
		}

		if key, _, err := getKey(r); err == nil {
			counter.Forget(key)
		}
		if logger != nil {
			logger.Info("user logged in", log.String("email", email))
		}
		restapi.RespondJSON(rw, map[string]string{"email": email}, logger)
	}
}
