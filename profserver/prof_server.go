/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides an HTTP server that exposes pprof endpoints under /debug.
package profserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/acronis/go-throttle/httpserver/middleware"
	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/service"
)

// ProfServer represents HTTP server for profiling.
// It implements service.Unit interface.
type ProfServer struct {
	URL        string
	HTTPServer *http.Server
	Logger     log.FieldLogger

	httpServerDone chan struct{}
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a new HTTP server for profiling.
func New(cfg *Config, logger log.FieldLogger) *ProfServer {
	router := chi.NewRouter()
	router.Use(middleware.RequestID(), middleware.Logging(logger))
	router.Mount("/debug", chimw.Profiler())

	return &ProfServer{
		URL: "http://" + cfg.Address,
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: time.Second * 5,
		},
		Logger:         logger,
		httpServerDone: make(chan struct{}),
	}
}

// Start starts profiling HTTP server in a blocking way.
func (s *ProfServer) Start(fatalError chan<- error) {
	defer close(s.httpServerDone)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting profiling HTTP server...")
	if err := s.HTTPServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("profiling HTTP server closed")
			return
		}
		logger.Error("profiling HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop closes profiling HTTP server. Profiling requests are never waited for.
func (s *ProfServer) Stop(_ bool) error {
	s.Logger.Info("closing profiling HTTP server...")
	if err := s.HTTPServer.Close(); err != nil {
		s.Logger.Error("profiling HTTP server closing error", log.Error(err))
		return err
	}
	<-s.httpServerDone
	return nil
}
