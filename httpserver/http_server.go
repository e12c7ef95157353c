/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/service"
)

// HTTPServer represents a wrapper around http.Server that implements service.Unit interface.
type HTTPServer struct {
	HTTPServer      *http.Server
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener       net.Listener
	addr           atomic.Value // string, actual listening address
	httpServerDone atomic.Value
}

var _ service.Unit = (*HTTPServer)(nil)

// New creates a new HTTPServer that serves the passed handler.
func New(cfg *Config, logger log.FieldLogger, handler http.Handler) *HTTPServer {
	return NewWithListener(cfg, logger, handler, nil)
}

// NewWithListener creates a new HTTPServer that serves the passed handler on the pre-configured listener.
// If listener is nil, it will be created on Start using the address from the Config.
func NewWithListener(cfg *Config, logger log.FieldLogger, handler http.Handler, listener net.Listener) *HTTPServer {
	return &HTTPServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			WriteTimeout:      time.Duration(cfg.Timeouts.Write),
			ReadTimeout:       time.Duration(cfg.Timeouts.Read),
			ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeader),
			IdleTimeout:       time.Duration(cfg.Timeouts.Idle),
			Handler:           handler,
		},
		Logger:          logger,
		ShutdownTimeout: time.Duration(cfg.Timeouts.Shutdown),
		listener:        listener,
	}
}

// Start starts application HTTP server in a blocking way.
// It's supposed that this method will be called in a separate goroutine.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *HTTPServer) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.httpServerDone.Store(done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	logger.Info("starting application HTTP server...")

	if s.listener == nil {
		ln, err := net.Listen("tcp", s.HTTPServer.Addr)
		if err != nil {
			logger.Error("application HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
		s.listener = ln
	}
	s.addr.Store(s.listener.Addr().String())

	if err := s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("application HTTP server closed")
			return
		}
		logger.Error("application HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops application HTTP server (gracefully or not).
func (s *HTTPServer) Stop(gracefully bool) error {
	defer s.waitServing()

	if !gracefully {
		s.Logger.Info("closing application HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("application HTTP server closing error", log.Error(err))
			return err
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down application HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("application HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("application HTTP server shut down")
	return nil
}

func (s *HTTPServer) waitServing() {
	if done, ok := s.httpServerDone.Load().(chan struct{}); ok && done != nil {
		<-done
	}
}

// Addr returns the address the server listens on.
// It's empty until the server is started.
func (s *HTTPServer) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}
