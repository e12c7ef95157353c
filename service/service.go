/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acronis/go-throttle/log"
)

// Service starts a unit, registers its metrics and stops it gracefully on an OS signal.
type Service struct {
	Unit    Unit
	Logger  log.FieldLogger
	Signals chan os.Signal

	shutdownSignals []os.Signal
}

// New creates a new Service that is stopped by SIGINT or SIGTERM.
func New(logger log.FieldLogger, unit Unit) *Service {
	return NewWithSignals(logger, unit, syscall.SIGINT, syscall.SIGTERM)
}

// NewWithSignals creates a new Service that is stopped by the passed signals.
func NewWithSignals(logger log.FieldLogger, unit Unit, signals ...os.Signal) *Service {
	return &Service{
		Unit:            unit,
		Logger:          logger,
		Signals:         make(chan os.Signal, 1),
		shutdownSignals: signals,
	}
}

// Start wraps StartContext using the background context.
func (s *Service) Start() error {
	return s.StartContext(context.Background())
}

// StartContext starts the unit in a separate goroutine and blocks until a fatal error occurs,
// a shutdown signal is received or the context is canceled.
func (s *Service) StartContext(ctx context.Context) error {
	if mr, ok := s.Unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}

	fatalErr := make(chan error, 1)
	go s.Unit.Start(fatalErr)

	signal.Notify(s.Signals, s.shutdownSignals...)
	defer signal.Stop(s.Signals)

	select {
	case err := <-fatalErr:
		s.Logger.Error("service fatal error", log.Error(err))
		return fmt.Errorf("fatal error: %w", err)
	case <-ctx.Done():
		s.Logger.Info("context is canceled, service will be stopped")
	case sig := <-s.Signals:
		s.Logger.Info("service got signal", log.String("signal", sig.String()))
	}

	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	return nil
}
