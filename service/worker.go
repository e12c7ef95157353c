/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/acronis/go-throttle/log"
)

// ErrPeriodicWorkerStop may be returned by a Worker to interrupt the PeriodicWorker's loop.
var ErrPeriodicWorkerStop = errors.New("stop periodic worker")

// Worker performs some (usually long-running) work.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc is an adapter to allow the use of ordinary functions as Worker.
type WorkerFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PeriodicWorker runs the underlying worker every interval until the context is canceled.
// The first run happens after the first interval.
type PeriodicWorker struct {
	worker   Worker
	interval time.Duration
	logger   log.FieldLogger
}

// NewPeriodicWorker creates a new PeriodicWorker.
func NewPeriodicWorker(worker Worker, interval time.Duration, logger log.FieldLogger) *PeriodicWorker {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &PeriodicWorker{worker: worker, interval: interval, logger: logger}
}

// Interval returns the delay between runs.
func (pw *PeriodicWorker) Interval() time.Duration {
	return pw.interval
}

// Run runs the PeriodicWorker's loop.
// Errors of the underlying worker are logged and don't stop the loop, except ErrPeriodicWorkerStop.
func (pw *PeriodicWorker) Run(ctx context.Context) error {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			pw.logger.Error(fmt.Sprintf("panic: %+v", p), log.Bytes("stack", stack))
			panic(p)
		}
	}()

	pw.logger.Info("periodic worker started", log.Duration("interval", pw.interval))

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			pw.logger.Info("periodic worker stopped")
			return nil
		case <-ticker.C:
		}
		if err := pw.worker.Run(ctx); err != nil {
			if errors.Is(err, ErrPeriodicWorkerStop) {
				pw.logger.Info("periodic worker stopped by the underlying worker")
				return nil
			}
			pw.logger.Error("periodically running worker finished with error", log.Error(err))
		}
	}
}
