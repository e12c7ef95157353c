/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"time"
)

// ErrWorkerUnitStopTimeoutExceeded is returned when WorkerUnit's graceful stop takes longer than allowed.
var ErrWorkerUnitStopTimeoutExceeded = errors.New("worker unit stop timeout exceeded")

// WorkerUnitOpts contains optional parameters for constructing WorkerUnit.
type WorkerUnitOpts struct {
	// GracefulStopTimeout limits how long Stop(true) waits for the worker. Zero means no limit.
	GracefulStopTimeout time.Duration
}

// WorkerUnit presents Worker as Unit. Stop cancels the context passed to the worker.
type WorkerUnit struct {
	worker      Worker
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	stopTimeout time.Duration
}

// NewWorkerUnit creates a new WorkerUnit.
func NewWorkerUnit(worker Worker) *WorkerUnit {
	return NewWorkerUnitWithOpts(worker, WorkerUnitOpts{})
}

// NewWorkerUnitWithOpts is a more configurable version of NewWorkerUnit.
func NewWorkerUnitWithOpts(worker Worker, opts WorkerUnitOpts) *WorkerUnit {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerUnit{
		worker:      worker,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		stopTimeout: opts.GracefulStopTimeout,
	}
}

// Start runs the underlying Worker and blocks until it returns.
func (u *WorkerUnit) Start(fatalErr chan<- error) {
	defer close(u.done)
	if err := u.worker.Run(u.ctx); err != nil {
		fatalErr <- err
	}
}

// Stop cancels the underlying Worker. If gracefully is true, it waits until the Worker returns.
func (u *WorkerUnit) Stop(gracefully bool) error {
	u.cancel()
	if !gracefully {
		return nil
	}
	if u.stopTimeout == 0 {
		<-u.done
		return nil
	}
	select {
	case <-u.done:
		return nil
	case <-time.After(u.stopTimeout):
		return ErrWorkerUnitStopTimeoutExceeded
	}
}
