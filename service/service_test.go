/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttle/log/logtest"
)

func TestService_StartBySignal(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	unit := &mockUnit{}
	svc := New(logRecorder, unit)

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()
	require.Eventually(t, func() bool { return unit.started.Load() == 1 }, 3*time.Second, 5*time.Millisecond)

	svc.Signals <- os.Interrupt

	require.NoError(t, <-done)
	require.Equal(t, int32(1), unit.stopped.Load())
	require.Equal(t, int32(1), unit.registered.Load())
	require.Equal(t, int32(1), unit.unregistered.Load())
	_, found := logRecorder.FindEntry("service got signal")
	require.True(t, found)
}

func TestService_StartContext(t *testing.T) {
	unit := &mockUnit{}
	svc := New(logtest.NewRecorder(), unit)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.StartContext(ctx) }()
	require.Eventually(t, func() bool { return unit.started.Load() == 1 }, 3*time.Second, 5*time.Millisecond)

	cancel()

	require.NoError(t, <-done)
	require.Equal(t, int32(1), unit.stopped.Load())
}

func TestService_FatalError(t *testing.T) {
	startErr := errors.New("cannot listen")
	svc := New(logtest.NewRecorder(), &mockUnit{startErr: startErr})
	require.ErrorIs(t, svc.Start(), startErr)
}
