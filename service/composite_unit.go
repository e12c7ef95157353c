/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"strings"
	"sync"

	"go.uber.org/atomic"
)

// CompositeUnit starts and stops a group of units together.
type CompositeUnit struct {
	Units []Unit
}

// NewCompositeUnit creates a new composite unit.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return &CompositeUnit{Units: units}
}

// Start launches all units concurrently and blocks until all their Start calls return.
// If any unit fails, all units are stopped non-gracefully and
// a CompositeUnitError with all collected errors is sent to fatalErr.
func (cu *CompositeUnit) Start(fatalErr chan<- error) {
	unitErrs := make([]chan error, len(cu.Units))
	for i := range unitErrs {
		unitErrs[i] = make(chan error, 1)
	}

	result := make(chan bool, len(cu.Units))
	var pending atomic.Int32
	pending.Store(int32(len(cu.Units))) //nolint:gosec // unit count is small
	for i := range cu.Units {
		go func(i int) {
			cu.Units[i].Start(unitErrs[i])
			if len(unitErrs[i]) != 0 {
				result <- false
				return
			}
			if pending.Dec() == 0 {
				result <- true
			}
		}(i)
	}
	if len(cu.Units) == 0 || <-result {
		return
	}

	var errs []error
	stopErr := cu.Stop(false)
	for _, ch := range unitErrs {
		select {
		case err := <-ch:
			errs = append(errs, err)
		default:
		}
	}
	if stopErr != nil {
		errs = append(errs, stopErr.(*CompositeUnitError).UnitErrors...)
	}
	fatalErr <- &CompositeUnitError{UnitErrors: errs}
}

// Stop stops all units concurrently and returns a CompositeUnitError if any of them fails.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, u := range cu.Units {
		wg.Add(1)
		go func(u Unit) {
			defer wg.Done()
			if err := u.Stop(gracefully); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(u)
	}
	wg.Wait()
	if len(errs) > 0 {
		return &CompositeUnitError{UnitErrors: errs}
	}
	return nil
}

// MustRegisterMetrics registers metrics of all units that implement MetricsRegisterer.
func (cu *CompositeUnit) MustRegisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.MustRegisterMetrics()
		}
	}
}

// UnregisterMetrics unregisters metrics of all units that implement MetricsRegisterer.
func (cu *CompositeUnit) UnregisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.UnregisterMetrics()
		}
	}
}

// CompositeUnitError contains errors of the units within CompositeUnit.
type CompositeUnitError struct {
	UnitErrors []error
}

// Error joins errors of all units.
func (cue *CompositeUnitError) Error() string {
	msgs := make([]string, 0, len(cue.UnitErrors))
	for _, err := range cue.UnitErrors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
