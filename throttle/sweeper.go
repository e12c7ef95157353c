/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"context"
	"time"

	"github.com/acronis/go-throttle/log"
	"github.com/acronis/go-throttle/service"
)

// NewSweeper creates a periodic worker that forgets idle keys of the counter every interval.
// It may be wrapped into service.WorkerUnit to run along with other service units.
func NewSweeper[K comparable](kc *SyncKeyedCounter[K], interval time.Duration, logger log.FieldLogger) *service.PeriodicWorker {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	logger = logger.With(log.String("worker", "throttle-sweeper"))
	sweep := service.WorkerFunc(func(_ context.Context) error {
		if removed := kc.Sweep(); removed > 0 {
			logger.Debug("idle keys swept", log.Int("removed", removed), log.Int("remaining", kc.Len()))
		}
		return nil
	})
	return service.NewPeriodicWorker(sweep, interval, logger)
}
