package bot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"discord-archive/crawler"
	"discord-archive/utils"
)

// runEvery runs fn once immediately, then on the given cron schedule until
// the context is cancelled. Each tick is a full incremental pass; failed
// ticks are logged and the schedule keeps going, except for log write
// failures, which stop it.
//
// Ticks never overlap: a crawl outlasting the schedule interval would race
// the next tick on the shared watermark map and append through a second
// writer, so a tick that fires mid-crawl is skipped instead.
func runEvery(ctx context.Context, spec string, fn func() error) error {
	fatal := make(chan error, 1)
	var running atomic.Bool
	tick := func() {
		if !running.CompareAndSwap(false, true) {
			utils.Warn("bot", "schedule", "previous crawl still running, skipping this tick")
			return
		}
		defer running.Store(false)
		if err := fn(); err != nil {
			if errors.Is(err, crawler.ErrWriteFailed) || ctx.Err() != nil {
				select {
				case fatal <- err:
				default:
				}
				return
			}
			utils.Error("bot", "schedule", "scheduled crawl failed: "+err.Error())
		}
	}

	tick()
	select {
	case err := <-fatal:
		return err
	default:
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, tick); err != nil {
		return fmt.Errorf("%w: bad schedule %q: %v", ErrValidation, spec, err)
	}
	c.Start()
	utils.Info("bot", "schedule", "incremental crawl scheduled: "+spec)

	select {
	case <-ctx.Done():
		<-c.Stop().Done()
		utils.Info("bot", "schedule", "scheduler stopped")
		return nil
	case err := <-fatal:
		<-c.Stop().Done()
		return err
	}
}
