// Package loop drives the simulation at a fixed rate.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// TickFunc runs one tick. dt is the measured time since the previous tick in
// seconds, clamped to the catch-up window.
type TickFunc func(dt float64, now time.Time, tick uint64)

// Run calls fn every period until ctx is done, then returns ctx.Err().
//
// Ticks are scheduled against a target time so they do not drift. When the
// loop falls more than maxCatchup periods behind it skips ahead instead of
// replaying the missed ticks. A panic inside fn is logged and the loop carries
// on with the next tick.
func Run(ctx context.Context, period time.Duration, maxCatchup int, logger *log.Logger, fn TickFunc) error {
	if period <= 0 {
		return fmt.Errorf("tick period must be positive, got %v", period)
	}
	if maxCatchup < 1 {
		maxCatchup = 1
	}
	window := period * time.Duration(maxCatchup)

	start := time.Now()
	next := start
	last := start.Add(-period)
	var tick uint64

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		now := time.Now()
		dt := now.Sub(last)
		if dt > window {
			dt = window
		}
		last = now

		runTick(logger, fn, dt.Seconds(), now, tick)
		tick++

		next = next.Add(period)
		if now.Sub(next) > window {
			logger.Warn("tick loop behind, skipping ahead", "tick", tick, "behind", now.Sub(next))
			next = now.Add(period)
		}
		timer.Reset(time.Until(next))
	}
}

func runTick(logger *log.Logger, fn TickFunc, dt float64, now time.Time, tick uint64) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tick failed", "tick", tick, "err", r)
		}
	}()
	fn(dt, now, tick)
}
