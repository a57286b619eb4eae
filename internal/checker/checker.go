package checker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pidwatch/pidwatch/internal/metrics"
	"github.com/pidwatch/pidwatch/internal/notify"
	"github.com/pidwatch/pidwatch/internal/probe"
	"github.com/pidwatch/pidwatch/internal/registry"
)

// maxHistory bounds the in-memory alert history served by the API.
const maxHistory = 200

// Alert records one confirmed-dead notification attempt.
type Alert struct {
	PID       int           `json:"pid"`
	StaleFor  time.Duration `json:"stale_for"`
	FiredAt   time.Time     `json:"fired_at"`
	Message   string        `json:"message"`
	Delivered bool          `json:"delivered"`
}

// Checker periodically scans the registry for PIDs that have gone silent,
// probes whether they still exist, and alerts exactly once per death.
type Checker struct {
	reg        *registry.Registry
	notifier   notify.Notifier
	interval   time.Duration
	staleAfter time.Duration
	met        *metrics.Metrics

	// alive and now are injectable for tests; production uses probe.Alive
	// and time.Now.
	alive func(int) bool
	now   func() time.Time

	mu      sync.Mutex
	history []Alert
}

// New creates a Checker. met may be nil when no instrumentation is wanted.
func New(reg *registry.Registry, n notify.Notifier, interval, staleAfter time.Duration, met *metrics.Metrics) *Checker {
	return &Checker{
		reg:        reg,
		notifier:   n,
		interval:   interval,
		staleAfter: staleAfter,
		met:        met,
		alive:      probe.Alive,
		now:        time.Now,
	}
}

// Run executes one check cycle immediately, then one per interval, until
// ctx is cancelled. The timer wait is interruptible, so shutdown is noticed
// between cycles, not only after a full period.
func (c *Checker) Run(ctx context.Context) {
	c.CheckOnce(ctx, c.now())

	t := time.NewTicker(c.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.CheckOnce(ctx, c.now())
		}
	}
}

// CheckOnce scans a registry snapshot at the given instant and returns the
// number of alerts fired. Stale-but-alive PIDs are left untouched; they stay
// eligible for a future cycle.
func (c *Checker) CheckOnce(ctx context.Context, now time.Time) int {
	fired := 0
	for _, e := range c.reg.Snapshot() {
		age := now.Sub(e.LastSeen)
		if age <= c.staleAfter {
			continue
		}
		if c.reg.IsDeadNotified(e.PID) {
			continue
		}
		if c.alive(e.PID) {
			slog.Debug("checker: stale but alive", "pid", e.PID, "age", age)
			continue
		}

		// Mark before delivery: the alert counts as attempted even if the
		// sink is down, so a flapping sink cannot cause alert storms.
		c.reg.MarkDeadNotified(e.PID)

		a := Alert{
			PID:      e.PID,
			StaleFor: age,
			FiredAt:  now,
			Message:  fmt.Sprintf("PID %d is dead (last seen %ds ago)", e.PID, int(age.Seconds())),
		}
		err := c.notifier.Notify(ctx, a.Message)
		a.Delivered = err == nil
		if err != nil {
			slog.Warn("checker: alert delivery failed", "pid", e.PID, "err", err)
			if c.met != nil {
				c.met.NotifyFailures.Inc()
			}
		} else {
			slog.Warn("checker: dead process alerted", "pid", e.PID, "stale_for", age)
		}

		c.record(a)
		if c.met != nil {
			c.met.AlertsFired.Inc()
		}
		fired++
	}

	if c.met != nil {
		c.met.ChecksRun.Inc()
	}
	return fired
}

// History returns a copy of the recorded alerts, oldest first.
func (c *Checker) History() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Checker) record(a Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, a)
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
}
