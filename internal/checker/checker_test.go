package checker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidwatch/pidwatch/internal/notify"
	"github.com/pidwatch/pidwatch/internal/registry"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return baseTime.Add(time.Duration(sec) * time.Second) }

// fakeSink records notified messages and can be told to fail.
type fakeSink struct {
	msgs []string
	err  error
}

func (f *fakeSink) Notify(_ context.Context, text string) error {
	f.msgs = append(f.msgs, text)
	return f.err
}

// newChecker builds a Checker over a fresh registry with a scripted
// liveness answer and no metrics.
func newChecker(sink notify.Notifier, alive func(int) bool) (*Checker, *registry.Registry) {
	reg := registry.New()
	c := New(reg, sink, 600*time.Second, 1200*time.Second, nil)
	c.alive = alive
	return c, reg
}

func deadAlways(int) bool  { return false }
func aliveAlways(int) bool { return true }

func TestCheckOnce_DeadStalePIDAlertsOnce(t *testing.T) {
	sink := &fakeSink{}
	c, reg := newChecker(sink, deadAlways)

	reg.Touch(42, at(0))

	fired := c.CheckOnce(context.Background(), at(1300))
	require.Equal(t, 1, fired)
	require.Len(t, sink.msgs, 1)
	assert.Contains(t, sink.msgs[0], "42")
	assert.Contains(t, sink.msgs[0], "1300s")
	assert.True(t, reg.IsDeadNotified(42))

	// Second cycle with no re-announcement: no further alert.
	fired = c.CheckOnce(context.Background(), at(1900))
	assert.Zero(t, fired)
	assert.Len(t, sink.msgs, 1)
}

func TestCheckOnce_FreshPIDIsSkipped(t *testing.T) {
	sink := &fakeSink{}
	c, reg := newChecker(sink, deadAlways)

	reg.Touch(42, at(0))

	// Age 1200s is exactly the threshold — not yet stale.
	assert.Zero(t, c.CheckOnce(context.Background(), at(1200)))
	assert.Empty(t, sink.msgs)
}

func TestCheckOnce_StaleButAliveIsLeftAlone(t *testing.T) {
	sink := &fakeSink{}
	c, reg := newChecker(sink, aliveAlways)

	reg.Touch(42, at(0))

	assert.Zero(t, c.CheckOnce(context.Background(), at(1300)))
	assert.Empty(t, sink.msgs)
	assert.False(t, reg.IsDeadNotified(42))

	// The entry is untouched and remains eligible for a later cycle.
	ts, ok := reg.LastSeen(42)
	require.True(t, ok)
	assert.Equal(t, at(0), ts)
}

func TestCheckOnce_ReannounceRearmsAlerting(t *testing.T) {
	sink := &fakeSink{}
	c, reg := newChecker(sink, deadAlways)

	reg.Touch(42, at(0))
	require.Equal(t, 1, c.CheckOnce(context.Background(), at(1300)))

	// The process restarts with the same PID and announces again.
	reg.Touch(42, at(1400))
	assert.False(t, reg.IsDeadNotified(42))

	// It goes silent and dies a second time → a second alert.
	fired := c.CheckOnce(context.Background(), at(2700))
	assert.Equal(t, 1, fired)
	assert.Len(t, sink.msgs, 2)
}

func TestCheckOnce_NotifyFailureStillMarks(t *testing.T) {
	sink := &fakeSink{err: errors.New("webhook down")}
	c, reg := newChecker(sink, deadAlways)

	reg.Touch(42, at(0))

	require.Equal(t, 1, c.CheckOnce(context.Background(), at(1300)))
	assert.True(t, reg.IsDeadNotified(42), "alert is attempted, dedup must hold")

	// Sink recovers; the PID must not be re-alerted.
	sink.err = nil
	assert.Zero(t, c.CheckOnce(context.Background(), at(1900)))

	h := c.History()
	require.Len(t, h, 1)
	assert.False(t, h[0].Delivered)
}

func TestCheckOnce_MixedRegistry(t *testing.T) {
	sink := &fakeSink{}
	deadSet := map[int]bool{100: true}
	c, reg := newChecker(sink, func(pid int) bool { return !deadSet[pid] })

	reg.Touch(100, at(0))    // stale and dead
	reg.Touch(200, at(0))    // stale but alive
	reg.Touch(300, at(1000)) // fresh

	fired := c.CheckOnce(context.Background(), at(1500))
	require.Equal(t, 1, fired)
	require.Len(t, sink.msgs, 1)
	assert.True(t, strings.Contains(sink.msgs[0], "100"))
}

func TestRun_StopsOnCancel(t *testing.T) {
	sink := &fakeSink{}
	reg := registry.New()
	c := New(reg, sink, 10*time.Millisecond, time.Hour, nil)
	c.alive = aliveAlways

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestHistory_IsBounded(t *testing.T) {
	sink := &fakeSink{}
	c, reg := newChecker(sink, deadAlways)

	for pid := 1; pid <= maxHistory+50; pid++ {
		reg.Touch(pid, at(0))
	}
	c.CheckOnce(context.Background(), at(5000))

	assert.Len(t, c.History(), maxHistory)
}
