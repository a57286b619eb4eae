package registry

import (
	"sync"
	"testing"
	"time"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return baseTime.Add(time.Duration(sec) * time.Second) }

func TestTouch_LastWriteWins(t *testing.T) {
	r := New()
	r.Touch(42, at(0))
	r.Touch(42, at(10))
	r.Touch(42, at(5)) // out-of-order touch still overwrites

	ts, ok := r.LastSeen(42)
	if !ok {
		t.Fatal("LastSeen: expected entry for 42")
	}
	if !ts.Equal(at(5)) {
		t.Errorf("LastSeen = %v, want %v", ts, at(5))
	}
}

func TestSnapshot_SizeIsDistinctPIDs(t *testing.T) {
	r := New()
	for i := 0; i < 3; i++ {
		r.Touch(100, at(i))
		r.Touch(200, at(i))
	}
	r.Touch(300, at(0))

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Snapshot len = %d, want 3", len(snap))
	}
	// Sorted by PID.
	for i, want := range []int{100, 200, 300} {
		if snap[i].PID != want {
			t.Errorf("Snapshot[%d].PID = %d, want %d", i, snap[i].PID, want)
		}
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	r := New()
	r.Touch(1, at(0))

	snap := r.Snapshot()
	r.Touch(1, at(99))
	r.Touch(2, at(99))

	if len(snap) != 1 || !snap[0].LastSeen.Equal(at(0)) {
		t.Errorf("snapshot mutated by later touches: %+v", snap)
	}
}

func TestTouch_RearmsDeadNotified(t *testing.T) {
	r := New()
	r.Touch(42, at(0))
	r.MarkDeadNotified(42)

	if !r.IsDeadNotified(42) {
		t.Fatal("IsDeadNotified after mark: got false, want true")
	}

	r.Touch(42, at(100))
	if r.IsDeadNotified(42) {
		t.Error("IsDeadNotified after re-announce: got true, want false")
	}
}

func TestIsDeadNotified_UnknownPID(t *testing.T) {
	r := New()
	if r.IsDeadNotified(1234) {
		t.Error("IsDeadNotified on empty registry: got true, want false")
	}
}

func TestCounts(t *testing.T) {
	r := New()
	r.Touch(1, at(0))
	r.Touch(2, at(0))
	r.MarkDeadNotified(2)

	if got := r.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if got := r.DeadNotifiedCount(); got != 1 {
		t.Errorf("DeadNotifiedCount = %d, want 1", got)
	}
}

func TestConcurrentTouchAndSnapshot(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			r.Touch(n%5, at(n))
		}(i)
		go func() {
			defer wg.Done()
			r.Snapshot()
		}()
	}
	wg.Wait()

	if got := r.Count(); got != 5 {
		t.Errorf("Count after concurrent touches = %d, want 5", got)
	}
}

func TestConcurrentDedupSet(t *testing.T) {
	r := New()
	r.Touch(7, at(0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.MarkDeadNotified(7)
		}()
		go func() {
			defer wg.Done()
			r.IsDeadNotified(7)
		}()
	}
	wg.Wait()

	if !r.IsDeadNotified(7) {
		t.Error("IsDeadNotified after concurrent marks: got false, want true")
	}
}
