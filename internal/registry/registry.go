package registry

import (
	"sort"
	"sync"
	"time"
)

// Entry is one tracked PID together with the time it was last announced.
type Entry struct {
	PID      int
	LastSeen time.Time
}

// Registry is the thread-safe shared state between the reactor loop and the
// liveness checker: a last-seen timestamp per announced PID plus the set of
// PIDs already alerted as dead.
//
// Entries are never evicted — staleness is determined by age, not removal,
// so the map grows with the number of distinct PIDs ever announced. For this
// workload (a handful of long-lived services re-announcing themselves) that
// is bounded in practice.
type Registry struct {
	mu           sync.RWMutex
	lastSeen     map[int]time.Time
	deadNotified map[int]struct{}
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		lastSeen:     make(map[int]time.Time),
		deadNotified: make(map[int]struct{}),
	}
}

// Touch records that pid was announced at now, overwriting any earlier
// timestamp. A touched PID is removed from the dead-notified set, so a
// restarted process that reuses a PID can be alerted again if it dies.
func (r *Registry) Touch(pid int, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen[pid] = now
	delete(r.deadNotified, pid)
}

// LastSeen returns the recorded timestamp for pid.
func (r *Registry) LastSeen(pid int) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.lastSeen[pid]
	return t, ok
}

// Snapshot returns a point-in-time copy of all entries, sorted by PID.
// The checker iterates the copy while the reactor keeps mutating the live map.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.lastSeen))
	for pid, ts := range r.lastSeen {
		out = append(out, Entry{PID: pid, LastSeen: ts})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}

// Count returns the number of tracked PIDs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lastSeen)
}

// MarkDeadNotified records that a dead alert has been attempted for pid.
// Until the PID is announced again, no further alert will be sent for it.
func (r *Registry) MarkDeadNotified(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadNotified[pid] = struct{}{}
}

// IsDeadNotified reports whether a dead alert is outstanding for pid.
func (r *Registry) IsDeadNotified(pid int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.deadNotified[pid]
	return ok
}

// DeadNotifiedCount returns the size of the dead-notified set.
func (r *Registry) DeadNotifiedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.deadNotified)
}
