// Package registry holds the shared liveness state of the watch daemon:
// which PIDs have announced themselves, when each was last seen, and which
// have already been alerted as dead.
//
// The reactor loop writes (Touch), the liveness checker reads (Snapshot)
// and maintains the deduplication set (MarkDeadNotified / IsDeadNotified).
// All methods are safe for concurrent use; Touch never blocks on a running
// check cycle because the checker iterates its own point-in-time copy.
package registry
