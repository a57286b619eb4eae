// Package api is the operator-facing JSON surface of the watch daemon:
// current watch health, the tracked PID list with per-entry staleness, and
// the alert history. Read-only; announcements only ever arrive through the
// FIFO.
package api
