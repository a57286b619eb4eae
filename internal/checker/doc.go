// Package checker is the periodic liveness pass of the watch daemon.
//
// Each cycle takes a point-in-time snapshot of the registry, skips PIDs
// announced within the staleness window, probes the rest for OS-level
// existence, and alerts through the configured notifier exactly once per
// death. The dead-notified set in the registry deduplicates alerts until
// the PID is announced again.
package checker
