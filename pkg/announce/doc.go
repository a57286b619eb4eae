// Package announce is the producer half of the PID watch protocol: a small
// library that monitored processes embed to write their PID to the watch
// FIFO on a fixed cadence. It has no dependency on the daemon internals so
// it can be vendored into any service.
package announce
