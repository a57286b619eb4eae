// Package reactor implements the daemon's I/O event loop: an epoll
// multiplexer over the announcement FIFO's read end with a bounded wait,
// a non-blocking drain, and self-healing reopen on hangup.
//
// The reactor is the exclusive owner of the channel descriptors. It runs as
// one goroutine and communicates with the liveness checker only through the
// shared registry.
package reactor
