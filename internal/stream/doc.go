// Package stream pushes live watch state to operator dashboards over
// WebSocket. One goroutine ticks the broadcast; each client gets a buffered
// send queue and is dropped if it falls behind.
package stream
