// Package fifo manages the OS-level named pipe that external processes
// announce their PID through. It owns exactly one read descriptor and one
// self-held write descriptor at any time; the reactor loop is the only
// caller permitted to open, reopen, or close them.
package fifo
