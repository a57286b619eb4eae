// Package monitor watches externally supervised services and forwards their
// state transitions to a notifier. Two sources are supported: the
// supervisord eventlistener protocol over stdin/stdout, and systemd unit
// ActiveState changes over D-Bus.
package monitor
