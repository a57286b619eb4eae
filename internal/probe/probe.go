// Package probe answers one question: does a PID still exist at the OS
// level? It sends signal 0, which performs permission and existence checks
// without delivering anything.
package probe

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Alive reports whether pid currently names a live process.
//
// EPERM means the process exists but belongs to a different privilege
// domain — existence is all we need, so that counts as alive. Any outcome
// other than a definite ESRCH is also treated as alive: false negatives are
// preferred over false alarms.
//
// Known ambiguity: if the OS recycles a tracked PID for an unrelated
// process, Alive reports true and the original death is masked. The check
// is advisory, not a correctness-critical control path.
func Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true
	case errors.Is(err, unix.ESRCH):
		return false
	case errors.Is(err, unix.EPERM):
		return true
	default:
		return true
	}
}
