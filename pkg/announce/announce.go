package announce

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// ErrNoListener is returned when no watcher currently holds the FIFO open
// for reading. Producers typically log it and try again next interval.
var ErrNoListener = errors.New("announce: no listener on fifo")

// Announcer periodically writes this process's PID to a watch FIFO so the
// watcher daemon knows it is still alive.
type Announcer struct {
	path string
	line []byte
}

// New creates an announcer for the FIFO at path. The PID is captured once;
// an announcer must not be carried across fork.
func New(path string) *Announcer {
	return &Announcer{
		path: path,
		line: []byte(strconv.Itoa(os.Getpid()) + "\n"),
	}
}

// PID returns the process ID this announcer reports.
func (a *Announcer) PID() int {
	pid, _ := strconv.Atoi(string(a.line[:len(a.line)-1]))
	return pid
}

// Announce writes one PID record. The FIFO is opened non-blocking per call
// so a stopped watcher never stalls the producer; ErrNoListener is returned
// when the open fails with ENXIO.
func (a *Announcer) Announce() error {
	fd, err := unix.Open(a.path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return ErrNoListener
		}
		return fmt.Errorf("announce: open %s: %w", a.path, err)
	}
	defer unix.Close(fd)

	// A PID line is far below PIPE_BUF, so the write is atomic and either
	// lands whole or not at all.
	if _, err := unix.Write(fd, a.line); err != nil {
		return fmt.Errorf("announce: write %s: %w", a.path, err)
	}
	return nil
}

// Run announces immediately and then once per interval until ctx is
// cancelled. Individual delivery failures are ignored; Run only stops on
// cancellation.
func (a *Announcer) Run(ctx context.Context, interval time.Duration) {
	a.Announce() //nolint:errcheck

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.Announce() //nolint:errcheck
		}
	}
}
