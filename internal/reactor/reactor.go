package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/pidwatch/pidwatch/internal/fifo"
	"github.com/pidwatch/pidwatch/internal/lineio"
	"github.com/pidwatch/pidwatch/internal/metrics"
	"github.com/pidwatch/pidwatch/internal/registry"
)

const (
	// waitTimeoutMs bounds every multiplexer wait so cancellation is
	// noticed promptly even when no announcements arrive.
	waitTimeoutMs = 1000

	readChunk = 4096
)

// state is the reactor's lifecycle phase.
type state int

const (
	stateRunning state = iota
	stateReopening
	stateStopping
)

func (s state) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateReopening:
		return "reopening"
	case stateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Reactor is the single-threaded event loop that owns the announcement
// FIFO. It multiplexes over the read end, drains available bytes without
// blocking, assembles records, and touches the registry for every valid
// announcement. Hangup on the read end is self-healed by reopening it.
type Reactor struct {
	ch  *fifo.Channel
	reg *registry.Registry
	asm *lineio.Assembler
	met *metrics.Metrics

	epfd int
	now  func() time.Time
}

// New creates a Reactor over an already-open channel. met may be nil.
func New(ch *fifo.Channel, reg *registry.Registry, met *metrics.Metrics) *Reactor {
	return &Reactor{
		ch:   ch,
		reg:  reg,
		asm:  lineio.NewAssembler(),
		met:  met,
		epfd: -1,
		now:  time.Now,
	}
}

// Run drives the event loop until ctx is cancelled or the channel cannot be
// recovered. The channel is deregistered and closed before Run returns; a
// nil error means a clean, requested stop.
func (r *Reactor) Run(ctx context.Context) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("reactor: epoll_create: %w", err)
	}
	r.epfd = epfd
	defer r.shutdown()

	if err := r.register(); err != nil {
		return err
	}

	slog.Info("reactor: watching announcement channel",
		"path", r.ch.Path(), "state", stateRunning.String())

	events := make([]unix.EpollEvent, 4)
	for {
		if ctx.Err() != nil {
			slog.Info("reactor: stop requested", "state", stateStopping.String())
			return nil
		}

		n, err := unix.EpollWait(r.epfd, events, waitTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("reactor: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			ev := events[i]
			if int(ev.Fd) != r.ch.ReadFD() {
				continue
			}

			if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				if err := r.reopen(); err != nil {
					// Cannot self-heal without the underlying path.
					return err
				}
				continue
			}

			if ev.Events&unix.EPOLLIN != 0 {
				r.drain()
			}
		}
	}
}

// register adds the channel's read end to the epoll set. EPOLLHUP and
// EPOLLERR are always reported and need no explicit subscription, but are
// named for clarity.
func (r *Reactor) register() error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLHUP | unix.EPOLLERR,
		Fd:     int32(r.ch.ReadFD()),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, r.ch.ReadFD(), &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl add: %w", err)
	}
	return nil
}

// reopen recovers from hangup/error on the read end: deregister, close,
// open fresh, re-register. Announcements written during the window are
// lost; producers repeat on their next interval.
func (r *Reactor) reopen() error {
	slog.Warn("reactor: channel hangup, reopening read end",
		"path", r.ch.Path(), "state", stateReopening.String())

	// Deregistration errors are swallowed: the fd may already be invalid.
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, r.ch.ReadFD(), nil)

	if err := r.ch.ReopenRead(); err != nil {
		return fmt.Errorf("reactor: %w", err)
	}
	if err := r.register(); err != nil {
		return err
	}

	if r.met != nil {
		r.met.Reopens.Inc()
	}
	return nil
}

// drain reads until the descriptor would block, feeding every chunk to the
// assembler and every complete record into the registry.
func (r *Reactor) drain() {
	buf := make([]byte, readChunk)
	for {
		n, err := unix.Read(r.ch.ReadFD(), buf)
		switch {
		case err != nil:
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return // expected end of the drain loop, not an error
			}
			slog.Warn("reactor: read error, deferring to next poll", "err", err)
			return
		case n == 0:
			// EOF; the next wait reports HUP and triggers a reopen.
			return
		}

		for _, rec := range r.asm.Feed(buf[:n]) {
			r.handleRecord(rec)
		}
	}
}

func (r *Reactor) handleRecord(rec string) {
	pid, err := lineio.ParsePID(rec)
	if err != nil {
		slog.Warn("reactor: malformed announcement dropped", "record", rec)
		if r.met != nil {
			r.met.Malformed.Inc()
		}
		return
	}

	r.reg.Touch(pid, r.now())
	if r.met != nil {
		r.met.Announcements.Inc()
	}
	slog.Debug("reactor: announcement", "pid", pid)
}

// shutdown releases the epoll instance and both channel descriptors in a
// fixed order: deregister, close epoll, close channel.
func (r *Reactor) shutdown() {
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, r.ch.ReadFD(), nil)
	unix.Close(r.epfd)
	r.epfd = -1
	if err := r.ch.Close(); err != nil {
		slog.Warn("reactor: channel close", "err", err)
	}
}
