package reactor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/pidwatch/pidwatch/internal/fifo"
	"github.com/pidwatch/pidwatch/internal/registry"
)

// startReactor spins up a reactor over a fresh FIFO and returns the fifo
// path, the registry, and a cancel that waits for Run to return.
func startReactor(t *testing.T) (string, *registry.Registry, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "watch.fifo")
	if err := fifo.Ensure(path); err != nil {
		t.Fatal(err)
	}
	ch, err := fifo.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	r := New(ch, reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after cancel")
		}
	}
	return path, reg, stop
}

// announce writes lines to the fifo through a short-lived producer fd.
func announce(t *testing.T, path, data string) {
	t.Helper()
	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open producer end: %v", err)
	}
	defer w.Close()
	if _, err := w.WriteString(data); err != nil {
		t.Fatal(err)
	}
}

// waitTracked polls until pid appears in the registry or the deadline hits.
func waitTracked(t *testing.T, reg *registry.Registry, pid int) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if _, ok := reg.LastSeen(pid); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("pid %d never appeared in registry", pid)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRun_RegistersAnnouncements(t *testing.T) {
	path, reg, stop := startReactor(t)
	defer stop()

	announce(t, path, "1234\n5678\n")

	waitTracked(t, reg, 1234)
	waitTracked(t, reg, 5678)

	if got := reg.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestRun_MalformedLinesAreDropped(t *testing.T) {
	path, reg, stop := startReactor(t)
	defer stop()

	announce(t, path, "abc\n-12\n999\n")
	waitTracked(t, reg, 999)

	if got := reg.Count(); got != 1 {
		t.Errorf("Count = %d, want only the valid announcement", got)
	}
}

func TestRun_SplitAnnouncementAcrossWrites(t *testing.T) {
	path, reg, stop := startReactor(t)
	defer stop()

	announce(t, path, "55")
	announce(t, path, "66\n")

	waitTracked(t, reg, 5566)
}

func TestRun_SurvivesProducerHangup(t *testing.T) {
	path, reg, stop := startReactor(t)
	defer stop()

	// First producer generation: announce and close (announce closes the
	// write end, which is one hangup-ish transition the reactor may see).
	announce(t, path, "111\n")
	waitTracked(t, reg, 111)

	// Give the loop time to process any HUP and reopen.
	time.Sleep(100 * time.Millisecond)

	// A later producer generation must still get through.
	announce(t, path, "222\n")
	waitTracked(t, reg, 222)
}

// Drives the hangup recovery path directly: after reopen swaps in a fresh
// read end, a new announcement must still reach the registry.
func TestReopen_AnnouncementLandsOnFreshReadEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.fifo")
	if err := fifo.Ensure(path); err != nil {
		t.Fatal(err)
	}
	ch, err := fifo.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	reg := registry.New()
	r := New(ch, reg, nil)

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		t.Fatal(err)
	}
	r.epfd = epfd
	defer r.shutdown()

	if err := r.register(); err != nil {
		t.Fatal(err)
	}
	if err := r.reopen(); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if ch.ReadFD() < 0 {
		t.Fatal("reopen did not produce a usable read end")
	}

	announce(t, path, "777\n")

	events := make([]unix.EpollEvent, 4)
	for {
		n, err := unix.EpollWait(epfd, events, 2000)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			t.Fatalf("epoll_wait: %v", err)
		}
		if n == 0 {
			t.Fatal("no readable event on the reopened read end")
		}
		break
	}
	r.drain()

	if _, ok := reg.LastSeen(777); !ok {
		t.Fatal("announcement after reopen not registered")
	}
}

func TestRun_CleanStopWithNoTraffic(t *testing.T) {
	_, _, stop := startReactor(t)
	// Immediate stop: Run must exit within the bounded wait, no deadlock.
	stop()
}
