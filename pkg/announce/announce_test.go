package announce

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newFIFO(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watch.fifo")
	require.NoError(t, unix.Mkfifo(path, 0o660))
	return path
}

// openReader holds a nonblocking read end open so announcers find a listener.
func openReader(t *testing.T, path string) int {
	t.Helper()
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fd) })
	return fd
}

func TestAnnounceWritesPIDLine(t *testing.T) {
	path := newFIFO(t)
	fd := openReader(t, path)

	a := New(path)
	require.NoError(t, a.Announce())

	buf := make([]byte, 64)
	n, err := unix.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d\n", os.Getpid()), string(buf[:n]))
}

func TestPID(t *testing.T) {
	a := New("/nonexistent")
	assert.Equal(t, os.Getpid(), a.PID())
}

func TestAnnounceNoListener(t *testing.T) {
	path := newFIFO(t)

	err := New(path).Announce()
	assert.ErrorIs(t, err, ErrNoListener)
}

func TestAnnounceMissingFIFO(t *testing.T) {
	err := New(filepath.Join(t.TempDir(), "absent.fifo")).Announce()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoListener)
}

func TestRunAnnouncesPeriodically(t *testing.T) {
	path := newFIFO(t)
	fd := openReader(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		New(path).Run(ctx, 20*time.Millisecond)
		close(done)
	}()

	want := fmt.Sprintf("%d\n", os.Getpid())
	var got string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		buf := make([]byte, 256)
		n, err := unix.Read(fd, buf)
		if n > 0 && err == nil {
			got += string(buf[:n])
		}
		// Two records prove the ticker fired after the immediate announce.
		if len(got) >= 2*len(want) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	require.GreaterOrEqual(t, len(got), 2*len(want))
	assert.Equal(t, want, got[:len(want)])
}
