package fifo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// channelMode is the permission set for a freshly created FIFO: owner and
// group may announce, others may not.
const channelMode = 0o660

// ErrNotFIFO is returned by Ensure when the path exists but is occupied by
// something other than a named pipe. This cannot be self-healed.
var ErrNotFIFO = errors.New("fifo: path exists and is not a FIFO")

// Channel owns the two file descriptors on the announcement FIFO: the
// non-blocking read end the reactor drains, and a write end that is never
// written to. The self-held writer keeps the read end from reporting
// end-of-stream whenever the last external announcer closes its side.
type Channel struct {
	path    string
	readFD  int
	writeFD int
}

// Ensure creates the FIFO at path if it does not exist, including parent
// directories. If path is occupied by a non-FIFO object, Ensure returns
// ErrNotFIFO — callers treat that as fatal.
func Ensure(path string) error {
	var st unix.Stat_t
	err := unix.Stat(path, &st)
	switch {
	case err == nil:
		if st.Mode&unix.S_IFMT != unix.S_IFIFO {
			return fmt.Errorf("%w: %s", ErrNotFIFO, path)
		}
		return nil
	case errors.Is(err, unix.ENOENT):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("fifo: create parent dir: %w", err)
		}
		if err := unix.Mkfifo(path, channelMode); err != nil {
			return fmt.Errorf("fifo: mkfifo %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("fifo: stat %s: %w", path, err)
	}
}

// Open opens both ends of the FIFO at path in non-blocking mode.
//
// Opening O_RDONLY|O_NONBLOCK succeeds immediately even with no writer
// attached; the subsequent O_WRONLY|O_NONBLOCK open succeeds because our own
// read end already exists.
func Open(path string) (*Channel, error) {
	rfd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("fifo: open read end %s: %w", path, err)
	}
	wfd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		unix.Close(rfd)
		return nil, fmt.Errorf("fifo: open write end %s: %w", path, err)
	}
	return &Channel{path: path, readFD: rfd, writeFD: wfd}, nil
}

// ReadFD returns the descriptor of the read end.
func (c *Channel) ReadFD() int { return c.readFD }

// Path returns the filesystem path of the FIFO.
func (c *Channel) Path() string { return c.path }

// ReopenRead closes the current read end (best effort) and opens a fresh
// one. Called after the multiplexer reports hangup or error on the read
// descriptor; the self-held write end is kept as-is. Announcements written
// between close and reopen are lost, which is accepted.
func (c *Channel) ReopenRead() error {
	unix.Close(c.readFD) // closing errors are swallowed
	rfd, err := unix.Open(c.path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("fifo: reopen read end %s: %w", c.path, err)
	}
	c.readFD = rfd
	return nil
}

// Close releases both descriptors, read end first.
func (c *Channel) Close() error {
	var first error
	if err := unix.Close(c.readFD); err != nil {
		first = err
	}
	if err := unix.Close(c.writeFD); err != nil && first == nil {
		first = err
	}
	return first
}

