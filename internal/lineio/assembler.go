package lineio

import (
	"bytes"
	"errors"
	"strconv"
)

// maxPending caps the internal buffer. A writer that streams bytes without
// ever sending a newline would otherwise grow the buffer unboundedly; when
// the cap is hit the buffered prefix is discarded and counted as dropped.
const maxPending = 64 * 1024

// ErrNotAnnouncement is returned by ParsePID for records that are not a
// positive decimal integer.
var ErrNotAnnouncement = errors.New("lineio: record is not a positive integer")

// Assembler turns an arbitrary sequence of byte chunks into complete
// newline-terminated records. Partial trailing data is carried over to the
// next Feed call, so records may span any number of reads.
type Assembler struct {
	buf     []byte
	dropped int
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Feed appends p to the internal buffer and returns every complete record
// now available, in arrival order. Records are trimmed of surrounding
// whitespace; lines that are empty after trimming are skipped.
func (a *Assembler) Feed(p []byte) []string {
	a.buf = append(a.buf, p...)

	var out []string
	for {
		nl := bytes.IndexByte(a.buf, '\n')
		if nl < 0 {
			break
		}
		line := bytes.TrimSpace(a.buf[:nl])
		a.buf = a.buf[nl+1:]
		if len(line) == 0 {
			continue
		}
		out = append(out, string(line))
	}

	if len(a.buf) > maxPending {
		a.dropped += len(a.buf)
		a.buf = nil
	}
	// Release the backing array once fully drained so a large burst does
	// not pin memory.
	if len(a.buf) == 0 {
		a.buf = nil
	}
	return out
}

// Pending returns the number of buffered bytes awaiting a newline.
func (a *Assembler) Pending() int { return len(a.buf) }

// Dropped returns the total number of bytes discarded by the safety cap.
func (a *Assembler) Dropped() int { return a.dropped }

// ParsePID parses a record as a PID announcement. A valid announcement is a
// positive decimal integer; anything else is malformed.
func ParsePID(record string) (int, error) {
	pid, err := strconv.Atoi(record)
	if err != nil || pid <= 0 {
		return 0, ErrNotAnnouncement
	}
	return pid, nil
}
