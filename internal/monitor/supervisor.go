package monitor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pidwatch/pidwatch/internal/notify"
)

// eventsOfInterest are the supervisord process-state transitions worth an
// operator alert.
var eventsOfInterest = map[string]struct{}{
	"PROCESS_STATE_EXITED":  {},
	"PROCESS_STATE_FATAL":   {},
	"PROCESS_STATE_BACKOFF": {},
	"PROCESS_STATE_STOPPED": {},
}

// SupervisorListener speaks the supervisord eventlistener protocol: it
// writes READY, reads one header line plus a length-prefixed payload per
// event, and acknowledges with RESULT. Events of interest are forwarded to
// the notifier.
type SupervisorListener struct {
	in       *bufio.Reader
	out      io.Writer
	notifier notify.Notifier
}

// NewSupervisorListener creates a listener over the given streams. In
// production these are stdin/stdout, which is how supervisord attaches an
// eventlistener.
func NewSupervisorListener(in io.Reader, out io.Writer, n notify.Notifier) *SupervisorListener {
	return &SupervisorListener{
		in:       bufio.NewReader(in),
		out:      out,
		notifier: n,
	}
}

// Run processes events until the input stream closes (supervisord shutting
// down) or ctx is cancelled between events.
func (l *SupervisorListener) Run(ctx context.Context) error {
	slog.Info("monitor: supervisor eventlistener started")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := io.WriteString(l.out, "READY\n"); err != nil {
			return fmt.Errorf("monitor: write READY: %w", err)
		}

		header, err := l.in.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				slog.Info("monitor: supervisor closed the event stream")
				return nil
			}
			return fmt.Errorf("monitor: read header: %w", err)
		}

		hdrs := parseTokens(header)
		length, _ := strconv.Atoi(hdrs["len"])

		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(l.in, payload); err != nil {
				return fmt.Errorf("monitor: read payload: %w", err)
			}
		}

		l.handleEvent(ctx, hdrs["eventname"], string(payload))

		if _, err := io.WriteString(l.out, "RESULT 2\nOK"); err != nil {
			return fmt.Errorf("monitor: write RESULT: %w", err)
		}
	}
}

// handleEvent notifies for events of interest; everything else is dropped.
func (l *SupervisorListener) handleEvent(ctx context.Context, event, payload string) {
	if _, ok := eventsOfInterest[event]; !ok {
		slog.Debug("monitor: ignoring event", "event", event)
		return
	}

	// The payload's first line is space-separated key:value fields; any
	// following lines are event-specific data we do not need.
	kvline, _, _ := strings.Cut(payload, "\n")
	fields := parseTokens(kvline)

	text := fmt.Sprintf("%s %s:%s pid=%s from_state=%s expected=%s",
		event,
		orUnknown(fields["groupname"]),
		orUnknown(fields["processname"]),
		orUnknown(fields["pid"]),
		orUnknown(fields["from_state"]),
		orUnknown(fields["expected"]),
	)

	if err := l.notifier.Notify(ctx, text); err != nil {
		slog.Warn("monitor: notify failed", "event", event, "err", err)
	}
}

// parseTokens splits a supervisord "k1:v1 k2:v2 ..." line into a map.
// Tokens without a colon-separated value are skipped.
func parseTokens(line string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(line) {
		k, v, ok := strings.Cut(tok, ":")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
