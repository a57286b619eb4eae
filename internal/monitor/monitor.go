package monitor

import (
	"context"
	"fmt"
	"os"

	"github.com/pidwatch/pidwatch/internal/config"
	"github.com/pidwatch/pidwatch/internal/notify"
)

// Mode selects the service-event source. The set is closed: adding a mode
// means adding a case to New, not registering at runtime.
type Mode string

const (
	ModeSupervisor Mode = "supervisor"
	ModeSystemd    Mode = "systemd"
)

// Runner is one monitor variant's event loop.
type Runner interface {
	Run(ctx context.Context) error
}

// New builds the monitor for the given mode.
func New(mode Mode, n notify.Notifier, cfg config.MonitorConfig) (Runner, error) {
	switch mode {
	case ModeSupervisor:
		return NewSupervisorListener(os.Stdin, os.Stdout, n), nil
	case ModeSystemd:
		if cfg.Service == "" {
			return nil, fmt.Errorf("monitor: systemd mode requires a service name")
		}
		return NewSystemdMonitor(cfg.Service, n), nil
	default:
		return nil, fmt.Errorf("monitor: unknown mode %q", mode)
	}
}
