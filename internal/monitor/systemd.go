package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/pidwatch/pidwatch/internal/notify"
)

const (
	systemdDest    = "org.freedesktop.systemd1"
	systemdPath    = "/org/freedesktop/systemd1"
	managerIface   = "org.freedesktop.systemd1.Manager"
	unitIface      = "org.freedesktop.systemd1.Unit"
	propsIface     = "org.freedesktop.DBus.Properties"
	signalBufDepth = 16
)

// SystemdMonitor watches one systemd unit over D-Bus and notifies on every
// ActiveState transition, mirroring what `systemctl status` would show an
// operator who happened to be looking.
type SystemdMonitor struct {
	service  string
	notifier notify.Notifier

	// connect is injectable for tests.
	connect func() (*dbus.Conn, error)
}

// NewSystemdMonitor creates a monitor for the given unit name
// (e.g. "trading-engine.service").
func NewSystemdMonitor(service string, n notify.Notifier) *SystemdMonitor {
	return &SystemdMonitor{
		service:  service,
		notifier: n,
		connect: func() (*dbus.Conn, error) {
			return dbus.ConnectSystemBus()
		},
	}
}

// Run subscribes to the unit's PropertiesChanged signal and processes state
// transitions until ctx is cancelled.
func (m *SystemdMonitor) Run(ctx context.Context) error {
	conn, err := m.connect()
	if err != nil {
		return fmt.Errorf("monitor: connect system bus: %w", err)
	}
	defer conn.Close()

	manager := conn.Object(systemdDest, dbus.ObjectPath(systemdPath))

	var unitPath dbus.ObjectPath
	if err := manager.CallWithContext(ctx, managerIface+".GetUnit", 0, m.service).Store(&unitPath); err != nil {
		return fmt.Errorf("monitor: unit %q not found: %w", m.service, err)
	}

	unit := conn.Object(systemdDest, unitPath)
	prev, err := activeState(unit)
	if err != nil {
		return fmt.Errorf("monitor: read initial state: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(unitPath),
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("monitor: subscribe: %w", err)
	}

	signals := make(chan *dbus.Signal, signalBufDepth)
	conn.Signal(signals)

	slog.Info("monitor: watching systemd unit", "service", m.service, "state", prev)
	m.notify(ctx, fmt.Sprintf("systemd monitor started: %s is %s", m.service, prev))

	for {
		select {
		case <-ctx.Done():
			return nil

		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("monitor: bus connection lost")
			}
			state, found := changedActiveState(sig)
			if !found || state == prev {
				continue
			}

			slog.Info("monitor: unit state changed",
				"service", m.service, "from", prev, "to", state)
			m.notify(ctx, fmt.Sprintf("systemd unit %s changed state: %s -> %s",
				m.service, prev, state))

			if state == "failed" {
				m.notifyFailureDetail(ctx, unit)
			}
			prev = state
		}
	}
}

// notify delivers best-effort; a down sink only costs a log line.
func (m *SystemdMonitor) notify(ctx context.Context, text string) {
	if err := m.notifier.Notify(ctx, text); err != nil {
		slog.Warn("monitor: notify failed", "err", err)
	}
}

// notifyFailureDetail augments a failure transition with the unit's Result
// and ExecMainStatus, when readable.
func (m *SystemdMonitor) notifyFailureDetail(ctx context.Context, unit dbus.BusObject) {
	result, err1 := stringProp(unit, "org.freedesktop.systemd1.Service.Result")
	code, err2 := unit.GetProperty("org.freedesktop.systemd1.Service.ExecMainStatus")
	if err1 != nil || err2 != nil {
		slog.Warn("monitor: could not read failure details", "service", m.service)
		return
	}
	m.notify(ctx, fmt.Sprintf("systemd unit %s failed: result=%s exit_status=%v",
		m.service, result, code.Value()))
}

func activeState(unit dbus.BusObject) (string, error) {
	return stringProp(unit, unitIface+".ActiveState")
}

func stringProp(obj dbus.BusObject, name string) (string, error) {
	v, err := obj.GetProperty(name)
	if err != nil {
		return "", err
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("property %s is not a string", name)
	}
	return s, nil
}

// changedActiveState extracts ActiveState from a PropertiesChanged signal
// body, which carries (interface, changed, invalidated).
func changedActiveState(sig *dbus.Signal) (string, bool) {
	if len(sig.Body) < 2 {
		return "", false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return "", false
	}
	v, ok := changed["ActiveState"]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}
