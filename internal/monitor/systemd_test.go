package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidwatch/pidwatch/internal/notify"
)

func TestNewSystemdMonitorDefaults(t *testing.T) {
	m := NewSystemdMonitor("engine.service", notify.Nop{})
	require.NotNil(t, m.connect)
	assert.Equal(t, "engine.service", m.service)
}

func TestSystemdMonitorConnectFailure(t *testing.T) {
	m := NewSystemdMonitor("engine.service", notify.Nop{})
	m.connect = func() (*dbus.Conn, error) {
		return nil, errors.New("no bus available")
	}

	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect system bus")
}

func TestChangedActiveState(t *testing.T) {
	sig := func(body ...any) *dbus.Signal { return &dbus.Signal{Body: body} }

	s, ok := changedActiveState(sig(
		"org.freedesktop.systemd1.Unit",
		map[string]dbus.Variant{"ActiveState": dbus.MakeVariant("failed")},
		[]string{},
	))
	require.True(t, ok)
	assert.Equal(t, "failed", s)

	_, ok = changedActiveState(sig(
		"org.freedesktop.systemd1.Unit",
		map[string]dbus.Variant{"SubState": dbus.MakeVariant("dead")},
		[]string{},
	))
	assert.False(t, ok)

	_, ok = changedActiveState(sig("short"))
	assert.False(t, ok)
}
