package probe

import (
	"os"
	"os/exec"
	"testing"
)

func TestAlive_Self(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Error("Alive(self) = false, want true")
	}
}

func TestAlive_Init(t *testing.T) {
	// PID 1 always exists; as an unprivileged user the probe yields EPERM,
	// which must still count as alive.
	if !Alive(1) {
		t.Error("Alive(1) = false, want true")
	}
}

func TestAlive_ReapedChild(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run helper process: %v", err)
	}
	pid := cmd.Process.Pid

	// The child has exited and been reaped; its PID no longer exists
	// (barring an immediate recycle, which is vanishingly unlikely).
	if Alive(pid) {
		t.Errorf("Alive(%d) after child reaped = true, want false", pid)
	}
}
