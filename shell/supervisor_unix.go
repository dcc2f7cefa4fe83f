//go:build !windows

package shell

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so termination
// signals reach the whole process tree, not just the shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateProcessGroup(cmd *exec.Cmd) error {
	return signalProcessGroup(cmd, syscall.SIGTERM)
}

func killProcessGroup(cmd *exec.Cmd) error {
	return signalProcessGroup(cmd, syscall.SIGKILL)
}

func signalProcessGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		// Group lookup can fail if the child already exited; fall back to
		// signaling the process directly.
		return cmd.Process.Signal(sig)
	}
	return syscall.Kill(-pgid, sig)
}
