//go:build windows

package shell

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// Windows has no cross-process SIGTERM equivalent, so the graceful phase and
// the kill phase both use Kill.
func terminateProcessGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func killProcessGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
