//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// setupCommand starts the test in its own process group so signals sent to
// the scheduler do not reach it.
func setupCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}
