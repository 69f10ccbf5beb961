//go:build windows

package spotdl

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// configureProcess keeps a console window from flashing up for every track.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
}

// Windows has no SIGTERM for console-less children.
func interruptProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func killProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
