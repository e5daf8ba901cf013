//go:build unix

package process

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalInterrupt resumes a possibly stopped group, then interrupts it.
func signalInterrupt(cmd *exec.Cmd) error {
	pgid := -cmd.Process.Pid
	_ = unix.Kill(pgid, unix.SIGCONT)
	return ignoreGone(unix.Kill(pgid, unix.SIGINT))
}

func signalKill(cmd *exec.Cmd) error {
	return ignoreGone(unix.Kill(-cmd.Process.Pid, unix.SIGKILL))
}

func ignoreGone(err error) error {
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
