//go:build !windows

package process

import (
	"errors"
	"os"
	"syscall"
)

// killTree sends SIGKILL to the server's process group, which also takes down
// helpers started by wrapper scripts. Falls back to the single process.
func killTree(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ESRCH) || errors.Is(err, syscall.EPERM) {
		return p.Kill()
	}
	return err
}
