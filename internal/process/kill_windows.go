//go:build windows

package process

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// killTree terminates the server process with exit code 1.
func killTree(p *os.Process) error {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(p.Pid))
	if err != nil {
		// Already gone.
		return os.ErrProcessDone
	}
	defer func() { _ = windows.CloseHandle(h) }()
	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("terminate pid %d: %w", p.Pid, err)
	}
	return nil
}
