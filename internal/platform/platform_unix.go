//go:build !windows

package platform

import (
	"os"
	"os/exec"
	"syscall"
)

var terminationSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

// hideWindow is a no-op: Unix servers run without a window of their own.
func hideWindow(*exec.Cmd) {}
