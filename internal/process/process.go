package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/loykin/srcdsmon/internal/platform"
)

var ErrNotStarted = errors.New("process not started")

// waitDelay bounds how long Wait keeps copying output after the server exits.
// Grandchildren that inherited stdout would otherwise hold it open.
const waitDelay = 2 * time.Second

// Process is a handle to one running server. Exactly one goroutine waits on
// the child; Done is closed when it has exited and all output is flushed.
type Process struct {
	spec      Spec
	cmd       *exec.Cmd
	mu        sync.Mutex
	status    Status
	outCloser io.WriteCloser
	errCloser io.WriteCloser
	done      chan struct{}
}

// Start spawns the server described by spec.
func Start(spec Spec) (*Process, error) {
	return start(spec, platform.Native())
}

// StartWith is Start with explicit platform capabilities.
func StartWith(spec Spec, caps platform.Capabilities) (*Process, error) {
	return start(spec, caps)
}

func start(spec Spec, caps platform.Capabilities) (*Process, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.workDir()
	cmd.WaitDelay = waitDelay
	configureSysProcAttr(cmd)
	if spec.HideWindow && caps != nil {
		caps.HideChildWindow(cmd)
	}

	p := &Process{spec: spec, done: make(chan struct{})}
	if err := p.wireOutput(cmd); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		p.closeLogs()
		return nil, fmt.Errorf("start %s: %w", spec.Path, err)
	}

	p.mu.Lock()
	p.cmd = cmd
	p.status = Status{
		Name:      spec.logName(),
		Running:   true,
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
	}
	p.mu.Unlock()

	go p.wait()
	return p, nil
}

// wireOutput sends stdout/stderr to rotated files when capture is configured.
// Otherwise exec connects them to the null device.
func (p *Process) wireOutput(cmd *exec.Cmd) error {
	if p.spec.Log.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(p.spec.Log.Dir, 0o750); err != nil {
		return fmt.Errorf("create server log dir: %w", err)
	}
	outW, errW, err := p.spec.Log.Writers(p.spec.logName())
	if err != nil {
		return err
	}
	p.outCloser, p.errCloser = outW, errW
	if outW != nil {
		cmd.Stdout = outW
	}
	if errW != nil {
		cmd.Stderr = errW
	}
	return nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.status.Running = false
	p.status.StoppedAt = time.Now()
	p.status.ExitErr = err
	p.mu.Unlock()
	p.closeLogs()
	close(p.done)
}

func (p *Process) closeLogs() {
	if p.outCloser != nil {
		_ = p.outCloser.Close()
	}
	if p.errCloser != nil {
		_ = p.errCloser.Close()
	}
}

// Done is closed once the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Alive reports whether the process has not exited yet.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the process exits or timeout elapses and reports whether it exited.
func (p *Process) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-p.done
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-p.done:
		return true
	case <-t.C:
		return false
	}
}

// Kill force-terminates the process and its children. Killing an already
// exited process is not an error.
func (p *Process) Kill() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return ErrNotStarted
	}
	if !p.Alive() {
		return nil
	}
	err := killTree(cmd.Process)
	if err != nil && (errors.Is(err, os.ErrProcessDone) || !p.Alive()) {
		return nil
	}
	return err
}

func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.PID
}

func (p *Process) StartedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.StartedAt
}

// Uptime is the time since start, or the total run time once exited.
func (p *Process) Uptime(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.status.StoppedAt.IsZero() {
		return p.status.StoppedAt.Sub(p.status.StartedAt)
	}
	return now.Sub(p.status.StartedAt)
}

// ExitErr is the error returned by Wait, nil while running or after a clean exit.
func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status.ExitErr
}

func (p *Process) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Process) Spec() Spec { return p.spec }
