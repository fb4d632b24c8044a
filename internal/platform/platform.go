// Package platform isolates OS-specific behaviour the supervisor can live without.
package platform

import (
	"os"
	"os/exec"
	"os/signal"
	"sync"
)

// Capabilities are optional OS hooks. Implementations may no-op.
type Capabilities interface {
	// HideChildWindow keeps the spawned server from opening a visible window.
	HideChildWindow(cmd *exec.Cmd)
	// OnTerminationSignal calls fn once when the host asks the monitor to exit.
	// The returned func unregisters the handler.
	OnTerminationSignal(fn func()) (stop func())
}

// Native returns the capabilities of the build target.
func Native() Capabilities { return native{} }

// Noop implements Capabilities without touching the OS.
type Noop struct{}

func (Noop) HideChildWindow(*exec.Cmd) {}

func (Noop) OnTerminationSignal(func()) func() { return func() {} }

type native struct{}

func (native) HideChildWindow(cmd *exec.Cmd) { hideWindow(cmd) }

func (native) OnTerminationSignal(fn func()) func() {
	return notifyOnce(fn, signal.Notify, signal.Stop)
}

// notifyOnce unregisters the channel as soon as the first signal arrives, so a
// second signal during a slow shutdown gets the default behaviour again.
func notifyOnce(fn func(), notify func(chan<- os.Signal, ...os.Signal), unregister func(chan<- os.Signal)) func() {
	ch := make(chan os.Signal, 1)
	notify(ch, terminationSignals...)
	done := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { unregister(ch) }) }
	go func() {
		select {
		case <-ch:
			release()
			fn()
		case <-done:
		}
	}()
	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			release()
			close(done)
		})
	}
}
