package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loykin/srcdsmon/internal/config"
	"github.com/loykin/srcdsmon/internal/process"
	"github.com/loykin/srcdsmon/internal/rcon"
)

type fakeHandle struct {
	pid     int
	started time.Time
	done    chan struct{}
	once    sync.Once
	killed  atomic.Bool
}

func newFakeHandle(pid int) *fakeHandle {
	return &fakeHandle{pid: pid, started: time.Now(), done: make(chan struct{})}
}

func (h *fakeHandle) exit() { h.once.Do(func() { close(h.done) }) }

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *fakeHandle) Kill() error {
	h.killed.Store(true)
	h.exit()
	return nil
}

func (h *fakeHandle) Wait(timeout time.Duration) bool {
	select {
	case <-h.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (h *fakeHandle) PID() int             { return h.pid }
func (h *fakeHandle) StartedAt() time.Time { return h.started }

// fakeLauncher records every spec and hands out fake handles.
type fakeLauncher struct {
	mu      sync.Mutex
	specs   []process.Spec
	handles []*fakeHandle
	fail    error
}

func (l *fakeLauncher) launch(spec process.Spec) (Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return nil, l.fail
	}
	h := newFakeHandle(1000 + len(l.handles))
	l.specs = append(l.specs, spec)
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

func (l *fakeLauncher) spec(i int) process.Spec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.specs[i]
}

func (l *fakeLauncher) handle(i int) *fakeHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handles[i]
}

func (l *fakeLauncher) alive() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, h := range l.handles {
		if h.Alive() {
			n++
		}
	}
	return n
}

// fakeRCON records commands; the first unreachable calls fail.
type fakeRCON struct {
	mu          sync.Mutex
	cmds        []string
	unreachable int
}

func (c *fakeRCON) SendCommand(_ context.Context, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cmds = append(c.cmds, text)
	if c.unreachable > 0 {
		c.unreachable--
		return "", fmt.Errorf("%w: refused", rcon.ErrUnreachable)
	}
	return "", nil
}

func (c *fakeRCON) commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cmds...)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testServerConfig() *config.ServerConfig {
	return config.NewServerConfig([]config.Param{
		{Key: config.KeyExecutable, Value: "/srv/srcds/srcds_run"},
		{Key: config.KeyGameRoot, Value: "/srv/srcds/tf"},
		{Key: config.KeyGame, Value: "myserver"},
		{Key: "sv_lan", Value: "0"},
	}, []string{"+maxplayers 24"}, []string{"+map ctf_2fort"})
}

func testMonitor() config.MonitorConfig {
	return config.MonitorConfig{
		PollInterval: 10 * time.Millisecond,
		GracePeriod:  120 * time.Second,
		StopTimeout:  time.Second,
	}
}

type harness struct {
	sup  *Supervisor
	l    *fakeLauncher
	rc   *fakeRCON
	logs *syncBuffer
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{l: &fakeLauncher{}, rc: &fakeRCON{}, logs: &syncBuffer{}}
	opts := Options{
		Store:    config.NewStore(testServerConfig()),
		RCON:     h.rc,
		Password: "abc123def456",
		Monitor:  testMonitor(),
		Launch:   h.l.launch,
		Logger:   slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.sup = New(opts)
	t.Cleanup(h.sup.Shutdown)
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.sup.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}
