// Package supervisor owns the lifecycle of the game server process: starting
// it, stopping it politely, detecting crashes and restarting it.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kballard/go-shellquote"
	"github.com/loykin/srcdsmon/internal/config"
	"github.com/loykin/srcdsmon/internal/detector"
	"github.com/loykin/srcdsmon/internal/history"
	"github.com/loykin/srcdsmon/internal/logger"
	"github.com/loykin/srcdsmon/internal/metrics"
	"github.com/loykin/srcdsmon/internal/platform"
	"github.com/loykin/srcdsmon/internal/process"
	"github.com/loykin/srcdsmon/internal/rcon"
)

// Log messages emitted after an automatic restart.
const (
	MsgRestartedAfterCrash = "Restarted server due to an unexpected crash or freeze!"
	MsgRestarted           = "Restarted server!"
)

// Restart reasons used in metrics and history.
const (
	ReasonCrash     = "crash"
	ReasonRequested = "requested"
	ReasonExited    = "exited"
)

// Handle is a running server as seen by the supervisor.
type Handle interface {
	Done() <-chan struct{}
	Alive() bool
	Kill() error
	Wait(timeout time.Duration) bool
	PID() int
	StartedAt() time.Time
}

// Launcher spawns a server process.
type Launcher func(spec process.Spec) (Handle, error)

// CrashDetector decides on each tick whether the active server has crashed.
type CrashDetector interface {
	Detect(ctx context.Context, in detector.Input) detector.Result
}

type Options struct {
	Store    *config.Store
	RCON     rcon.Client
	Password string
	// Port is passed as +port on every launch. It must match the port RCON
	// dials; empty takes the port of the initial config.
	Port       string
	Detector   CrashDetector
	Monitor    config.MonitorConfig
	ProcessLog logger.ProcessConfig
	Platform   platform.Capabilities
	Launch     Launcher
	History    *history.Recorder
	Logger     *slog.Logger
	Now        func() time.Time
}

// Supervisor is constructed once and shared by the monitor loop and the console.
// mu guards the active handle, the crash flag and the state; the shutdown flag
// only ever goes from false to true.
type Supervisor struct {
	opts   Options
	log    *slog.Logger
	launch Launcher
	now    func() time.Time

	mu        sync.Mutex
	active    Handle
	crashFlag bool
	state     State
	runID     string
	args      []string
	restarts  int
	crashes   int
	lastCrash string

	shutdown     atomic.Bool
	shutdownOnce sync.Once
	closed       chan struct{}
	exits        chan Handle

	events     chan history.Event
	eventsDone chan struct{}
	eventsOff  bool
}

func New(opts Options) *Supervisor {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Store != nil {
		log = log.With("game", opts.Store.Load().Game())
		if opts.Port == "" {
			opts.Port = opts.Store.Load().Port()
		}
	}
	s := &Supervisor{
		opts:   opts,
		log:    log,
		launch: opts.Launch,
		now:    opts.Now,
		closed: make(chan struct{}),
		exits:  make(chan Handle, 8),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.launch == nil {
		caps := opts.Platform
		if caps == nil {
			caps = platform.Native()
		}
		s.launch = func(spec process.Spec) (Handle, error) {
			p, err := process.StartWith(spec, caps)
			if err != nil {
				return nil, err
			}
			return p, nil
		}
	}
	if opts.History != nil {
		s.events = make(chan history.Event, 64)
		s.eventsDone = make(chan struct{})
		go s.recordLoop()
	}
	for _, st := range allStates {
		metrics.SetCurrentState(st.String(), st == StateStopped)
	}
	return s
}

// Start launches the server unless shutdown was requested. It returns true
// without spawning when a server is already active.
func (s *Supervisor) Start() bool {
	s.mu.Lock()
	ok := s.startLocked()
	s.mu.Unlock()
	if ok {
		s.settle()
	}
	return ok
}

func (s *Supervisor) startLocked() bool {
	if s.shutdown.Load() {
		return false
	}
	if s.active != nil && s.active.Alive() {
		return true
	}
	sc := s.opts.Store.Load()
	spec, err := buildSpec(sc, s.opts.Port, s.opts.Password, s.crashFlag, s.opts.ProcessLog)
	if err != nil {
		s.log.Error("cannot build server command line", "error", err)
		return false
	}

	s.setStateLocked(StateStarting)
	h, err := s.launch(spec)
	if err != nil {
		s.log.Error("failed to start server", "path", spec.Path, "error", err)
		s.setStateLocked(StateStopped)
		return false
	}

	s.active = h
	s.runID = uuid.NewString()
	s.args = spec.Args
	s.setStateLocked(StateRunning)
	metrics.IncStart()
	s.log.Info("server started", "pid", h.PID(), "run_id", s.runID, "crash_options", s.crashFlag)
	s.emitLocked(history.Event{
		Type:  history.EventStart,
		RunID: s.runID,
		PID:   h.PID(),
		Args:  shellquote.Join(spec.Args...),
	})
	go s.watch(h)
	return true
}

// watch forwards h's exit to the monitor loop.
func (s *Supervisor) watch(h Handle) {
	select {
	case <-h.Done():
	case <-s.closed:
		return
	}
	select {
	case s.exits <- h:
	case <-s.closed:
	}
}

func (s *Supervisor) settle() {
	if d := s.opts.Monitor.SettleDelay; d > 0 {
		time.Sleep(d)
	}
}

// Stop shuts the active server down: "disconnect", "quit", then a forced kill.
// crashed decides whether the next start appends crash-restart options. It
// reports whether a server was active.
func (s *Supervisor) Stop(crashed bool) bool {
	reason := ReasonRequested
	if crashed {
		reason = ReasonCrash
	}
	return s.stop(nil, crashed, reason)
}

// stop runs the whole sequence under the lock. With expect set it only acts
// when expect is still the active handle.
func (s *Supervisor) stop(expect Handle, crashed bool, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.active
	if h == nil || (expect != nil && h != expect) {
		return false
	}

	s.crashFlag = crashed
	if crashed {
		s.crashes++
		s.lastCrash = reason
		s.setStateLocked(StateCrashed)
		metrics.IncCrash(reason)
		s.emitLocked(history.Event{Type: history.EventCrash, RunID: s.runID, PID: h.PID(), Reason: reason})
	} else {
		s.setStateLocked(StateStopped)
	}

	s.sendQuiet("disconnect")
	s.pause(s.opts.Monitor.StopStepDelay)
	s.sendQuiet("quit")
	s.pause(s.opts.Monitor.StopStepDelay)

	if err := h.Kill(); err != nil {
		s.log.Debug("kill after quit", "pid", h.PID(), "error", err)
	}
	if !h.Wait(s.opts.Monitor.StopTimeout) {
		s.log.Warn("server did not exit after kill", "pid", h.PID(), "timeout", s.opts.Monitor.StopTimeout)
	}
	s.active = nil
	s.emitLocked(history.Event{Type: history.EventStop, RunID: s.runID, PID: h.PID(), Reason: reason})
	metrics.ResetResources()
	return true
}

func (s *Supervisor) sendQuiet(cmd string) {
	if s.opts.RCON == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.rconTimeout())
	defer cancel()
	if _, err := s.opts.RCON.SendCommand(ctx, cmd); err != nil {
		s.log.Debug("rcon command failed during stop", "command", cmd, "error", err)
	}
}

func (s *Supervisor) rconTimeout() time.Duration {
	if d := s.opts.Monitor.StopTimeout; d > 0 {
		return d
	}
	return rcon.DefaultTimeout
}

func (s *Supervisor) pause(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Restart stops the active server; the monitor loop starts the next one when
// the exit is observed. With nothing running it starts a server directly.
func (s *Supervisor) Restart() bool {
	if s.Stop(false) {
		return true
	}
	return s.Start()
}

// Run is the monitor loop. It polls the crash detector and handles process
// exits until shutdown is requested or ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	interval := s.opts.Monitor.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if s.shutdown.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return nil
		case h := <-s.exits:
			s.handleExit(h)
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Supervisor) tick(ctx context.Context) {
	if s.shutdown.Load() {
		return
	}
	s.mu.Lock()
	h := s.active
	s.mu.Unlock()
	if h == nil {
		return
	}
	metrics.ObserveResources(ctx, h.PID())
	if s.opts.Detector == nil {
		return
	}

	sc := s.opts.Store.Load()
	res := s.opts.Detector.Detect(ctx, detector.Input{
		StartedAt:        h.StartedAt(),
		Now:              s.now(),
		ExtendedChecking: sc.Flag(config.KeyExtendedChecking),
	})
	if !res.Crashed {
		return
	}
	s.log.Warn("server crash detected", "pid", h.PID(), "reason", res.Reason)
	s.stop(h, true, res.Reason)
}

// handleExit reacts to a process exit observed by the monitor loop.
func (s *Supervisor) handleExit(h Handle) {
	if s.shutdown.Load() {
		return
	}
	s.mu.Lock()
	if s.active == h {
		// Died on its own, not through Stop.
		s.active = nil
		s.crashFlag = true
		s.crashes++
		s.lastCrash = ReasonExited
		s.setStateLocked(StateCrashed)
		metrics.IncCrash(ReasonExited)
		s.log.Warn("server exited unexpectedly", "pid", h.PID())
		s.emitLocked(history.Event{Type: history.EventCrash, RunID: s.runID, PID: h.PID(), Reason: ReasonExited})
	}
	if s.active != nil {
		// Stale exit of a process that was already replaced.
		s.mu.Unlock()
		return
	}

	crashed := s.crashFlag
	s.setStateLocked(StateRestarting)
	ok := s.startLocked()
	if ok {
		s.restarts++
		reason := ReasonRequested
		if crashed {
			reason = ReasonCrash
			s.log.Warn(MsgRestartedAfterCrash)
		} else {
			s.log.Info(MsgRestarted)
		}
		metrics.IncRestart(reason)
		s.emitLocked(history.Event{Type: history.EventRestart, RunID: s.runID, PID: s.active.PID(), Reason: reason})
		s.crashFlag = false
	}
	s.mu.Unlock()
	if ok {
		s.settle()
	}
}

// RequestShutdown sets the global shutdown flag. No server is started afterwards.
func (s *Supervisor) RequestShutdown() {
	s.shutdownOnce.Do(func() {
		s.shutdown.Store(true)
		s.mu.Lock()
		s.setStateLocked(StateShuttingDown)
		s.mu.Unlock()
		close(s.closed)
	})
}

func (s *Supervisor) ShuttingDown() bool { return s.shutdown.Load() }

// Shutdown requests shutdown, stops the server and flushes history.
func (s *Supervisor) Shutdown() {
	s.RequestShutdown()
	s.Stop(false)

	s.mu.Lock()
	events := s.events
	if events != nil && !s.eventsOff {
		s.eventsOff = true
		close(events)
	}
	s.mu.Unlock()
	if events != nil {
		<-s.eventsDone
	}
}

// SetConfig installs a new server config. The running server keeps its
// arguments until the next start.
// The launch port stays pinned; a different port only applies after the
// monitor itself restarts.
func (s *Supervisor) SetConfig(sc *config.ServerConfig) {
	s.opts.Store.Swap(sc)
	if p := sc.Port(); p != s.opts.Port {
		s.log.Warn("port change ignored until the monitor restarts", "port", s.opts.Port, "configured", p)
	}
}

// Port is the port every launch uses.
func (s *Supervisor) Port() string { return s.opts.Port }

func (s *Supervisor) Config() *config.ServerConfig { return s.opts.Store.Load() }

// Password is the RCON password handed to every launch.
func (s *Supervisor) Password() string { return s.opts.Password }

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status is a snapshot for the console and the status API.
type Status struct {
	State           string    `json:"state"`
	PID             int       `json:"pid,omitempty"`
	RunID           string    `json:"run_id,omitempty"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	Uptime          string    `json:"uptime,omitempty"`
	Restarts        int       `json:"restarts"`
	Crashes         int       `json:"crashes"`
	LastCrashReason string    `json:"last_crash_reason,omitempty"`
	CrashOptions    bool      `json:"crash_options_pending"`
	Args            []string  `json:"args,omitempty"`
	ShuttingDown    bool      `json:"shutting_down"`
}

func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		State:           s.state.String(),
		Restarts:        s.restarts,
		Crashes:         s.crashes,
		LastCrashReason: s.lastCrash,
		CrashOptions:    s.crashFlag,
		ShuttingDown:    s.shutdown.Load(),
	}
	if h := s.active; h != nil {
		st.PID = h.PID()
		st.RunID = s.runID
		st.StartedAt = h.StartedAt()
		st.Uptime = s.now().Sub(st.StartedAt).Truncate(time.Second).String()
		st.Args = append([]string(nil), s.args...)
	}
	return st
}

func (s *Supervisor) setStateLocked(to State) {
	from := s.state
	if from == to || from == StateShuttingDown {
		return
	}
	s.state = to
	metrics.RecordStateTransition(from.String(), to.String())
	metrics.SetCurrentState(from.String(), false)
	metrics.SetCurrentState(to.String(), true)
	s.log.Debug("state transition", "from", from.String(), "to", to.String())
}

func (s *Supervisor) emitLocked(e history.Event) {
	if s.events == nil || s.eventsOff {
		return
	}
	e.OccurredAt = time.Now()
	e.Game = s.opts.Store.Load().Game()
	select {
	case s.events <- e:
	default:
		s.log.Warn("history queue full, dropping event", "event", e.Type)
	}
}

func (s *Supervisor) recordLoop() {
	defer close(s.eventsDone)
	for e := range s.events {
		s.opts.History.Record(context.Background(), e)
	}
}
