// Package console reads operator commands and dispatches them to the supervisor
// or, for anything it does not recognise, to the server over RCON.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/loykin/srcdsmon/internal/config"
	"github.com/loykin/srcdsmon/internal/rcon"
)

// Operator messages.
const (
	MsgQuitting       = "Quitting, server shutting down!"
	MsgReloadFailed   = "Unable to load server_config.txt, file does not exist or is invalid!"
	MsgReloaded       = "Reloaded server_config.txt successfully, you have to restart the server in order for the changes to take effect!"
	MsgNoReply        = "(no reply: server unreachable)"
	MsgCommandFailed  = "(no reply: command failed)"
	headerCommandLine = "Command Line:"
	headerCrashLine   = "Passed to command line when restarting from a crash:"
)

// Keywords understood by the dispatcher, case-insensitively.
const (
	CmdQuit         = "quit"
	CmdRestart      = "restart"
	CmdShowData     = "showdata"
	CmdReloadScript = "reloadscript"
)

// Keywords lists the built-in commands for completion and help.
var Keywords = []string{CmdRestart, CmdReloadScript, CmdShowData, CmdQuit}

// ErrConfigReload is returned by Run when reloadscript fails. It is fatal.
var ErrConfigReload = errors.New("reload startup script")

// Controller is the part of the supervisor the console drives.
type Controller interface {
	Restart() bool
	RequestShutdown()
	SetConfig(sc *config.ServerConfig)
	Config() *config.ServerConfig
}

// LineReader yields operator input one line at a time.
type LineReader interface {
	ReadLine() (string, error)
}

type Options struct {
	Controller   Controller
	RCON         rcon.Client
	Loader       config.Loader
	WorkDir      string
	Out          io.Writer
	Logger       *slog.Logger
	QuitPause    time.Duration
	RestartPause time.Duration
	RCONTimeout  time.Duration
}

type Dispatcher struct {
	opts Options
	out  io.Writer
	log  *slog.Logger
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{opts: opts, out: opts.Out, log: opts.Logger}
	if d.out == nil {
		d.out = io.Discard
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.opts.Loader == nil {
		d.opts.Loader = config.LoadScript
	}
	if d.opts.RCONTimeout <= 0 {
		d.opts.RCONTimeout = rcon.DefaultTimeout
	}
	return d
}

// Banner prints the startup message and the command list.
func (d *Dispatcher) Banner(game, password string) {
	d.printf("SRCDS monitor has been initialized for %s, using RCON password %s:\n\n", game, password)
	d.printf("Commands:\n")
	for _, k := range Keywords {
		d.printf("%s\n", k)
	}
	d.printf("\nAnything else will be written directly to the server via RCON.\n\n")
}

// Run reads lines until quit, end of input, ctx cancellation or a fatal reload
// failure. End of input counts as quit.
func (d *Dispatcher) Run(ctx context.Context, r LineReader) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupted) {
				d.quit()
				return nil
			}
			return fmt.Errorf("read console: %w", err)
		}
		quit, err := d.Dispatch(ctx, line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// Dispatch handles one line and reports whether the console should stop.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case CmdQuit:
		d.quit()
		return true, nil
	case CmdRestart:
		d.log.Info("restart requested from console")
		d.opts.Controller.Restart()
		pause(d.opts.RestartPause)
		return false, nil
	case CmdShowData:
		d.showData(d.opts.Controller.Config())
		return false, nil
	case CmdReloadScript:
		return d.reload()
	}
	d.passthrough(ctx, line)
	return false, nil
}

func (d *Dispatcher) quit() {
	d.opts.Controller.RequestShutdown()
	d.printf("%s\n", MsgQuitting)
	pause(d.opts.QuitPause)
}

func (d *Dispatcher) showData(sc *config.ServerConfig) {
	for _, p := range sc.Entries() {
		d.printf("%s : %s\n", p.Key, p.Value)
	}
	d.printf("%s\n", headerCommandLine)
	if sc != nil {
		for _, o := range sc.LaunchOptions {
			d.printf("%s\n", o)
		}
	}
	d.printf("%s\n", headerCrashLine)
	if sc != nil {
		for _, o := range sc.CrashRestartOptions {
			d.printf("%s\n", o)
		}
	}
}

func (d *Dispatcher) reload() (bool, error) {
	sc, err := d.opts.Loader(d.opts.WorkDir)
	if err != nil {
		d.opts.Controller.RequestShutdown()
		d.printf("%s\n", MsgReloadFailed)
		d.log.Error("startup script reload failed", "error", err)
		pause(d.opts.QuitPause)
		return true, fmt.Errorf("%w: %w", ErrConfigReload, err)
	}
	d.opts.Controller.SetConfig(sc)
	d.printf("%s\n", MsgReloaded)
	return false, nil
}

func (d *Dispatcher) passthrough(ctx context.Context, line string) {
	if d.opts.RCON == nil {
		d.printf("%s\n", MsgNoReply)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.opts.RCONTimeout)
	defer cancel()
	reply, err := d.opts.RCON.SendCommand(ctx, line)
	if err != nil {
		if errors.Is(err, rcon.ErrUnreachable) {
			d.printf("%s\n", MsgNoReply)
		} else {
			d.printf("%s\n", MsgCommandFailed)
		}
		d.log.Debug("rcon passthrough failed", "command", line, "error", err)
		return
	}
	d.printf("%s\n", strings.TrimRight(reply, "\n"))
}

func (d *Dispatcher) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(d.out, format, args...)
}

func pause(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
