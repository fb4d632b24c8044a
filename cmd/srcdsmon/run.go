package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/srcdsmon/internal/config"
	"github.com/loykin/srcdsmon/internal/console"
	"github.com/loykin/srcdsmon/internal/detector"
	"github.com/loykin/srcdsmon/internal/history"
	"github.com/loykin/srcdsmon/internal/history/factory"
	"github.com/loykin/srcdsmon/internal/logger"
	"github.com/loykin/srcdsmon/internal/metrics"
	"github.com/loykin/srcdsmon/internal/platform"
	"github.com/loykin/srcdsmon/internal/rcon"
	"github.com/loykin/srcdsmon/internal/server"
	"github.com/loykin/srcdsmon/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

const historyFileName = ".srcdsmon_history"

// run wires the monitor together and blocks until the operator quits or a
// termination signal arrives.
func run(ctx context.Context, flags *RootFlags, out io.Writer) error {
	workDir, err := resolveWorkDir(flags.WorkDir)
	if err != nil {
		return err
	}

	lock, err := acquireLock(workDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	cfg, err := config.Load(flags.ConfigPath, workDir)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log, logCloser, err := logger.New(cfg.LoggerConfig(), os.Stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(log)

	sc, err := config.LoadScript(workDir)
	if err != nil {
		_, _ = fmt.Fprintln(out, console.MsgReloadFailed)
		return fmt.Errorf("load startup script: %w", err)
	}

	password, err := rcon.RandomPassword(cfg.RCON.PasswordLength)
	if err != nil {
		return err
	}
	host := rconHost(cfg.RCON.Address, log)
	rconOpts := []rcon.Option{rcon.WithTimeout(cfg.RCON.Timeout)}
	// The monitor loop and the console each get their own client.
	monitorRCON := rcon.Connect(host, sc.Port(), password, rconOpts...)
	consoleRCON := rcon.Connect(host, sc.Port(), password, rconOpts...)

	det := &detector.CrashDetector{
		Probe:    detector.LivenessProbe{Client: monitorRCON, GracePeriod: cfg.Monitor.GracePeriod},
		Reporter: crashReporter(cfg.CrashReporter),
		Logger:   log,
	}

	recorder, err := openHistory(cfg.History.DSN, log)
	if err != nil {
		return err
	}
	if recorder != nil {
		defer func() { _ = recorder.Close() }()
	}

	var servers []*http.Server
	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		servers = append(servers, serve(&http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}, "metrics", log))
	}

	caps := platform.Native()
	sup := supervisor.New(supervisor.Options{
		Store:      config.NewStore(sc),
		RCON:       monitorRCON,
		Password:   password,
		Port:       sc.Port(),
		Detector:   det,
		Monitor:    cfg.Monitor,
		ProcessLog: cfg.ProcessLogConfig(),
		Platform:   caps,
		History:    recorder,
		Logger:     log,
	})

	if cfg.API.Listen != "" {
		router := server.NewRouter(sup, cfg.API.BasePath, log, server.WithDetectors(det.Describe()))
		servers = append(servers, serve(server.NewServer(cfg.API.Listen, router), "api", log))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopSignals := caps.OnTerminationSignal(func() {
		log.Info("termination signal received")
		cancel()
	})
	defer stopSignals()

	disp := console.New(console.Options{
		Controller:   sup,
		RCON:         consoleRCON,
		Loader:       config.LoadScript,
		WorkDir:      workDir,
		Out:          out,
		Logger:       log,
		QuitPause:    cfg.Monitor.QuitPause,
		RestartPause: cfg.Monitor.QuitPause,
		RCONTimeout:  cfg.RCON.Timeout,
	})
	disp.Banner(sc.Game(), password)
	log.Info("monitor initialized", "workdir", workDir, "rcon", host+":"+sc.Port(), "detectors", det.Describe())

	loopDone := make(chan error, 1)
	go func() { loopDone <- sup.Run(ctx) }()
	sup.Start()

	reader, readerCloser := console.NewReader(filepath.Join(workDir, historyFileName))
	consoleDone := make(chan error, 1)
	go func() { consoleDone <- disp.Run(ctx, reader) }()

	var runErr error
	select {
	case runErr = <-consoleDone:
	case <-ctx.Done():
	}

	sup.Shutdown()
	cancel()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("monitor loop stopped", "error", err)
	}
	_ = readerCloser.Close()
	shutdownServers(servers, log)
	log.Info("monitor stopped")
	return runErr
}

func resolveWorkDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve workdir %s: %w", dir, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workdir: %w", err)
	}
	if !st.IsDir() {
		return "", fmt.Errorf("workdir %s is not a directory", abs)
	}
	return abs, nil
}

// rconHost picks the configured address or the first non-loopback IPv4 of the
// machine, which is where the server binds RCON by default.
func rconHost(configured string, log *slog.Logger) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	ip, err := rcon.LocalIPv4()
	if err != nil {
		log.Warn("no local IPv4 address, using loopback for rcon", "error", err)
		return "127.0.0.1"
	}
	return ip
}

func crashReporter(cfg config.CrashReporterConfig) detector.CrashReporter {
	if !cfg.Enabled {
		return nil
	}
	names := cfg.Names
	if len(names) == 0 {
		names = detector.DefaultCrashReporterNames()
	}
	if len(names) == 0 {
		return nil
	}
	return detector.NewProcessScanner(names)
}

func openHistory(dsns []string, log *slog.Logger) (*history.Recorder, error) {
	var sinks []history.Sink
	for _, dsn := range dsns {
		if strings.TrimSpace(dsn) == "" {
			continue
		}
		s, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			for _, open := range sinks {
				_ = open.Close()
			}
			return nil, fmt.Errorf("open history sink: %w", err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	log.Info("history enabled", "sinks", len(sinks))
	return history.NewRecorder(log, sinks...), nil
}

func serve(srv *http.Server, name string, log *slog.Logger) *http.Server {
	go func() {
		log.Info("http listener started", "listener", name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http listener failed", "listener", name, "addr", srv.Addr, "error", err)
		}
	}()
	return srv
}

func shutdownServers(servers []*http.Server, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("http shutdown", "addr", srv.Addr, "error", err)
		}
	}
}
