package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.PollInterval != 3*time.Second {
		t.Fatalf("poll interval = %s", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.GracePeriod != 120*time.Second {
		t.Fatalf("grace period = %s", cfg.Monitor.GracePeriod)
	}
	if cfg.Monitor.StopStepDelay != 250*time.Millisecond || cfg.Monitor.QuitPause != 250*time.Millisecond {
		t.Fatalf("unexpected delays: %+v", cfg.Monitor)
	}
	if cfg.RCON.PasswordLength != 12 {
		t.Fatalf("password length = %d", cfg.RCON.PasswordLength)
	}
	if !cfg.CrashReporter.Enabled {
		t.Fatalf("crash reporter scan should default to enabled")
	}
	if cfg.WorkDir != dir {
		t.Fatalf("workdir = %q", cfg.WorkDir)
	}
}

func TestLoad_FileInWorkDir(t *testing.T) {
	dir := t.TempDir()
	data := "" +
		"[monitor]\n" +
		"poll_interval = \"1s\"\n" +
		"grace_period = \"30s\"\n" +
		"[crash_reporter]\n" +
		"names = [\"WerFault\", \"dumpreporter\"]\n" +
		"[server_log]\n" +
		"dir = \"logs\"\n" +
		"[history]\n" +
		"dsn = [\"sqlite://history.db\"]\n"
	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(data), 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	cfg, err := Load("", dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.PollInterval != time.Second || cfg.Monitor.GracePeriod != 30*time.Second {
		t.Fatalf("monitor = %+v", cfg.Monitor)
	}
	if len(cfg.CrashReporter.Names) != 2 || cfg.CrashReporter.Names[1] != "dumpreporter" {
		t.Fatalf("names = %v", cfg.CrashReporter.Names)
	}
	if got := cfg.ProcessLogConfig().Dir; got != filepath.Join(dir, "logs") {
		t.Fatalf("server log dir = %q", got)
	}
	if len(cfg.History.DSN) != 1 {
		t.Fatalf("history dsn = %v", cfg.History.DSN)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SRCDSMON_MONITOR_GRACE_PERIOD", "45s")
	t.Setenv("SRCDSMON_LOG_LEVEL", "debug")
	cfg, err := Load("", t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.GracePeriod != 45*time.Second {
		t.Fatalf("grace period = %s", cfg.Monitor.GracePeriod)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), ""); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	data := "[monitor]\npoll_interval = \"0s\"\n[log]\nlevel = \"loud\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	if _, err := Load(path, dir); err == nil {
		t.Fatalf("expected validation error")
	}
}
