package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes the monitor's own log output.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Color  bool   // colorize console text output
	File   FileConfig
}

// FileConfig enables an additional rotated log file. Empty Path disables it.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ValidLevel reports whether s names a known level. Empty means info.
func ValidLevel(s string) bool {
	_, ok := parseLevel(s)
	return ok
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// New builds the monitor logger. Records go to console and, when configured, to
// a rotated file. The returned closer releases the file; it is never nil.
func New(cfg Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	level, ok := parseLevel(cfg.Level)
	if !ok {
		return nil, nil, errors.New("unknown log level: " + cfg.Level)
	}
	if console == nil {
		console = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	json := strings.EqualFold(cfg.Format, "json")

	var handlers []slog.Handler
	switch {
	case json:
		handlers = append(handlers, slog.NewJSONHandler(console, opts))
	case cfg.Color:
		handlers = append(handlers, NewColorTextHandler(console, opts, true))
	default:
		handlers = append(handlers, slog.NewTextHandler(console, opts))
	}

	var closer io.Closer = nopCloser{}
	if cfg.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0o750); err != nil {
			return nil, nil, err
		}
		fw := &lj.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    valOr(cfg.File.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(cfg.File.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(cfg.File.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   cfg.File.Compress,
		}
		closer = fw
		if json {
			handlers = append(handlers, slog.NewJSONHandler(fw, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(fw, opts))
		}
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), closer, nil
	}
	return slog.New(fanout(handlers)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
