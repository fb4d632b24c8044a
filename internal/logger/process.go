package logger

import (
	"fmt"
	"io"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// ProcessConfig describes where a supervised server's stdout and stderr go.
// Files are Dir/<name>.stdout.log and Dir/<name>.stderr.log; empty Dir
// disables capture.
type ProcessConfig struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Writers returns rotated writers for stdout and stderr, or nils when capture is off.
func (c ProcessConfig) Writers(name string) (io.WriteCloser, io.WriteCloser, error) {
	if c.Dir == "" {
		return nil, nil, nil
	}
	if name == "" {
		return nil, nil, fmt.Errorf("process log name is required")
	}
	return c.rotated(filepath.Join(c.Dir, name+".stdout.log")),
		c.rotated(filepath.Join(c.Dir, name+".stderr.log")), nil
}

func (c ProcessConfig) rotated(path string) *lj.Logger {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}
