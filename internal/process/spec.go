package process

import (
	"errors"
	"path/filepath"

	"github.com/loykin/srcdsmon/internal/logger"
)

// Spec describes one launch of the game server.
type Spec struct {
	Name       string
	Path       string   // executable
	Args       []string // argv without the executable
	WorkDir    string   // defaults to the executable's directory
	HideWindow bool
	Log        logger.ProcessConfig
}

// Validate checks that the spec can be handed to exec.
func (s Spec) Validate() error {
	if s.Path == "" {
		return errors.New("executable path is required")
	}
	return nil
}

func (s Spec) workDir() string {
	if s.WorkDir != "" {
		return s.WorkDir
	}
	return filepath.Dir(s.Path)
}

func (s Spec) logName() string {
	if s.Name != "" {
		return s.Name
	}
	return filepath.Base(s.Path)
}
