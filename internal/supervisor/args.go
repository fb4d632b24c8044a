package supervisor

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kballard/go-shellquote"
	"github.com/loykin/srcdsmon/internal/config"
	"github.com/loykin/srcdsmon/internal/logger"
	"github.com/loykin/srcdsmon/internal/process"
)

// BuildArgs assembles the server command line:
//
//	-console -game <gameroot> +rcon_password <pw> +port <port>
//
// followed by every non-reserved entry as "key value", the launch options and,
// after a crash, the crash-restart options. port is the port the RCON clients
// were built for, not necessarily the one in sc.
func BuildArgs(sc *config.ServerConfig, port, password string, crashed bool) ([]string, error) {
	if sc == nil {
		return nil, errors.New("no server config loaded")
	}
	args := []string{
		"-console",
		"-game", sc.GameRoot(),
		"+rcon_password", password,
		"+port", port,
	}
	for _, p := range sc.Forwarded() {
		args = append(args, p.Key)
		if p.Value != "" {
			args = append(args, p.Value)
		}
	}
	opts := sc.LaunchOptions
	if crashed {
		opts = append(append([]string(nil), opts...), sc.CrashRestartOptions...)
	}
	for _, o := range opts {
		words, err := shellquote.Split(o)
		if err != nil {
			return nil, fmt.Errorf("launch option %q: %w", o, err)
		}
		args = append(args, words...)
	}
	return args, nil
}

// buildSpec turns the config into a process launch.
func buildSpec(sc *config.ServerConfig, port, password string, crashed bool, logCfg logger.ProcessConfig) (process.Spec, error) {
	exe := sc.Executable()
	if exe == "" {
		return process.Spec{}, fmt.Errorf("%q is not set in %s", config.KeyExecutable, config.ScriptFile)
	}
	args, err := BuildArgs(sc, port, password, crashed)
	if err != nil {
		return process.Spec{}, err
	}
	name := sc.Game()
	if name == "" {
		name = "server"
	}
	return process.Spec{
		Name:       filepath.Base(name),
		Path:       exe,
		Args:       args,
		WorkDir:    filepath.Dir(exe),
		HideWindow: sc.Flag(config.KeyHideWindow),
		Log:        logCfg,
	}, nil
}
