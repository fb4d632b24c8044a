package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Script file names looked up in the work directory.
const (
	ScriptFile      = "server_config.txt"
	CrashScriptFile = "server_crashed.txt"
)

var ErrEmptyScript = errors.New("startup script defines no parameters")

// Loader produces a fresh ServerConfig for a work directory.
type Loader func(dir string) (*ServerConfig, error)

// LoadScript reads server_config.txt and server_crashed.txt from dir.
//
// Lines are "key<TAB>value". Keys starting with '-' or '+' become launch options,
// everything else goes into the ordered parameter map (first occurrence wins).
// Every valid line of the crash script becomes a crash-restart option.
func LoadScript(dir string) (*ServerConfig, error) {
	sc := &ServerConfig{index: make(map[string]int)}

	err := readScript(filepath.Join(dir, ScriptFile), func(e scriptLine) {
		if isOption(e.key) {
			sc.LaunchOptions = append(sc.LaunchOptions, e.option())
			return
		}
		sc.add(e.key, e.value)
	})
	if err != nil {
		return nil, err
	}

	err = readScript(filepath.Join(dir, CrashScriptFile), func(e scriptLine) {
		sc.CrashRestartOptions = append(sc.CrashRestartOptions, e.option())
	})
	if err != nil {
		return nil, err
	}

	if sc.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, ScriptFile), ErrEmptyScript)
	}
	return sc, nil
}

type scriptLine struct {
	key    string
	value  string
	fields int
}

func (l scriptLine) option() string {
	if l.fields == 1 {
		return l.key
	}
	return l.key + " " + l.value
}

func isOption(key string) bool {
	return strings.HasPrefix(key, "-") || strings.HasPrefix(key, "+")
}

func readScript(path string, fn func(scriptLine)) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open startup script: %w", err)
	}
	defer func() { _ = f.Close() }()

	s := bufio.NewScanner(f)
	for s.Scan() {
		if l, ok := parseLine(s.Text()); ok {
			fn(l)
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// parseLine validates one script line.
func parseLine(line string) (scriptLine, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return scriptLine{}, false
	}
	if strings.HasPrefix(strings.ReplaceAll(line, " ", ""), "//") {
		return scriptLine{}, false
	}
	parts := strings.Split(line, "\t")
	if len(parts) > 2 || parts[0] == "" {
		return scriptLine{}, false
	}
	// The port is set structurally from the "port" key.
	if strings.Contains(parts[0], "+port") || strings.Contains(parts[0], "-port") {
		return scriptLine{}, false
	}
	l := scriptLine{key: parts[0], fields: len(parts)}
	if len(parts) > 1 {
		l.value = parts[1]
	}
	return l, true
}
