package config

import (
	"strings"
	"sync/atomic"
)

// DefaultPort is the listen port used when the script has no port entry.
const DefaultPort = "27015"

// Script keys the supervisor consumes itself. They are never forwarded to the
// server as "key value" launch pairs.
const (
	KeyExecutable       = "srcds"
	KeyGameRoot         = "gameroot"
	KeyGame             = "game"
	KeyPort             = "port"
	KeyHLDS             = "hlds"
	KeyExtendedChecking = "extendedcrashchecking"
	KeyHideWindow       = "hidewindow"
)

var reservedKeys = map[string]struct{}{
	KeyExecutable:       {},
	KeyGameRoot:         {},
	KeyGame:             {},
	KeyPort:             {},
	KeyHLDS:             {},
	KeyExtendedChecking: {},
	KeyHideWindow:       {},
}

// IsReserved reports whether key is consumed structurally by the supervisor.
// Keys match exactly, the same rule Get uses, so "Game" is an ordinary
// forwarded parameter.
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// Param is a single script entry in file order.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ServerConfig is the parsed startup script: ordered parameters plus the two
// option lists. It is never mutated after load; reloads replace it wholesale.
type ServerConfig struct {
	params              []Param
	index               map[string]int
	LaunchOptions       []string
	CrashRestartOptions []string
}

// NewServerConfig builds a ServerConfig from ordered params. Duplicate keys are
// dropped after the first occurrence.
func NewServerConfig(params []Param, launch, crash []string) *ServerConfig {
	sc := &ServerConfig{index: make(map[string]int, len(params))}
	for _, p := range params {
		sc.add(p.Key, p.Value)
	}
	sc.LaunchOptions = append([]string(nil), launch...)
	sc.CrashRestartOptions = append([]string(nil), crash...)
	return sc
}

func (sc *ServerConfig) add(key, value string) bool {
	if sc.index == nil {
		sc.index = make(map[string]int)
	}
	if _, dup := sc.index[key]; dup {
		return false
	}
	sc.index[key] = len(sc.params)
	sc.params = append(sc.params, Param{Key: key, Value: value})
	return true
}

func (sc *ServerConfig) Get(key string) (string, bool) {
	if sc == nil {
		return "", false
	}
	i, ok := sc.index[key]
	if !ok {
		return "", false
	}
	return sc.params[i].Value, true
}

func (sc *ServerConfig) Has(key string) bool {
	_, ok := sc.Get(key)
	return ok
}

func (sc *ServerConfig) Len() int {
	if sc == nil {
		return 0
	}
	return len(sc.params)
}

// Entries returns a copy of all parameters in file order.
func (sc *ServerConfig) Entries() []Param {
	if sc == nil {
		return nil
	}
	return append([]Param(nil), sc.params...)
}

// Forwarded returns the parameters passed to the server as "key value" pairs,
// i.e. every entry that is not reserved.
func (sc *ServerConfig) Forwarded() []Param {
	out := make([]Param, 0, sc.Len())
	for _, p := range sc.Entries() {
		if IsReserved(p.Key) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Port returns the configured listen port or DefaultPort.
func (sc *ServerConfig) Port() string {
	if v, ok := sc.Get(KeyPort); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return DefaultPort
}

func (sc *ServerConfig) Game() string {
	v, _ := sc.Get(KeyGame)
	return v
}

func (sc *ServerConfig) GameRoot() string {
	v, _ := sc.Get(KeyGameRoot)
	return v
}

func (sc *ServerConfig) Executable() string {
	v, _ := sc.Get(KeyExecutable)
	return v
}

// Flag reports whether key is set to "1".
func (sc *ServerConfig) Flag(key string) bool {
	v, ok := sc.Get(key)
	return ok && strings.TrimSpace(v) == "1"
}

// Store holds the active ServerConfig. Readers always see a complete config.
type Store struct {
	p atomic.Pointer[ServerConfig]
}

func NewStore(sc *ServerConfig) *Store {
	s := &Store{}
	s.p.Store(sc)
	return s
}

func (s *Store) Load() *ServerConfig { return s.p.Load() }

// Swap installs sc and returns the previous config.
func (s *Store) Swap(sc *ServerConfig) *ServerConfig { return s.p.Swap(sc) }
