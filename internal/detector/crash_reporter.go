package detector

import (
	"context"
	"fmt"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// CrashReporter finds OS crash dialogs left behind by the server and dismisses them.
type CrashReporter interface {
	// DetectAndSuppress kills every matching process and reports whether any existed.
	DetectAndSuppress(ctx context.Context) (bool, error)
	Describe() string
}

type procEntry interface {
	NameWithContext(ctx context.Context) (string, error)
	KillWithContext(ctx context.Context) error
}

// ProcessScanner matches running process names against case-insensitive prefixes.
type ProcessScanner struct {
	names []string
	list  func(ctx context.Context) ([]procEntry, error)
}

// NewProcessScanner returns a scanner for the given name prefixes. An empty list
// never matches.
func NewProcessScanner(names []string) *ProcessScanner {
	return &ProcessScanner{names: normalize(names), list: listProcesses}
}

func listProcesses(ctx context.Context) ([]procEntry, error) {
	ps, err := gopsproc.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]procEntry, len(ps))
	for i, p := range ps {
		out[i] = p
	}
	return out, nil
}

func (s *ProcessScanner) DetectAndSuppress(ctx context.Context) (bool, error) {
	if len(s.names) == 0 {
		return false, nil
	}
	procs, err := s.list(ctx)
	if err != nil {
		return false, fmt.Errorf("enumerate processes: %w", err)
	}
	found := false
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !s.matches(name) {
			continue
		}
		found = true
		// The process may already be gone.
		_ = p.KillWithContext(ctx)
	}
	return found, nil
}

func (s *ProcessScanner) matches(name string) bool {
	name = strings.ToLower(name)
	for _, prefix := range s.names {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (s *ProcessScanner) Describe() string {
	if len(s.names) == 0 {
		return "disabled"
	}
	return strings.Join(s.names, ",")
}
