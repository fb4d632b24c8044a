package console

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the operator aborts the prompt with Ctrl-C.
var ErrInterrupted = errors.New("console interrupted")

// Scanner reads newline-terminated lines from any reader.
type Scanner struct {
	s *bufio.Scanner
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{s: bufio.NewScanner(r)}
}

func (s *Scanner) ReadLine() (string, error) {
	if s.s.Scan() {
		return strings.TrimRight(s.s.Text(), "\r"), nil
	}
	if err := s.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Prompt is an interactive line editor with history and keyword completion.
type Prompt struct {
	l           *liner.State
	prompt      string
	historyPath string
}

// IsTerminal reports whether stdin is an interactive terminal.
func IsTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// NewPrompt takes over the terminal. History is kept in historyPath when set.
func NewPrompt(historyPath string) *Prompt {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	l.SetCompleter(complete)
	p := &Prompt{l: l, prompt: "> ", historyPath: historyPath}
	if historyPath != "" {
		if f, err := os.Open(filepath.Clean(historyPath)); err == nil {
			_, _ = l.ReadHistory(f)
			_ = f.Close()
		}
	}
	return p
}

func complete(line string) []string {
	var out []string
	lower := strings.ToLower(line)
	for _, k := range Keywords {
		if strings.HasPrefix(k, lower) {
			out = append(out, k)
		}
	}
	return out
}

func (p *Prompt) ReadLine() (string, error) {
	line, err := p.l.Prompt(p.prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrInterrupted
		}
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		p.l.AppendHistory(line)
	}
	return line, nil
}

// Close restores the terminal and saves history.
func (p *Prompt) Close() error {
	if p.historyPath != "" {
		if f, err := os.Create(filepath.Clean(p.historyPath)); err == nil {
			_, _ = p.l.WriteHistory(f)
			_ = f.Close()
		}
	}
	return p.l.Close()
}

// NewReader picks the interactive prompt on a terminal and a plain scanner otherwise.
// The returned closer must be called before exit.
func NewReader(historyPath string) (LineReader, io.Closer) {
	if IsTerminal() {
		p := NewPrompt(historyPath)
		return p, p
	}
	return NewScanner(os.Stdin), io.NopCloser(nil)
}
