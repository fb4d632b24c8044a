package process

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/loykin/srcdsmon/internal/logger"
	"github.com/loykin/srcdsmon/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

func lookPath(t *testing.T, name string) string {
	t.Helper()
	p, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
	return p
}

func TestStart_StatusAndKill(t *testing.T) {
	requireUnix(t)
	p, err := Start(Spec{Name: "srv", Path: lookPath(t, "sleep"), Args: []string{"30"}})
	require.NoError(t, err)

	st := p.Snapshot()
	assert.True(t, st.Running)
	assert.Equal(t, "srv", st.Name)
	assert.Greater(t, st.PID, 0)
	assert.Equal(t, st.PID, p.PID())
	assert.True(t, p.Alive())
	assert.False(t, p.Wait(50*time.Millisecond))

	require.NoError(t, p.Kill())
	require.True(t, p.Wait(5*time.Second), "process did not exit after Kill")
	assert.False(t, p.Alive())
	assert.False(t, p.Snapshot().Running)
	assert.Error(t, p.ExitErr(), "killed process reports a signal exit")

	// Killing again is a no-op.
	assert.NoError(t, p.Kill())
}

func TestStart_NaturalExit(t *testing.T) {
	requireUnix(t)
	p, err := Start(Spec{Path: lookPath(t, "true")})
	require.NoError(t, err)
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done not closed")
	}
	assert.NoError(t, p.ExitErr())
	assert.Equal(t, "true", p.Snapshot().Name)
	up := p.Uptime(time.Now().Add(time.Hour))
	assert.Less(t, up, time.Minute, "uptime is frozen once exited")
}

func TestStart_ExitCode(t *testing.T) {
	requireUnix(t)
	p, err := Start(Spec{Path: lookPath(t, "sh"), Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)
	require.True(t, p.Wait(5*time.Second))
	var ee *exec.ExitError
	require.True(t, errors.As(p.ExitErr(), &ee))
	assert.Equal(t, 3, ee.ExitCode())
}

func TestStart_WorkDirDefaultsToExecutableDir(t *testing.T) {
	requireUnix(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "srcds_run")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\npwd > where.txt\n"), 0o755))

	p, err := Start(Spec{Path: script})
	require.NoError(t, err)
	require.True(t, p.Wait(5*time.Second))

	b, err := os.ReadFile(filepath.Join(dir, "where.txt"))
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(string(b)))
	assert.Equal(t, resolved, got)
}

func TestStart_CapturesOutput(t *testing.T) {
	requireUnix(t)
	logs := filepath.Join(t.TempDir(), "logs")
	p, err := Start(Spec{
		Name: "srcds",
		Path: lookPath(t, "sh"),
		Args: []string{"-c", "echo out; echo err 1>&2"},
		Log:  logger.ProcessConfig{Dir: logs},
	})
	require.NoError(t, err)
	require.True(t, p.Wait(5*time.Second))

	out, err := os.ReadFile(filepath.Join(logs, "srcds.stdout.log"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "out")
	errOut, err := os.ReadFile(filepath.Join(logs, "srcds.stderr.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errOut), "err")
}

func TestStart_KillTakesDownChildren(t *testing.T) {
	requireUnix(t)
	// The wrapper backgrounds a child and waits, like srcds_run does.
	p, err := Start(Spec{Path: lookPath(t, "sh"), Args: []string{"-c", "sleep 30 & wait"}})
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, p.Kill())
	assert.True(t, p.Wait(5*time.Second))
}

func TestStart_Errors(t *testing.T) {
	_, err := Start(Spec{})
	assert.Error(t, err)

	_, err = Start(Spec{Path: filepath.Join(t.TempDir(), "missing-srcds")})
	assert.Error(t, err)
}

type recordingCaps struct {
	platform.Noop
	hidden int
}

func (r *recordingCaps) HideChildWindow(*exec.Cmd) { r.hidden++ }

func TestStartWith_HideWindow(t *testing.T) {
	requireUnix(t)
	caps := &recordingCaps{}
	p, err := StartWith(Spec{Path: lookPath(t, "true"), HideWindow: true}, caps)
	require.NoError(t, err)
	p.Wait(5 * time.Second)
	assert.Equal(t, 1, caps.hidden)

	p, err = StartWith(Spec{Path: lookPath(t, "true")}, caps)
	require.NoError(t, err)
	p.Wait(5 * time.Second)
	assert.Equal(t, 1, caps.hidden)
}
