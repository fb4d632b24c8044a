package history

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (m *memSink) Send(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

func TestRecorder_FansOutAndFillsTime(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	r := NewRecorder(nil, a, b)
	r.Record(context.Background(), Event{Type: EventStart, RunID: "r1", PID: 7})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "r1", a.events[0].RunID)
	assert.WithinDuration(t, time.Now(), a.events[0].OccurredAt, time.Second)

	require.NoError(t, r.Close())
	assert.True(t, a.closed && b.closed)
}

func TestRecorder_SinkErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	bad, good := &memSink{err: errors.New("db down")}, &memSink{}
	r := NewRecorder(logger, bad, good)
	r.Record(context.Background(), Event{Type: EventCrash, Reason: "rcon_unreachable"})

	assert.Len(t, good.events, 1)
	assert.True(t, strings.Contains(buf.String(), "db down"))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.Record(context.Background(), Event{Type: EventStop})
	assert.NoError(t, r.Close())
}
