package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/srcdsmon/internal/history"
)

func TestSQLiteSink_Integration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	sink, err := New("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	events := []history.Event{
		{Type: history.EventStart, OccurredAt: time.Now().UTC(), RunID: "run-1", Game: "tf", PID: 4242, Args: "-console -game tf"},
		{Type: history.EventCrash, OccurredAt: time.Now().UTC(), RunID: "run-1", Game: "tf", PID: 4242, Reason: "rcon_unreachable"},
		{Type: history.EventRestart, OccurredAt: time.Now().UTC(), RunID: "run-2", Game: "tf", PID: 4343, Reason: "crash"},
	}
	for _, e := range events {
		if err := sink.Send(ctx, e); err != nil {
			t.Fatalf("Failed to send %s event: %v", e.Type, err)
		}
	}

	var count int
	if err := sink.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM server_history WHERE run_id = ?", "run-1").Scan(&count); err != nil {
		t.Fatalf("Failed to query server_history: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 events for run-1, got %d", count)
	}

	var reason string
	if err := sink.db.QueryRowContext(ctx, "SELECT reason FROM server_history WHERE event = ?", "crash").Scan(&reason); err != nil {
		t.Fatalf("Failed to query crash reason: %v", err)
	}
	if reason != "rcon_unreachable" {
		t.Errorf("reason = %q", reason)
	}
}

func TestSQLiteSink_InvalidDSN(t *testing.T) {
	if _, err := New("   "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestSQLiteSink_Memory(t *testing.T) {
	sink, err := New("sqlite://:memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = sink.Close() }()
	if err := sink.Send(context.Background(), history.Event{Type: history.EventStop, RunID: "r", Game: "g"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
