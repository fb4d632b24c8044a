package detector

import (
	"context"
	"errors"
	"time"

	"github.com/loykin/srcdsmon/internal/metrics"
	"github.com/loykin/srcdsmon/internal/rcon"
)

// LivenessProbe sends an empty RCON command to see whether the server answers.
type LivenessProbe struct {
	Client      rcon.Client
	GracePeriod time.Duration
}

// Check reports a crash only when enabled, strictly after the grace period since
// startedAt, and when the server is unreachable.
func (p LivenessProbe) Check(ctx context.Context, enabled bool, startedAt, now time.Time) bool {
	if !enabled || p.Client == nil || startedAt.IsZero() {
		return false
	}
	if now.Sub(startedAt) <= p.GracePeriod {
		return false
	}
	_, err := p.Client.SendCommand(ctx, "")
	if errors.Is(err, rcon.ErrUnreachable) {
		metrics.IncProbeFailure()
		return true
	}
	return false
}
