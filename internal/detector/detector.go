// Package detector decides whether the supervised server has crashed or frozen.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Crash reasons reported in Result.Reason.
const (
	ReasonUnresponsive  = "rcon_unreachable"
	ReasonCrashReporter = "crash_reporter"
)

// Input is the per-tick view of the active server.
type Input struct {
	StartedAt        time.Time
	Now              time.Time
	ExtendedChecking bool
}

type Result struct {
	Crashed bool
	Reason  string
}

// CrashDetector runs both heuristics on every tick. The crash-reporter scan is
// not gated by the grace period or the extended-checking flag; only the RCON
// probe is.
type CrashDetector struct {
	Probe    LivenessProbe
	Reporter CrashReporter
	Logger   *slog.Logger
}

func (d *CrashDetector) Detect(ctx context.Context, in Input) Result {
	var res Result
	if d.Probe.Check(ctx, in.ExtendedChecking, in.StartedAt, in.Now) {
		res = Result{Crashed: true, Reason: ReasonUnresponsive}
	}
	if d.Reporter != nil {
		found, err := d.Reporter.DetectAndSuppress(ctx)
		switch {
		case err != nil:
			d.logger().Warn("crash reporter scan failed", "error", err)
		case found && !res.Crashed:
			res = Result{Crashed: true, Reason: ReasonCrashReporter}
		}
	}
	return res
}

// Describe lists the active heuristics for diagnostics.
func (d *CrashDetector) Describe() []string {
	out := []string{fmt.Sprintf("rcon:grace=%s,extended-only", d.Probe.GracePeriod)}
	if d.Reporter != nil {
		out = append(out, "crash_reporter:"+d.Reporter.Describe())
	}
	return out
}

func (d *CrashDetector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func normalize(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			out = append(out, n)
		}
	}
	return out
}
