package metrics

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// Resources is a point-in-time CPU and memory sample of the server process.
type Resources struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  uint64  `json:"memory_rss"`
	NumThreads int32   `json:"num_threads"`
}

// SampleResources reads CPU and memory for pid via gopsutil.
func SampleResources(ctx context.Context, pid int) (Resources, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return Resources{}, fmt.Errorf("inspect pid %d: %w", pid, err)
	}
	r := Resources{PID: p.Pid}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		r.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		r.MemoryRSS = mem.RSS
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		r.NumThreads = n
	}
	return r, nil
}

// ObserveResources samples pid and updates the resource gauges.
func ObserveResources(ctx context.Context, pid int) {
	if !regOK.Load() || pid <= 0 {
		return
	}
	r, err := SampleResources(ctx, pid)
	if err != nil {
		return
	}
	cpuPercent.Set(r.CPUPercent)
	memoryRSS.Set(float64(r.MemoryRSS))
}

// ResetResources zeroes the resource gauges once no server is running.
func ResetResources() {
	if regOK.Load() {
		cpuPercent.Set(0)
		memoryRSS.Set(0)
	}
}
