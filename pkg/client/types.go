package client

import "time"

// Resources is the CPU and memory sample reported with a running server.
type Resources struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  uint64  `json:"memory_rss"`
	NumThreads int32   `json:"num_threads"`
}

// StatusResponse mirrors GET /status.
type StatusResponse struct {
	State           string     `json:"state"`
	PID             int        `json:"pid,omitempty"`
	RunID           string     `json:"run_id,omitempty"`
	StartedAt       time.Time  `json:"started_at,omitempty"`
	Uptime          string     `json:"uptime,omitempty"`
	Restarts        int        `json:"restarts"`
	Crashes         int        `json:"crashes"`
	LastCrashReason string     `json:"last_crash_reason,omitempty"`
	CrashOptions    bool       `json:"crash_options_pending"`
	Args            []string   `json:"args,omitempty"`
	ShuttingDown    bool       `json:"shutting_down"`
	Detectors       []string   `json:"detectors"`
	Resources       *Resources `json:"resources,omitempty"`
}

// Param is one startup script entry.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ConfigResponse mirrors GET /config.
type ConfigResponse struct {
	Params              []Param  `json:"params"`
	Port                string   `json:"port"`
	LaunchOptions       []string `json:"launch_options"`
	CrashRestartOptions []string `json:"crash_restart_options"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
