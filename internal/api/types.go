package api

import "github.com/pidwatch/pidwatch/internal/checker"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State        string `json:"state"` // "watching"
	TrackedPIDs  int    `json:"tracked_pids"`
	DeadNotified int    `json:"dead_notified"`
	StalePIDs    int    `json:"stale_pids"`
	AlertCount   int    `json:"alert_count"`
	UptimeSec    int64  `json:"uptime_sec"`
}

// ProcessResponse is one tracked PID in GET /api/v1/processes.
type ProcessResponse struct {
	PID          int    `json:"pid"`
	LastSeen     string `json:"last_seen"` // RFC3339
	AgeSec       int64  `json:"age_sec"`
	Stale        bool   `json:"stale"`
	DeadNotified bool   `json:"dead_notified"`
}

// StateResponse is the payload for GET /api/v1/state and the websocket
// stream envelope body: the full watch state in one shot.
type StateResponse struct {
	Processes   []ProcessResponse `json:"processes"`
	Alerts      []checker.Alert   `json:"alerts"`
	GeneratedAt string            `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
