package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pidwatch/pidwatch/internal/checker"
	"github.com/pidwatch/pidwatch/internal/registry"
)

// Handler serves all /api/v1/* endpoints, reading watch state from the
// registry and alert history from the checker.
type Handler struct {
	reg        *registry.Registry
	chk        *checker.Checker
	staleAfter time.Duration
	started    time.Time
	mux        *http.ServeMux
	now        func() time.Time // injectable for deterministic tests
}

// New creates a Handler and registers all routes.
func New(reg *registry.Registry, chk *checker.Checker, staleAfter time.Duration) *Handler {
	h := &Handler{
		reg:        reg,
		chk:        chk,
		staleAfter: staleAfter,
		started:    time.Now(),
		mux:        http.NewServeMux(),
		now:        time.Now,
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/processes", h.listProcesses)
	h.mux.HandleFunc("/api/v1/processes/", h.getProcess) // subtree — extracts {pid}
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/state", h.state)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// BuildState assembles the full watch state; shared with the stream hub.
func (h *Handler) BuildState() StateResponse {
	now := h.now()
	entries := h.reg.Snapshot()
	procs := make([]ProcessResponse, 0, len(entries))
	for _, e := range entries {
		procs = append(procs, h.toProcessResponse(e.PID, e.LastSeen, now))
	}
	return StateResponse{
		Processes:   procs,
		Alerts:      h.chk.History(),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := h.now()
	stale := 0
	for _, e := range h.reg.Snapshot() {
		if now.Sub(e.LastSeen) > h.staleAfter {
			stale++
		}
	}

	jsonResp(w, http.StatusOK, HealthResponse{
		State:        "watching",
		TrackedPIDs:  h.reg.Count(),
		DeadNotified: h.reg.DeadNotifiedCount(),
		StalePIDs:    stale,
		AlertCount:   len(h.chk.History()),
		UptimeSec:    int64(now.Sub(h.started).Seconds()),
	})
}

func (h *Handler) listProcesses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := h.now()
	entries := h.reg.Snapshot()
	out := make([]ProcessResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, h.toProcessResponse(e.PID, e.LastSeen, now))
	}
	jsonResp(w, http.StatusOK, out)
}

func (h *Handler) getProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/processes/")
	if raw == "" {
		h.listProcesses(w, r)
		return
	}
	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 {
		jsonErr(w, http.StatusBadRequest, "pid must be a positive integer")
		return
	}

	ts, ok := h.reg.LastSeen(pid)
	if !ok {
		jsonErr(w, http.StatusNotFound, "pid not tracked")
		return
	}
	jsonResp(w, http.StatusOK, h.toProcessResponse(pid, ts, h.now()))
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	hist := h.chk.History()
	if hist == nil {
		hist = []checker.Alert{}
	}
	jsonResp(w, http.StatusOK, hist)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.BuildState())
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) toProcessResponse(pid int, lastSeen, now time.Time) ProcessResponse {
	age := now.Sub(lastSeen)
	return ProcessResponse{
		PID:          pid,
		LastSeen:     lastSeen.UTC().Format(time.RFC3339),
		AgeSec:       int64(age.Seconds()),
		Stale:        age > h.staleAfter,
		DeadNotified: h.reg.IsDeadNotified(pid),
	}
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
