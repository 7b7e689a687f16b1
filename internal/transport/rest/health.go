package rest

import (
	"context"
	"net/http"
	"time"
)

const probeTimeout = 3 * time.Second

const (
	statusOK       = "ok"
	statusDown     = "down"
	statusDraining = "draining"
)

type dbPinger interface {
	Ping(ctx context.Context) error
}

// taskQueue is the background runner as seen by the probes.
type taskQueue interface {
	Backlog() int
	Draining() bool
}

// HealthHandler serves the liveness, readiness and health probes.
type HealthHandler struct {
	db      dbPinger
	tasks   taskQueue
	version string
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler. tasks may be nil.
func NewHealthHandler(db dbPinger, tasks taskQueue, version string) *HealthHandler {
	return &HealthHandler{db: db, tasks: tasks, version: version, now: time.Now}
}

// HealthResponse is the body of every probe.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// ComponentStatus is the state of one dependency.
type ComponentStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
	Backlog *int   `json:"backlog,omitempty"`
}

// Live answers 200 while the process can serve HTTP at all.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: statusOK, Timestamp: h.now()})
}

// Ready answers 503 when storage is unreachable or the task runner is
// draining for shutdown, so load balancers stop routing submissions here.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status, _ := h.probe(r.Context())
	writeJSON(w, httpStatus(status), HealthResponse{Status: status, Timestamp: h.now()})
}

// Health is Ready with per-component detail and the build version.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, components := h.probe(r.Context())
	writeJSON(w, httpStatus(status), HealthResponse{
		Status:     status,
		Version:    h.version,
		Components: components,
		Timestamp:  h.now(),
	})
}

// probe checks every component; the overall status is the first non-ok one.
func (h *HealthHandler) probe(ctx context.Context) (string, map[string]ComponentStatus) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	overall := statusOK
	components := make(map[string]ComponentStatus, 2)

	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		components["database"] = ComponentStatus{Status: statusDown, Error: err.Error()}
		overall = statusDown
	} else {
		components["database"] = ComponentStatus{Status: statusOK, Latency: time.Since(start).String()}
	}

	if h.tasks != nil {
		backlog := h.tasks.Backlog()
		worker := ComponentStatus{Status: statusOK, Backlog: &backlog}
		if h.tasks.Draining() {
			worker.Status = statusDraining
			if overall == statusOK {
				overall = statusDraining
			}
		}
		components["worker"] = worker
	}
	return overall, components
}

func httpStatus(status string) int {
	if status == statusOK {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
