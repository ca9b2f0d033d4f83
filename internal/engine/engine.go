// Package engine decides, for each incoming probe result, whether a
// monitor's externally visible status changed, and emits one notification
// event per state edge. A run of identical observations never re-emits.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openstatus-dev/openstatus/internal/types"
)

// Snapshot is the subset of a monitor the engine needs to process one probe
// result.
type Snapshot struct {
	ID              uint
	WorkspaceID     uint
	Name            string
	URL             string
	Status          types.MonitorStatus
	DegradedAfterMS int
	Regions         []string
}

// Event is a transient record of a detected state transition. It is consumed
// synchronously by the dispatch coordinator and then discarded.
type Event struct {
	ID           string
	Kind         types.EventKind
	MonitorID    uint
	WorkspaceID  uint
	StatusCode   int
	ErrorMessage string
	Timestamp    int64 // unix milliseconds, from the probe
	LatencyMS    int64
	Regions      []string

	// Duration is how long the monitor spent in error before this event.
	// nil means unknown, which is distinct from zero.
	Duration *time.Duration
}

// StatusStore persists the monitor's current status. The engine writes
// through it before mutating its in-memory state so a failed write never
// leaves the two out of sync.
type StatusStore interface {
	UpdateMonitorStatus(ctx context.Context, monitorID uint, status types.MonitorStatus) error
}

type Engine struct {
	store StatusStore
	log   *slog.Logger

	mu    sync.Mutex
	cells map[uint]*cell
}

// cell is the per-monitor state guarded independently, so two concurrently
// processed probe results for the same monitor serialize against each other
// without a global lock.
type cell struct {
	mu         sync.Mutex
	seeded     bool
	status     types.MonitorStatus
	errorSince time.Time
}

func New(store StatusStore, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store: store,
		log:   log,
		cells: make(map[uint]*cell),
	}
}

func (e *Engine) cell(monitorID uint) *cell {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.cells[monitorID]
	if !ok {
		c = &cell{}
		e.cells[monitorID] = c
	}
	return c
}

// Forget drops the in-memory state for a monitor, e.g. after deletion.
func (e *Engine) Forget(monitorID uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cells, monitorID)
}

// Process consumes one probe result for the given monitor. It returns a
// non-nil event iff a notifiable state edge was crossed. Repeated results in
// the same state are a no-op, and a degraded-to-active transition is
// deliberately silent so brief latency blips do not spam recovery messages.
func (e *Engine) Process(ctx context.Context, m Snapshot, r types.ProbeResult) (*Event, error) {
	c := e.cell(m.ID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.seeded {
		c.status = m.Status
		if c.status == "" {
			c.status = types.MonitorActive
		}
		c.seeded = true
	}

	next := nextStatus(r, m.DegradedAfterMS)

	if next == c.status {
		return nil, nil
	}

	if err := e.store.UpdateMonitorStatus(ctx, m.ID, next); err != nil {
		// State unchanged: the same edge will be retried on the next probe.
		return nil, err
	}

	prev := c.status
	probeTime := time.UnixMilli(r.Timestamp)

	var duration *time.Duration
	if prev == types.MonitorError && !c.errorSince.IsZero() {
		d := probeTime.Sub(c.errorSince)
		duration = &d
	}

	c.status = next
	if next == types.MonitorError {
		c.errorSince = probeTime
	} else {
		c.errorSince = time.Time{}
	}

	var kind types.EventKind

	switch {
	case next == types.MonitorError:
		kind = types.EventAlert
	case prev == types.MonitorError && next == types.MonitorActive:
		kind = types.EventRecovery
	case next == types.MonitorDegraded:
		kind = types.EventDegraded
	default:
		// degraded -> active: silent edge.
		e.log.Debug("silent status transition",
			slog.Uint64("monitor_id", uint64(m.ID)),
			slog.String("from", string(prev)),
			slog.String("to", string(next)),
		)
		return nil, nil
	}

	ev := &Event{
		ID:           uuid.NewString(),
		Kind:         kind,
		MonitorID:    m.ID,
		WorkspaceID:  m.WorkspaceID,
		StatusCode:   r.StatusCode,
		ErrorMessage: r.Error,
		Timestamp:    r.Timestamp,
		LatencyMS:    r.LatencyMS,
		Regions:      eventRegions(r, m),
		Duration:     duration,
	}

	e.log.Info("status transition",
		slog.Uint64("monitor_id", uint64(m.ID)),
		slog.String("from", string(prev)),
		slog.String("to", string(next)),
		slog.String("event", string(kind)),
	)

	return ev, nil
}

func nextStatus(r types.ProbeResult, degradedAfterMS int) types.MonitorStatus {
	if !r.Success {
		return types.MonitorError
	}
	if degradedAfterMS > 0 && r.LatencyMS >= int64(degradedAfterMS) {
		return types.MonitorDegraded
	}
	return types.MonitorActive
}

func eventRegions(r types.ProbeResult, m Snapshot) []string {
	if r.Region != "" {
		return []string{r.Region}
	}
	return m.Regions
}
