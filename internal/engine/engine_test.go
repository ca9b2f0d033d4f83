package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openstatus-dev/openstatus/internal/types"
)

type fakeStore struct {
	mu      sync.Mutex
	updates []types.MonitorStatus
	err     error
}

func (f *fakeStore) UpdateMonitorStatus(_ context.Context, _ uint, status types.MonitorStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, status)
	return nil
}

func snapshot() Snapshot {
	return Snapshot{
		ID:          1,
		WorkspaceID: 7,
		Name:        "api",
		URL:         "https://api.example.com",
		Status:      types.MonitorActive,
		Regions:     []string{"ams", "iad"},
	}
}

func ok(latency int64, ts int64) types.ProbeResult {
	return types.ProbeResult{Success: true, StatusCode: 200, LatencyMS: latency, Region: "ams", Timestamp: ts}
}

func fail(ts int64) types.ProbeResult {
	return types.ProbeResult{Success: false, StatusCode: 503, LatencyMS: 120, Region: "ams", Error: "503 Service Unavailable", Timestamp: ts}
}

func TestProcessEmitsOncePerEdge(t *testing.T) {
	e := New(&fakeStore{}, nil)
	ctx := context.Background()
	m := snapshot()

	var events []*Event

	// 1000 consecutive failures after the first failure emit exactly one alert.
	for i := 0; i < 1000; i++ {
		ev, err := e.Process(ctx, m, fail(int64(1000+i)))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if ev != nil {
			events = append(events, ev)
		}
	}

	if len(events) != 1 {
		t.Fatalf("got %d events for 1000 failing probes, want 1", len(events))
	}
	if events[0].Kind != types.EventAlert {
		t.Errorf("event kind = %s, want alert", events[0].Kind)
	}
	if events[0].ErrorMessage != "503 Service Unavailable" {
		t.Errorf("event error = %q", events[0].ErrorMessage)
	}
}

func TestProcessRecoveryComputesDuration(t *testing.T) {
	e := New(&fakeStore{}, nil)
	ctx := context.Background()
	m := snapshot()

	start := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC).UnixMilli()

	if _, err := e.Process(ctx, m, fail(start)); err != nil {
		t.Fatal(err)
	}

	ev, err := e.Process(ctx, m, ok(80, start+330_000)) // 5m30s later
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != types.EventRecovery {
		t.Fatalf("got %+v, want recovery event", ev)
	}
	if ev.Duration == nil {
		t.Fatal("recovery event should carry a duration")
	}
	if *ev.Duration != 5*time.Minute+30*time.Second {
		t.Errorf("duration = %s, want 5m30s", ev.Duration)
	}
}

func TestProcessDegradedEdges(t *testing.T) {
	e := New(&fakeStore{}, nil)
	ctx := context.Background()
	m := snapshot()
	m.DegradedAfterMS = 1000

	// active -> degraded emits.
	ev, err := e.Process(ctx, m, ok(1500, 1))
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != types.EventDegraded {
		t.Fatalf("got %+v, want degraded event", ev)
	}

	// degraded -> active is silent.
	ev, err = e.Process(ctx, m, ok(100, 2))
	if err != nil {
		t.Fatal(err)
	}
	if ev != nil {
		t.Fatalf("degraded -> active emitted %s, want silence", ev.Kind)
	}

	// The silent edge still updates state: a fresh degraded emits again.
	ev, err = e.Process(ctx, m, ok(2000, 3))
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != types.EventDegraded {
		t.Fatalf("got %+v, want degraded event after silent recovery", ev)
	}
}

func TestProcessErrorToDegraded(t *testing.T) {
	e := New(&fakeStore{}, nil)
	ctx := context.Background()
	m := snapshot()
	m.DegradedAfterMS = 1000

	if _, err := e.Process(ctx, m, fail(1000)); err != nil {
		t.Fatal(err)
	}

	ev, err := e.Process(ctx, m, ok(5000, 61_000))
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != types.EventDegraded {
		t.Fatalf("got %+v, want degraded event", ev)
	}
	if ev.Duration == nil {
		t.Error("error -> degraded should carry the error duration")
	}
}

func TestProcessDegradedToErrorEmitsAlert(t *testing.T) {
	e := New(&fakeStore{}, nil)
	ctx := context.Background()
	m := snapshot()
	m.DegradedAfterMS = 1000

	if _, err := e.Process(ctx, m, ok(2000, 1)); err != nil {
		t.Fatal(err)
	}

	ev, err := e.Process(ctx, m, fail(2))
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != types.EventAlert {
		t.Fatalf("got %+v, want alert from degraded", ev)
	}
}

func TestProcessSeedsFromPersistedStatus(t *testing.T) {
	e := New(&fakeStore{}, nil)
	ctx := context.Background()
	m := snapshot()
	m.Status = types.MonitorError

	// Still failing: no edge crossed, no event.
	ev, err := e.Process(ctx, m, fail(1))
	if err != nil {
		t.Fatal(err)
	}
	if ev != nil {
		t.Fatalf("got %s event for a probe matching the persisted status", ev.Kind)
	}

	// Recovery after restart: the time of entry into error is unknown, so no
	// duration is attached rather than a bogus zero.
	ev, err = e.Process(ctx, m, ok(90, 2))
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != types.EventRecovery {
		t.Fatalf("got %+v, want recovery", ev)
	}
	if ev.Duration != nil {
		t.Errorf("duration = %v, want nil for unknown error entry time", ev.Duration)
	}
}

func TestProcessStoreFailureKeepsState(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	e := New(store, nil)
	ctx := context.Background()
	m := snapshot()

	if _, err := e.Process(ctx, m, fail(1)); err == nil {
		t.Fatal("Process() should surface store errors")
	}

	// The edge was not recorded, so once the store recovers the alert is
	// still emitted.
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	ev, err := e.Process(ctx, m, fail(2))
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil || ev.Kind != types.EventAlert {
		t.Fatalf("got %+v, want alert after store recovery", ev)
	}
}

func TestProcessConcurrentProbesSingleEdge(t *testing.T) {
	store := &fakeStore{}
	e := New(store, nil)
	ctx := context.Background()
	m := snapshot()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var events []*Event

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev, err := e.Process(ctx, m, fail(int64(i)))
			if err != nil {
				t.Error(err)
				return
			}
			if ev != nil {
				mu.Lock()
				events = append(events, ev)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if len(events) != 1 {
		t.Fatalf("concurrent probes produced %d events, want 1", len(events))
	}
	if len(store.updates) != 1 {
		t.Fatalf("concurrent probes produced %d status writes, want 1", len(store.updates))
	}
}

func TestEventRegionsFallBackToMonitorRegions(t *testing.T) {
	e := New(&fakeStore{}, nil)
	ctx := context.Background()
	m := snapshot()

	r := fail(1)
	r.Region = ""

	ev, err := e.Process(ctx, m, r)
	if err != nil {
		t.Fatal(err)
	}
	if ev == nil {
		t.Fatal("want alert event")
	}
	if len(ev.Regions) != 2 || ev.Regions[0] != "ams" || ev.Regions[1] != "iad" {
		t.Errorf("regions = %v, want monitor regions", ev.Regions)
	}
}
