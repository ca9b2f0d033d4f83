package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openstatus-dev/openstatus/internal/engine"
	"github.com/openstatus-dev/openstatus/internal/types"
)

type stubAdapter struct {
	provider types.Provider
	result   SendResult
	delay    time.Duration
	panics   bool

	mu    sync.Mutex
	calls int
}

func (s *stubAdapter) Provider() types.Provider {
	return s.provider
}

func (s *stubAdapter) Send(ctx context.Context, _ types.EventKind, _ MessageData, _ types.NotifierConfig) SendResult {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.panics {
		panic("adapter blew up")
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return TransportError(ctx.Err().Error())
		}
	}

	return s.result
}

func (s *stubAdapter) SendTest(ctx context.Context, data MessageData, dest types.NotifierConfig) error {
	return nil
}

func event() *engine.Event {
	return &engine.Event{ID: "ev-1", Kind: types.EventAlert, MonitorID: 1}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	slack := &stubAdapter{provider: types.ProviderSlack, result: Delivered()}
	email := &stubAdapter{provider: types.ProviderEmail, result: TransportError("dial tcp: connection refused")}

	d := NewDispatcher(time.Second, nil, slack, email)

	results := d.Dispatch(context.Background(), event(), MessageData{}, []Target{
		{NotifierID: 1, Provider: types.ProviderSlack},
		{NotifierID: 2, Provider: types.ProviderEmail},
	})

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].NotifierID != 1 || results[0].Result.State != StateDelivered {
		t.Errorf("slack result = %+v, want delivered", results[0])
	}
	if results[1].NotifierID != 2 || results[1].Result.State != StateTransportError {
		t.Errorf("email result = %+v, want transport error", results[1])
	}
}

func TestDispatchAttemptsExactlyOncePerTarget(t *testing.T) {
	slack := &stubAdapter{provider: types.ProviderSlack, result: TransportError("boom")}

	d := NewDispatcher(time.Second, nil, slack)

	targets := []Target{
		{NotifierID: 1, Provider: types.ProviderSlack},
		{NotifierID: 2, Provider: types.ProviderSlack},
		{NotifierID: 3, Provider: types.ProviderSlack},
	}

	d.Dispatch(context.Background(), event(), MessageData{}, targets)

	if slack.calls != len(targets) {
		t.Errorf("adapter called %d times, want %d (no retries, no skips)", slack.calls, len(targets))
	}
}

func TestDispatchUnknownProviderRejected(t *testing.T) {
	d := NewDispatcher(time.Second, nil)

	results := d.Dispatch(context.Background(), event(), MessageData{}, []Target{
		{NotifierID: 9, Provider: types.Provider("pager")},
	})

	if results[0].Result.State != StateRejected {
		t.Errorf("result = %+v, want rejected", results[0])
	}
}

func TestDispatchTimeout(t *testing.T) {
	slow := &stubAdapter{provider: types.ProviderSlack, delay: time.Second, result: Delivered()}

	d := NewDispatcher(20*time.Millisecond, nil, slow)

	results := d.Dispatch(context.Background(), event(), MessageData{}, []Target{
		{NotifierID: 1, Provider: types.ProviderSlack},
	})

	if results[0].Result.State != StateTransportError || results[0].Result.Detail != "timeout" {
		t.Errorf("result = %+v, want transport error %q", results[0].Result, "timeout")
	}
}

func TestDispatchCancellation(t *testing.T) {
	slow := &stubAdapter{provider: types.ProviderSlack, delay: time.Second, result: Delivered()}

	d := NewDispatcher(5*time.Second, nil, slow)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	results := d.Dispatch(ctx, event(), MessageData{}, []Target{
		{NotifierID: 1, Provider: types.ProviderSlack},
	})

	if results[0].Result.State != StateTransportError || results[0].Result.Detail != "cancelled" {
		t.Errorf("result = %+v, want transport error %q", results[0].Result, "cancelled")
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	bad := &stubAdapter{provider: types.ProviderWebhook, panics: true}
	good := &stubAdapter{provider: types.ProviderSlack, result: Delivered()}

	d := NewDispatcher(time.Second, nil, bad, good)

	results := d.Dispatch(context.Background(), event(), MessageData{}, []Target{
		{NotifierID: 1, Provider: types.ProviderWebhook},
		{NotifierID: 2, Provider: types.ProviderSlack},
	})

	if results[0].Result.State != StateTransportError {
		t.Errorf("panicking adapter result = %+v, want transport error", results[0])
	}
	if results[1].Result.State != StateDelivered {
		t.Errorf("healthy adapter result = %+v, want delivered", results[1])
	}
}

func TestDispatchRunsInParallel(t *testing.T) {
	var inFlight, peak int64

	adapters := make([]Adapter, 0, 1)
	probe := &parallelProbe{provider: types.ProviderSlack, inFlight: &inFlight, peak: &peak}
	adapters = append(adapters, probe)

	d := NewDispatcher(time.Second, nil, adapters...)

	targets := make([]Target, 8)
	for i := range targets {
		targets[i] = Target{NotifierID: uint(i + 1), Provider: types.ProviderSlack}
	}

	d.Dispatch(context.Background(), event(), MessageData{}, targets)

	if atomic.LoadInt64(&peak) < 2 {
		t.Errorf("peak concurrency = %d, want at least 2", peak)
	}
}

type parallelProbe struct {
	provider types.Provider
	inFlight *int64
	peak     *int64
}

func (p *parallelProbe) Provider() types.Provider {
	return p.provider
}

func (p *parallelProbe) Send(ctx context.Context, _ types.EventKind, _ MessageData, _ types.NotifierConfig) SendResult {
	n := atomic.AddInt64(p.inFlight, 1)
	for {
		old := atomic.LoadInt64(p.peak)
		if n <= old || atomic.CompareAndSwapInt64(p.peak, old, n) {
			break
		}
	}
	time.Sleep(30 * time.Millisecond)
	atomic.AddInt64(p.inFlight, -1)
	return Delivered()
}

func (p *parallelProbe) SendTest(ctx context.Context, data MessageData, dest types.NotifierConfig) error {
	return nil
}
