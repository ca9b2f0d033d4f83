package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openstatus-dev/openstatus/internal/engine"
	"github.com/openstatus-dev/openstatus/internal/types"
)

// Target is one subscribed notifier resolved to its decoded destination.
type Target struct {
	NotifierID uint
	Provider   types.Provider
	Config     types.NotifierConfig
}

// ChannelResult is the per-channel outcome of one dispatch.
type ChannelResult struct {
	NotifierID uint
	Provider   types.Provider
	Result     SendResult
}

// Dispatcher fans one event out to all subscribed notifiers in parallel,
// attempting exactly once per (event, notifier) pair. One channel's failure
// never prevents delivery attempts to the others and never escalates to the
// caller; it is captured in that channel's result.
type Dispatcher struct {
	adapters map[types.Provider]Adapter
	timeout  time.Duration
	log      *slog.Logger
}

const defaultSendTimeout = 30 * time.Second

func NewDispatcher(timeout time.Duration, log *slog.Logger, adapters ...Adapter) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	d := &Dispatcher{
		adapters: make(map[types.Provider]Adapter, len(adapters)),
		timeout:  timeout,
		log:      log,
	}
	for _, a := range adapters {
		d.adapters[a.Provider()] = a
	}
	return d
}

// AdapterFor returns the registered adapter for a provider kind.
func (d *Dispatcher) AdapterFor(p types.Provider) (Adapter, bool) {
	a, ok := d.adapters[p]
	return a, ok
}

// Dispatch invokes the matching adapter once per target, in parallel, and
// blocks until every channel has a result. Results are positionally aligned
// with targets.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *engine.Event, data MessageData, targets []Target) []ChannelResult {
	results := make([]ChannelResult, len(targets))

	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)

		go func(i int, target Target) {
			defer wg.Done()
			results[i] = ChannelResult{
				NotifierID: target.NotifierID,
				Provider:   target.Provider,
				Result:     d.send(ctx, ev.Kind, data, target),
			}

			if results[i].Result.State != StateDelivered {
				d.log.Warn("channel delivery failed",
					slog.String("event_id", ev.ID),
					slog.Uint64("notifier_id", uint64(target.NotifierID)),
					slog.String("provider", string(target.Provider)),
					slog.String("state", string(results[i].Result.State)),
					slog.String("detail", results[i].Result.Detail),
				)
			}
		}(i, target)
	}

	wg.Wait()

	return results
}

func (d *Dispatcher) send(ctx context.Context, kind types.EventKind, data MessageData, target Target) (result SendResult) {
	adapter, ok := d.adapters[target.Provider]
	if !ok {
		return Rejected(fmt.Sprintf("no adapter registered for provider %q", target.Provider))
	}

	// A panicking adapter must not take the other channels down with it.
	defer func() {
		if r := recover(); r != nil {
			result = TransportError(fmt.Sprintf("panic: %v", r))
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result = adapter.Send(callCtx, kind, data, target.Config)

	if result.State == StateTransportError {
		switch {
		case ctx.Err() != nil:
			result = TransportError("cancelled")
		case callCtx.Err() != nil:
			result = TransportError("timeout")
		}
	}

	return result
}

// Global dispatcher instance, wired in main.
var (
	defaultDispatcher   *Dispatcher
	defaultDispatcherMu sync.RWMutex
)

// Initialize installs the process-wide dispatcher.
func Initialize(d *Dispatcher) {
	defaultDispatcherMu.Lock()
	defer defaultDispatcherMu.Unlock()
	defaultDispatcher = d
}

// Default returns the process-wide dispatcher, or nil before Initialize.
func Default() *Dispatcher {
	defaultDispatcherMu.RLock()
	defer defaultDispatcherMu.RUnlock()
	return defaultDispatcher
}
