package agent

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/argusops/argus-go/pkg/config"
	"github.com/argusops/argus-go/pkg/domain"
	"github.com/argusops/argus-go/pkg/eventlog"
	"github.com/argusops/argus-go/pkg/transport"
)

// sender is the slice of the transmission pipeline the engine depends on.
type sender interface {
	Send(payload *domain.Payload)
	Usage(token, correlationID string)
	Fault(err error, token string)
	CaptureEnabled() bool
}

// ErrorHook is the user veto: returning false suppresses transmission of
// this specific payload after dedup but before send. raw is the original
// reported value. A panicking hook does not crash the engine.
type ErrorHook func(payload *domain.Payload, raw any) bool

// Options customizes agent construction beyond the file configuration.
type Options struct {
	Logger  *slog.Logger
	OnError ErrorHook
}

// Agent is the engine singleton: it owns the event log, the gate, the wrap
// cache, the metadata store, and the transmission pipeline.
type Agent struct {
	cfg      *config.Config
	logger   *slog.Logger
	log      *eventlog.Log
	gate     *Gate
	pipeline sender
	metrics  *Metrics
	hook     ErrorHook

	correlationID string
	installedAt   time.Time
	hostname      string

	// mu guards the reporting flag, the metadata store, and the
	// runtime-mutable configuration fields.
	mu        sync.Mutex
	reporting bool
	metadata  map[string]string

	// watchMu guards the wrap cache. Entries hold their original callable
	// strongly for the agent's lifetime: Go has no weak reference to a func
	// value, and the retention is what keeps funcval addresses valid as
	// cache keys.
	watchMu    sync.Mutex
	watched    map[uintptr]*binding
	wrapperIDs map[uintptr]struct{}

	inFlight sync.WaitGroup
}

// New constructs an agent from normalized configuration. Most applications
// use the package-level Install instead; New exists for direct embedding and
// tests.
func New(cfg *config.Config, opts Options) *Agent {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Normalize(logger)

	hostname, _ := os.Hostname()

	a := &Agent{
		cfg:           cfg,
		logger:        logger,
		log:           eventlog.New(cfg.LogCapacity),
		gate:          NewGate(cfg.WindowLimit, cfg.Dedupe),
		metrics:       NewMetrics(),
		hook:          opts.OnError,
		correlationID: uuid.NewString(),
		installedAt:   time.Now(),
		hostname:      hostname,
		metadata:      make(map[string]string, len(cfg.Metadata)),
		watched:       make(map[uintptr]*binding),
		wrapperIDs:    make(map[uintptr]struct{}),
	}
	for k, v := range cfg.Metadata {
		a.metadata[k] = v
	}

	pipeline := transport.New(cfg.Transport, logger)
	pipeline.SetResultHook(a.metrics.RecordTransport)
	a.pipeline = pipeline

	a.log.SetEvictionHook(func(c domain.Category) {
		a.metrics.RecordEviction(string(c))
	})
	return a
}

// announce emits the one-shot usage beacon.
func (a *Agent) announce() {
	a.inFlight.Add(1)
	go func() {
		defer a.inFlight.Done()
		a.pipeline.Usage(a.cfg.Token, a.correlationID)
	}()
}

// Track is the manual report entry point: it bypasses interception but goes
// through the same normalize → admit → assemble → send pipeline.
func (a *Agent) Track(raw any) {
	a.report(domain.KindDirect, Normalize(raw), nil, raw, false)
}

// AddMetadata sets a key included verbatim in every subsequent report.
func (a *Agent) AddMetadata(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.metadata[key] = value
}

// RemoveMetadata deletes a metadata key.
func (a *Agent) RemoveMetadata(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.metadata, key)
}

// ApplyConfig applies the runtime-safe fields of a freshly loaded
// configuration: application name, watcher toggles, and file-sourced
// metadata. Endpoints, token, and capacities are fixed at install time.
func (a *Agent) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	a.cfg.Application = cfg.Application
	a.cfg.Console = cfg.Console
	a.cfg.Network = cfg.Network
	for k, v := range cfg.Metadata {
		a.metadata[k] = v
	}
	a.mu.Unlock()

	a.metrics.RecordConfigReload()
	a.logger.Info("Agent configuration reloaded", "application", cfg.Application)
}

// Metrics exposes the agent's self-observation counters.
func (a *Agent) Metrics() *Metrics {
	return a.metrics
}

// Flush waits for in-flight transmissions, up to timeout. Returns false on
// timeout. Intended for graceful shutdown; delivery remains best-effort.
func (a *Agent) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		a.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// report is the aggregation entry point every capture path funnels into.
// forced skips the gate and the user hook; it is used only by the one-shot
// asynchronous retry after a hook panic.
func (a *Agent) report(kind domain.EntryKind, ce *domain.CanonicalError, b *binding, raw any, forced bool) {
	defer func() {
		if r := recover(); r != nil {
			// Telemetry-capture failure: redirect to the fault channel,
			// never back into the main error path or the host.
			a.pipeline.Fault(fmt.Errorf("report pipeline panic: %v", r), a.cfg.Token)
		}
	}()

	if b != nil && len(b.bindStack) > 0 {
		// Attach registration-time context on a copy; the canonical error
		// may be shared with the caller.
		derived := *ce
		derived.BindStack = b.bindStack
		derived.BindTime = b.bindTime
		ce = &derived
	}

	payload, ok := a.admitAndAssemble(kind, ce, forced)
	if !ok {
		return
	}
	// The guard stays up for the rest of this synchronous turn, so a failure
	// raised from inside the user hook is still classified as a duplicate of
	// this report. It resets after a zero-delay deferral; the next tick's
	// failure is evaluated fresh.
	defer a.clearGuardSoon()

	if !forced && a.hook != nil {
		verdict, panicked := a.invokeHook(payload, raw)
		if panicked {
			// The hook broke while judging its own report: retry exactly
			// once, asynchronously, bypassing the hook, so the failure is
			// still observable.
			time.AfterFunc(0, func() {
				a.dispatch(payload)
			})
			return
		}
		if !verdict {
			a.metrics.RecordDropped("hook_veto")
			return
		}
	}

	a.dispatch(payload)
}

// admitAndAssemble is the locked half of report: the reentrancy guard, the
// gate decision, and payload assembly. The deferred unlock keeps the mutex
// released even when assembly panics into report's fault redirect.
func (a *Agent) admitAndAssemble(kind domain.EntryKind, ce *domain.CanonicalError, forced bool) (*domain.Payload, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reporting {
		// A failure raised while the current report is being assembled is
		// classified as a duplicate of it and dropped.
		a.metrics.RecordDropped("reentrant")
		return nil, false
	}

	var suppressed int
	if !forced {
		decision := a.gate.Admit(ce.Message, ce.StackString())
		if !decision.Admitted {
			if decision.Deduped {
				a.metrics.RecordDeduped()
			} else {
				a.metrics.RecordThrottled()
			}
			return nil, false
		}
		suppressed = decision.Suppressed
	}

	a.reporting = true
	// If assembly panics the caller never schedules the guard reset; drop
	// the guard here so the fault redirect cannot wedge reporting.
	defer func() {
		if r := recover(); r != nil {
			a.reporting = false
			panic(r)
		}
	}()

	return a.assembleLocked(kind, ce, suppressed), true
}

// clearGuardSoon lowers the reentrancy guard after a zero-delay deferral,
// once the turn that raised it has fully unwound.
func (a *Agent) clearGuardSoon() {
	time.AfterFunc(0, func() {
		a.mu.Lock()
		a.reporting = false
		a.mu.Unlock()
	})
}

// dispatch hands the immutable payload to the pipeline, fire-and-forget.
func (a *Agent) dispatch(payload *domain.Payload) {
	a.metrics.RecordSent(string(payload.EntryKind))
	a.inFlight.Add(1)
	go func() {
		defer a.inFlight.Done()
		a.pipeline.Send(payload)
	}()
}

// invokeHook guards the user hook: its panics must not crash the engine.
func (a *Agent) invokeHook(payload *domain.Payload, raw any) (verdict, panicked bool) {
	defer func() {
		if recover() != nil {
			panicked = true
		}
	}()
	return a.hook(payload, raw), false
}
