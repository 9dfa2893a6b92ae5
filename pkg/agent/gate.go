package agent

import (
	"sync"
	"time"
)

// fingerprintLimit bounds the message+stack prefix used for dedup.
const fingerprintLimit = 10_000

// Decision is the gate's verdict on one admission attempt.
type Decision struct {
	Admitted  bool
	Deduped   bool
	Throttled bool
	// Suppressed carries the previous window's throttled count on the first
	// admission of a new window, so the report can tell the server how many
	// attempts were dropped.
	Suppressed int
}

// Gate is the backpressure mechanism: it trades completeness of telemetry
// for bounded outbound volume during error storms. It combines a rolling
// 1-second admission window with consecutive-duplicate suppression.
type Gate struct {
	mu          sync.Mutex
	windowLimit int
	dedupe      bool

	windowStart     time.Time
	attempts        int
	throttled       int
	lastFingerprint string

	now func() time.Time // injectable clock
}

// NewGate creates a gate admitting at most windowLimit reports per rolling
// second, with optional consecutive dedup.
func NewGate(windowLimit int, dedupe bool) *Gate {
	return &Gate{
		windowLimit: windowLimit,
		dedupe:      dedupe,
		now:         time.Now,
	}
}

// Admit decides whether a report with the given message and stack proceeds.
// Called once per normalized error before any expensive work is performed.
func (g *Gate) Admit(message, stack string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dedupe {
		if fp := fingerprint(message, stack); fp == g.lastFingerprint && fp != "" {
			return Decision{Deduped: true}
		}
	}

	now := g.now()
	var suppressed int
	if now.Sub(g.windowStart) >= time.Second {
		suppressed = g.throttled
		g.attempts = 0
		g.throttled = 0
		g.windowStart = now
	}

	g.attempts++
	if g.attempts > g.windowLimit {
		g.throttled++
		return Decision{Throttled: true}
	}

	if g.dedupe {
		// Only the last accepted fingerprint is remembered: this is
		// consecutive-duplicate suppression, not a historical set.
		g.lastFingerprint = fingerprint(message, stack)
	}
	return Decision{Admitted: true, Suppressed: suppressed}
}

func fingerprint(message, stack string) string {
	combined := message + stack
	if len(combined) > fingerprintLimit {
		combined = combined[:fingerprintLimit]
	}
	return combined
}
