package agent

import (
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/argusops/argus-go/pkg/domain"
)

// assembleLocked merges the canonical error, the event log snapshots, the
// metadata store, and host environment facts into one immutable payload,
// then clears the log so the same telemetry is not reported twice.
// Caller must hold a.mu.
func (a *Agent) assembleLocked(kind domain.EntryKind, ce *domain.CanonicalError, suppressed int) *domain.Payload {
	payload := &domain.Payload{
		ReportID:      uuid.NewString(),
		CorrelationID: a.correlationID,
		Token:         a.cfg.Token,
		Application:   a.cfg.Application,
		EntryKind:     kind,
		Timestamp:     time.Now().UTC(),
		Error:         *ce,
		Console:       capConsole(consoleSnapshot(a.log.All(domain.CategoryConsole)), a.cfg.ConsoleBudget),
		Network:       networkSnapshot(a.log.All(domain.CategoryNetwork)),
		Navigation:    navigationSnapshot(a.log.All(domain.CategoryNavigation)),
		Visitor:       visitorSnapshot(a.log.All(domain.CategoryVisitor)),
		Metadata:      a.metadataSnapshotLocked(),
		Environment:   a.environment(),
		Throttled:     suppressed,
	}

	a.log.Clear()
	return payload
}

func (a *Agent) metadataSnapshotLocked() []domain.MetadataItem {
	items := make([]domain.MetadataItem, 0, len(a.metadata))
	for k, v := range a.metadata {
		items = append(items, domain.MetadataItem{Key: k, Value: v})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}

func (a *Agent) environment() domain.Environment {
	return domain.Environment{
		Hostname:       a.hostname,
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		RuntimeVersion: runtime.Version(),
		PID:            os.Getpid(),
		AgentVersion:   Version,
		UptimeMS:       time.Since(a.installedAt).Milliseconds(),
	}
}

// capConsole enforces the total console-byte budget for one report. Entries
// keep their full message oldest-first while the budget allows; the entry
// that crosses the budget is truncated to the remainder and everything after
// it is emptied. This guards against one pathological log line inflating
// every subsequent report.
func capConsole(events []domain.ConsoleEvent, budget int) []domain.ConsoleEvent {
	remaining := budget
	for i := range events {
		if len(events[i].Message) <= remaining {
			remaining -= len(events[i].Message)
			continue
		}
		events[i].Message = events[i].Message[:remaining]
		remaining = 0
	}
	return events
}

func consoleSnapshot(entries []domain.LogEntry) []domain.ConsoleEvent {
	out := make([]domain.ConsoleEvent, 0, len(entries))
	for _, e := range entries {
		if ev, ok := e.Value.(domain.ConsoleEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func networkSnapshot(entries []domain.LogEntry) []domain.NetworkEvent {
	out := make([]domain.NetworkEvent, 0, len(entries))
	for _, e := range entries {
		if ev, ok := e.Value.(domain.NetworkEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func navigationSnapshot(entries []domain.LogEntry) []domain.NavigationEvent {
	out := make([]domain.NavigationEvent, 0, len(entries))
	for _, e := range entries {
		if ev, ok := e.Value.(domain.NavigationEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func visitorSnapshot(entries []domain.LogEntry) []domain.ActionEvent {
	out := make([]domain.ActionEvent, 0, len(entries))
	for _, e := range entries {
		if ev, ok := e.Value.(domain.ActionEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}
