package domain

import "time"

// Category identifies one stream of telemetry facts in the event log.
// The set is closed: reports only carry snapshots for these categories.
type Category string

const (
	// CategoryConsole holds captured log output.
	CategoryConsole Category = "console"
	// CategoryNetwork holds outbound HTTP request lifecycles.
	CategoryNetwork Category = "network"
	// CategoryNavigation holds route transitions observed by the middleware.
	CategoryNavigation Category = "navigation"
	// CategoryVisitor holds application-supplied interaction facts.
	CategoryVisitor Category = "visitor"
)

// Categories lists every valid category in a stable order.
func Categories() []Category {
	return []Category{CategoryConsole, CategoryNetwork, CategoryNavigation, CategoryVisitor}
}

// EntryKind names the capture mechanism that produced a report.
type EntryKind string

const (
	// KindCatch marks failures observed by a watched function wrapper.
	KindCatch EntryKind = "catch"
	// KindWindow marks panics recovered at the top-level request boundary.
	KindWindow EntryKind = "window"
	// KindPromise marks panics recovered from watched goroutines.
	KindPromise EntryKind = "promise"
	// KindAjax marks failed outbound HTTP calls.
	KindAjax EntryKind = "ajax"
	// KindConsole marks reports promoted from error-level log output.
	KindConsole EntryKind = "console"
	// KindDirect marks reports submitted explicitly via Track.
	KindDirect EntryKind = "direct"
)

// LogEntry is one observed fact in the bounded event log.
// Entries are immutable once appended, except network entries which are
// completed in place by key lookup.
type LogEntry struct {
	Key      string   `json:"key"`
	Category Category `json:"category"`
	Value    any      `json:"value"`
}

// ConsoleEvent is the value payload for console-category entries.
type ConsoleEvent struct {
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkEvent is the value payload for network-category entries.
// Created at request start and completed at request end; if the entry has
// been evicted before completion, the completion is silently dropped.
type NetworkEvent struct {
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	StartedAt  time.Time `json:"startedAt"`
	Completed  bool      `json:"completed"`
	StatusCode int       `json:"statusCode,omitempty"`
	Duration   int64     `json:"durationMs,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// NavigationEvent is the value payload for navigation-category entries.
type NavigationEvent struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionEvent is the value payload for visitor-category entries.
type ActionEvent struct {
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
}
