// Package eventlog implements the bounded, category-indexed telemetry log.
// It is an in-memory scratchpad, not a persisted store: a single fixed-size
// ring holds entries for all categories and evicts oldest-first across the
// whole log when capacity is exceeded.
package eventlog

import (
	"sync"

	"github.com/google/uuid"

	"github.com/argusops/argus-go/pkg/domain"
)

// DefaultCapacity is the total entry budget across all categories.
const DefaultCapacity = 30

// Log is a thread-safe fixed-size circular buffer of telemetry entries with
// oldest-first eviction and point lookup by key.
type Log struct {
	mu       sync.RWMutex
	entries  []*domain.LogEntry
	head     int // Index of oldest element
	tail     int // Index where next element will be inserted
	size     int // Current number of elements
	capacity int // Maximum capacity
	index    map[string]*domain.LogEntry
	onEvict  func(domain.Category)
}

// New creates a log with the specified total capacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:  make([]*domain.LogEntry, capacity),
		capacity: capacity,
		index:    make(map[string]*domain.LogEntry, capacity),
	}
}

// SetEvictionHook registers a callback invoked with the category of each
// evicted entry. Used for metrics; the hook must not call back into the log.
func (l *Log) SetEvictionHook(hook func(domain.Category)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onEvict = hook
}

// Add appends a value under the given category and returns its fresh opaque
// key. If the log is full the oldest entry is evicted; eviction never fails
// or blocks.
func (l *Log) Add(category domain.Category, value any) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &domain.LogEntry{
		Key:      uuid.NewString(),
		Category: category,
		Value:    value,
	}

	var evicted *domain.LogEntry
	if l.size == l.capacity {
		evicted = l.entries[l.head]
		l.head = (l.head + 1) % l.capacity
	} else {
		l.size++
	}

	l.entries[l.tail] = entry
	l.tail = (l.tail + 1) % l.capacity
	l.index[entry.Key] = entry

	if evicted != nil {
		delete(l.index, evicted.Key)
		if l.onEvict != nil {
			l.onEvict(evicted.Category)
		}
	}
	return entry.Key
}

// Get returns the value stored under (category, key), or false if the entry
// has been evicted or never existed.
func (l *Log) Get(category domain.Category, key string) (any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.index[key]
	if !ok || entry.Category != category {
		return nil, false
	}
	return entry.Value, true
}

// Amend replaces the value stored under (category, key) with the result of
// mutate. Used to complete a previously-started entry in place. If the entry
// has been evicted the amendment is silently dropped; that is expected under
// load and not an error.
func (l *Log) Amend(category domain.Category, key string, mutate func(any) any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.index[key]
	if !ok || entry.Category != category {
		return false
	}
	entry.Value = mutate(entry.Value)
	return true
}

// All returns a snapshot of the entries for one category in insertion order.
// The snapshot is a copy, not a live view: later log mutation does not affect
// an already-taken snapshot.
func (l *Log) All(category domain.Category) []domain.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]domain.LogEntry, 0, l.size)
	for i := 0; i < l.size; i++ {
		idx := (l.head + i) % l.capacity
		if e := l.entries[idx]; e != nil && e.Category == category {
			result = append(result, *e)
		}
	}
	return result
}

// Size returns the current number of entries across all categories.
func (l *Log) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Capacity returns the total entry budget.
func (l *Log) Capacity() int {
	return l.capacity
}

// Clear empties the log. Called after a report is assembled so the same
// telemetry is not reported twice.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		l.entries[i] = nil
	}
	l.head = 0
	l.tail = 0
	l.size = 0
	l.index = make(map[string]*domain.LogEntry, l.capacity)
}
