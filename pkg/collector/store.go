package collector

import (
	"sync"

	"github.com/argusops/argus-go/pkg/domain"
)

// DefaultStoreCapacity bounds the in-memory report store.
const DefaultStoreCapacity = 1000

// ReportStore keeps the most recent accepted reports in memory for the
// inspection endpoint. Oldest reports fall off when the capacity is reached;
// durable storage is a forwarding concern, not the collector's.
type ReportStore struct {
	mu       sync.RWMutex
	reports  []*domain.Payload
	head     int
	size     int
	capacity int
}

// NewReportStore creates a store holding at most capacity reports.
func NewReportStore(capacity int) *ReportStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &ReportStore{
		reports:  make([]*domain.Payload, capacity),
		capacity: capacity,
	}
}

// Add appends a report, evicting the oldest at capacity.
func (s *ReportStore) Add(p *domain.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tail := (s.head + s.size) % s.capacity
	s.reports[tail] = p
	if s.size < s.capacity {
		s.size++
	} else {
		s.head = (s.head + 1) % s.capacity
	}
}

// Recent returns up to n reports, newest first.
func (s *ReportStore) Recent(n int) []*domain.Payload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > s.size {
		n = s.size
	}
	out := make([]*domain.Payload, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.head + s.size - 1 - i + s.capacity) % s.capacity
		out = append(out, s.reports[idx])
	}
	return out
}

// Len reports the number of stored reports.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
