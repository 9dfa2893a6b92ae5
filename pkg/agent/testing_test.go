package agent

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/argusops/argus-go/pkg/config"
	"github.com/argusops/argus-go/pkg/domain"
)

// fakeSender substitutes the transmission pipeline so scenario tests can
// observe dispatched payloads without a network.
type fakeSender struct {
	mu     sync.Mutex
	sent   []*domain.Payload
	usage  int
	faults []error
}

func (f *fakeSender) Send(payload *domain.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
}

func (f *fakeSender) Usage(token, correlationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage++
}

func (f *fakeSender) Fault(err error, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = append(f.faults, err)
}

func (f *fakeSender) CaptureEnabled() bool { return true }

func (f *fakeSender) payloads() []*domain.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Payload, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeSender) faultCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.faults)
}

// newTestAgent builds an agent with a captured pipeline and a discarded
// logger. mutate adjusts the default configuration before construction.
func newTestAgent(t *testing.T, opts Options, mutate func(*config.Config)) (*Agent, *fakeSender) {
	t.Helper()

	cfg := config.Default()
	cfg.Token = "test-token"
	cfg.Application = "test-app"
	if mutate != nil {
		mutate(cfg)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	a := New(cfg, opts)
	fs := &fakeSender{}
	a.pipeline = fs
	return a, fs
}
