package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argusops/argus-go/pkg/config"
	"github.com/argusops/argus-go/pkg/domain"
)

func TestRecordConsoleAppends(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, nil)

	a.RecordConsole("info", "cache warmed")
	a.RecordConsole("warn", "cache stale")

	assert.Equal(t, 2, a.log.Size())
	require.True(t, a.Flush(time.Second))
	assert.Empty(t, fs.payloads(), "plain console output is context, not a report")
}

func TestRecordConsoleDisabled(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, func(cfg *config.Config) {
		cfg.Console.Enabled = false
	})

	a.RecordConsole("error", "ignored entirely")
	assert.Zero(t, a.log.Size())
}

func TestRecordConsolePromotesErrors(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, func(cfg *config.Config) {
		cfg.Console.ReportErrors = true
	})

	a.RecordConsole("error", "unhandled rejection in worker")

	require.True(t, a.Flush(time.Second))
	payloads := fs.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, domain.KindConsole, payloads[0].EntryKind)
	assert.Equal(t, "ConsoleError", payloads[0].Error.Name)
	assert.Equal(t, "unhandled rejection in worker", payloads[0].Error.Message)
	require.Len(t, payloads[0].Console, 1, "the promoting entry rides along in its own report")
}

func TestNetworkLifecycle(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	key := a.StartNetwork("GET", "https://api.example.com/items")
	require.NotEmpty(t, key)

	a.CompleteNetwork(key, "GET", "https://api.example.com/items", 200, 150*time.Millisecond, "")

	entries := a.log.All(domain.CategoryNetwork)
	require.Len(t, entries, 1)
	ev := entries[0].Value.(domain.NetworkEvent)
	assert.True(t, ev.Completed)
	assert.Equal(t, 200, ev.StatusCode)
	assert.Equal(t, int64(150), ev.Duration)
}

func TestStartNetworkDisabled(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, func(cfg *config.Config) {
		cfg.Network.Enabled = false
	})

	assert.Empty(t, a.StartNetwork("GET", "https://api.example.com/items"))
	assert.Zero(t, a.log.Size())
}

func TestCompleteNetworkReportsServerError(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, nil)

	key := a.StartNetwork("POST", "https://api.example.com/orders")
	a.CompleteNetwork(key, "POST", "https://api.example.com/orders", 503, 20*time.Millisecond, "")

	require.True(t, a.Flush(time.Second))
	payloads := fs.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, domain.KindAjax, payloads[0].EntryKind)
	assert.Equal(t, "NetworkError", payloads[0].Error.Name)
	assert.Equal(t, "503 POST https://api.example.com/orders", payloads[0].Error.Message)
}

func TestCompleteNetworkClientErrorOptIn(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, nil)

	key := a.StartNetwork("GET", "https://api.example.com/missing")
	a.CompleteNetwork(key, "GET", "https://api.example.com/missing", 404, time.Millisecond, "")
	require.True(t, a.Flush(time.Second))
	assert.Empty(t, fs.payloads(), "4xx responses are quiet by default")

	a.ApplyConfig(func() *config.Config {
		cfg := config.Default()
		cfg.Network.ReportClientErrors = true
		return cfg
	}())

	key = a.StartNetwork("GET", "https://api.example.com/missing")
	a.CompleteNetwork(key, "GET", "https://api.example.com/missing", 404, time.Millisecond, "")
	require.True(t, a.Flush(time.Second))
	assert.Len(t, fs.payloads(), 1)
}

func TestCompleteNetworkTransportError(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, nil)

	key := a.StartNetwork("GET", "https://unreachable.example.com/")
	a.CompleteNetwork(key, "GET", "https://unreachable.example.com/", 0, time.Second, "dial timeout")

	require.True(t, a.Flush(time.Second))
	payloads := fs.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, "dial timeout", payloads[0].Error.Message)
}

func TestCompleteNetworkAfterEvictionDropsSilently(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, func(cfg *config.Config) {
		cfg.Network.ReportErrors = false
	})

	key := a.StartNetwork("GET", "https://api.example.com/a")
	for i := 0; i < config.DefaultLogCapacity; i++ {
		a.RecordNavigation("/", "/next") // pushes the network entry out
	}

	assert.NotPanics(t, func() {
		a.CompleteNetwork(key, "GET", "https://api.example.com/a", 200, time.Millisecond, "")
	})
}

func TestRecordNavigationAndAction(t *testing.T) {
	a, _ := newTestAgent(t, Options{}, nil)

	a.RecordNavigation("/cart", "/checkout")
	a.RecordAction("click", "#submit")

	nav := a.log.All(domain.CategoryNavigation)
	require.Len(t, nav, 1)
	assert.Equal(t, "/checkout", nav[0].Value.(domain.NavigationEvent).To)

	actions := a.log.All(domain.CategoryVisitor)
	require.Len(t, actions, 1)
	assert.Equal(t, "#submit", actions[0].Value.(domain.ActionEvent).Target)
}

func TestReportPanicReturnsValue(t *testing.T) {
	a, fs := newTestAgent(t, Options{}, nil)

	out := a.ReportPanic("window blew up", domain.KindWindow)
	assert.Equal(t, "window blew up", out)

	require.True(t, a.Flush(time.Second))
	payloads := fs.payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, domain.KindWindow, payloads[0].EntryKind)
}
