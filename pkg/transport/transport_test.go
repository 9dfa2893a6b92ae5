package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argusops/argus-go/pkg/config"
	"github.com/argusops/argus-go/pkg/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func pipelineFor(t *testing.T, captureStatus int) (*Pipeline, *atomic.Int64) {
	t.Helper()

	var captures atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/capture":
			captures.Add(1)
			var payload domain.Payload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			w.WriteHeader(captureStatus)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(server.Close)

	p := New(config.TransportConfig{ForwardingEndpoint: server.URL}, discard())
	return p, &captures
}

func TestSendSuccess(t *testing.T) {
	p, captures := pipelineFor(t, http.StatusAccepted)

	p.Send(&domain.Payload{ReportID: "r1", Token: "tok"})
	p.Send(&domain.Payload{ReportID: "r2", Token: "tok"})

	assert.Equal(t, int64(2), captures.Load())
	assert.True(t, p.CaptureEnabled())
}

func TestSendFailureDisablesChannelOneWay(t *testing.T) {
	p, captures := pipelineFor(t, http.StatusForbidden)

	p.Send(&domain.Payload{ReportID: "r1"})
	assert.False(t, p.CaptureEnabled())

	// Subsequent sends are no-ops for the remainder of the process lifetime.
	p.Send(&domain.Payload{ReportID: "r2"})
	p.Send(&domain.Payload{ReportID: "r3"})
	assert.Equal(t, int64(1), captures.Load())
}

func TestSendTransportErrorDisablesChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	p := New(config.TransportConfig{ForwardingEndpoint: server.URL}, discard())
	p.Send(&domain.Payload{ReportID: "r1"})

	assert.False(t, p.CaptureEnabled())
}

func TestUnusableEndpointStartsDisabled(t *testing.T) {
	p := New(config.TransportConfig{CaptureEndpoint: ""}, discard())
	assert.False(t, p.CaptureEnabled())

	// Sending is a silent no-op, never an error.
	p.Send(&domain.Payload{ReportID: "r1"})
}

func TestForwardingOverrideRoutesAllChannels(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
	}))
	defer server.Close()

	p := New(config.TransportConfig{
		CaptureEndpoint:    "https://ignored.example.com/capture",
		ForwardingEndpoint: server.URL,
	}, discard())

	p.Send(&domain.Payload{ReportID: "r1"})
	p.Usage("tok", "corr")
	p.Fault(assert.AnError, "tok")

	assert.Equal(t, []string{"/capture", "/usage.gif", "/fault.gif"}, paths)
}

func TestFaultCarriesTruncatedMessage(t *testing.T) {
	var msg string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msg = r.URL.Query().Get("msg")
	}))
	defer server.Close()

	p := New(config.TransportConfig{ForwardingEndpoint: server.URL}, discard())

	long := make([]byte, faultMessageLimit+100)
	for i := range long {
		long[i] = 'x'
	}
	p.Fault(&domain.AgentError{Message: string(long), Code: "INTERNAL"}, "tok")

	assert.Len(t, msg, faultMessageLimit)
}

func TestResultHookObservesAttempts(t *testing.T) {
	p, _ := pipelineFor(t, http.StatusOK)

	var results []string
	p.SetResultHook(func(channel string, success bool) {
		results = append(results, channel)
		assert.True(t, success)
	})

	p.Send(&domain.Payload{ReportID: "r1"})
	p.Usage("tok", "corr")

	assert.Equal(t, []string{ChannelCapture, ChannelUsage}, results)
}
