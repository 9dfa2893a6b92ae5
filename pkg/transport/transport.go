// Package transport implements best-effort, fire-and-forget delivery of
// telemetry payloads. Each delivery channel is independently disablable and
// the transition is one-way: once a channel is known broken for this process
// lifetime, the pipeline stops trying rather than accumulate a failing queue.
package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/argusops/argus-go/pkg/config"
	"github.com/argusops/argus-go/pkg/domain"
)

// Channel names used in logs and metrics.
const (
	ChannelCapture = "capture"
	ChannelUsage   = "usage"
	ChannelFault   = "fault"
)

// faultMessageLimit bounds the error text carried on the fault beacon.
const faultMessageLimit = 500

// Pipeline delivers payloads over three channels: capture (POST JSON), usage
// (GET beacon), and fault (GET beacon on a separate endpoint, reserved for
// the agent's own internal failures). No method ever panics into its caller.
type Pipeline struct {
	logger *slog.Logger
	client *http.Client

	captureURL string
	usageURL   string
	faultURL   string

	captureDisabled atomic.Bool
	usageDisabled   atomic.Bool
	faultDisabled   atomic.Bool

	// onResult, when set, observes every delivery attempt. Used for metrics.
	onResult func(channel string, success bool)
}

// New builds a pipeline from the transport configuration. A channel whose
// endpoint is unusable starts disabled. The forwarding endpoint, when set,
// overrides every channel's base URL.
func New(cfg config.TransportConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		logger:     logger,
		client:     &http.Client{Timeout: 10 * time.Second},
		captureURL: cfg.CaptureEndpoint,
		usageURL:   cfg.UsageEndpoint,
		faultURL:   cfg.FaultEndpoint,
	}

	if cfg.ForwardingEndpoint != "" {
		base := strings.TrimRight(cfg.ForwardingEndpoint, "/")
		p.captureURL = base + "/capture"
		p.usageURL = base + "/usage.gif"
		p.faultURL = base + "/fault.gif"
	}

	if !usable(p.captureURL) {
		p.captureDisabled.Store(true)
	}
	if !usable(p.usageURL) {
		p.usageDisabled.Store(true)
	}
	if !usable(p.faultURL) {
		p.faultDisabled.Store(true)
	}
	return p
}

// SetResultHook registers a delivery-attempt observer.
func (p *Pipeline) SetResultHook(hook func(channel string, success bool)) {
	p.onResult = hook
}

// CaptureEnabled reports whether the capture channel still accepts sends.
func (p *Pipeline) CaptureEnabled() bool {
	return !p.captureDisabled.Load()
}

// Send delivers one report payload on the capture channel. Best-effort and
// at-most-one-attempt: any transport failure or non-success status disables
// the channel. Never returns an error and never panics.
func (p *Pipeline) Send(payload *domain.Payload) {
	defer p.redirectPanic()

	if p.captureDisabled.Load() {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		p.Fault(fmt.Errorf("payload serialization failed: %w", err), payload.Token)
		return
	}

	resp, err := p.client.Post(p.captureURL, "application/json", bytes.NewReader(body))
	if err != nil {
		p.disableCapture("transport failure", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if !successStatus(resp.StatusCode) {
		p.disableCapture("non-success status", fmt.Errorf("status %d", resp.StatusCode))
		return
	}

	p.record(ChannelCapture, true)
	p.logger.Debug("Report delivered", "report_id", payload.ReportID, "entry", string(payload.EntryKind))
}

// Usage emits the one-shot usage beacon.
func (p *Pipeline) Usage(token, correlationID string) {
	defer p.redirectPanic()

	if p.usageDisabled.Load() {
		return
	}

	query := url.Values{}
	query.Set("token", token)
	query.Set("correlationId", correlationID)

	resp, err := p.client.Get(p.usageURL + "?" + query.Encode())
	if err != nil {
		p.usageDisabled.Store(true)
		p.record(ChannelUsage, false)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if !successStatus(resp.StatusCode) {
		p.usageDisabled.Store(true)
		p.record(ChannelUsage, false)
		return
	}
	p.record(ChannelUsage, true)
}

// Fault reports a failure inside the agent itself. It uses a separate
// endpoint and a bare GET so the fault report cannot trigger another fault
// through the main path.
func (p *Pipeline) Fault(faultErr error, token string) {
	defer func() {
		// A fault inside fault reporting has nowhere left to go.
		if r := recover(); r != nil {
			p.faultDisabled.Store(true)
		}
	}()

	if p.faultDisabled.Load() || faultErr == nil {
		return
	}

	msg := faultErr.Error()
	if len(msg) > faultMessageLimit {
		msg = msg[:faultMessageLimit]
	}

	query := url.Values{}
	query.Set("token", token)
	query.Set("msg", msg)

	resp, err := p.client.Get(p.faultURL + "?" + query.Encode())
	if err != nil {
		p.faultDisabled.Store(true)
		p.record(ChannelFault, false)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if !successStatus(resp.StatusCode) {
		p.faultDisabled.Store(true)
		p.record(ChannelFault, false)
		return
	}
	p.record(ChannelFault, true)
}

func (p *Pipeline) disableCapture(reason string, err error) {
	p.captureDisabled.Store(true)
	p.record(ChannelCapture, false)
	p.logger.Warn("Capture channel disabled for process lifetime", "reason", reason, "error", err)
}

// redirectPanic keeps internal failures off the caller's path: they become
// fault beacons instead.
func (p *Pipeline) redirectPanic() {
	if r := recover(); r != nil {
		p.Fault(fmt.Errorf("transport panic: %v", r), "")
	}
}

func (p *Pipeline) record(channel string, success bool) {
	if p.onResult != nil {
		p.onResult(channel, success)
	}
}

func successStatus(code int) bool {
	return code == http.StatusOK || code == http.StatusAccepted
}

func usable(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}
