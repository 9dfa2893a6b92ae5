package agent

import (
	"net/http"
	"sync"
	"time"

	"github.com/argusops/argus-go/pkg/config"
	"github.com/argusops/argus-go/pkg/domain"
)

// The process-wide singleton. One engine instance coordinates all
// interception for the process.
var (
	installMu    sync.Mutex
	defaultAgent *Agent
)

// Install creates the process-wide agent from the given configuration and
// emits the usage beacon. Idempotent: a second call is a no-op returning
// false. A nil configuration installs defaults (degraded but functional).
func Install(cfg *config.Config) bool {
	return InstallWithOptions(cfg, Options{})
}

// InstallWithOptions is Install with construction options (logger, user
// error hook).
func InstallWithOptions(cfg *config.Config, opts Options) bool {
	installMu.Lock()
	defer installMu.Unlock()

	if defaultAgent != nil {
		return false
	}
	defaultAgent = New(cfg, opts)
	defaultAgent.announce()
	return true
}

// IsInstalled reports whether the process-wide agent exists.
func IsInstalled() bool {
	installMu.Lock()
	defer installMu.Unlock()
	return defaultAgent != nil
}

// Installed returns the process-wide agent, or nil before Install.
func Installed() *Agent {
	installMu.Lock()
	defer installMu.Unlock()
	return defaultAgent
}

// Track reports a value through the process-wide agent. No-op before
// Install.
func Track(raw any) {
	if a := Installed(); a != nil {
		a.Track(raw)
	}
}

// Watch wraps a callable through the process-wide agent. Before Install the
// value is returned unchanged.
func Watch(v any) any {
	if a := Installed(); a != nil {
		return a.Watch(v)
	}
	return v
}

// WatchAll wraps every func-typed member of target through the process-wide
// agent.
func WatchAll(target any, excluded ...string) any {
	if a := Installed(); a != nil {
		return a.WatchAll(target, excluded...)
	}
	return target
}

// Go runs fn on a new goroutine with panic reporting when the agent is
// installed, and plainly otherwise.
func Go(fn func()) {
	if a := Installed(); a != nil {
		a.Go(fn)
		return
	}
	go fn()
}

// AddMetadata sets a process-wide metadata key.
func AddMetadata(key, value string) {
	if a := Installed(); a != nil {
		a.AddMetadata(key, value)
	}
}

// RemoveMetadata deletes a process-wide metadata key.
func RemoveMetadata(key string) {
	if a := Installed(); a != nil {
		a.RemoveMetadata(key)
	}
}

// MetricsHandler returns the process-wide agent's self-metrics endpoint for
// mounting on an application mux.
func MetricsHandler() (http.Handler, error) {
	a := Installed()
	if a == nil {
		return nil, domain.ErrNotInstalled
	}
	return a.metrics.Handler(), nil
}

// Flush waits for the process-wide agent's in-flight transmissions.
func Flush(timeout time.Duration) bool {
	if a := Installed(); a != nil {
		return a.Flush(timeout)
	}
	return true
}
