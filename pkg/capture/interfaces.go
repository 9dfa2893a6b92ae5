// Package capture provides the peripheral watchers that feed the agent's
// event log: console output, outbound HTTP, inbound navigation, and visitor
// actions. Watchers are transparent: they never change what the instrumented
// code observes, and a failing watcher never halts the host.
package capture

import (
	"time"

	"github.com/argusops/argus-go/pkg/domain"
)

// Recorder is the slice of the agent the watchers write into. *agent.Agent
// satisfies it; tests substitute fakes.
type Recorder interface {
	// RecordConsole appends captured log output.
	RecordConsole(severity, message string)
	// StartNetwork records a request start and returns its completion key.
	StartNetwork(method, url string) string
	// CompleteNetwork completes a started request entry in place.
	CompleteNetwork(key, method, url string, status int, duration time.Duration, errMsg string)
	// RecordNavigation appends a route transition.
	RecordNavigation(from, to string)
	// RecordAction appends an application-supplied interaction fact.
	RecordAction(action, target string)
	// ReportPanic reports a recovered panic under the given entry kind and
	// returns the value for re-raising.
	ReportPanic(r any, kind domain.EntryKind) any
}
