package agent

import (
	"fmt"
	"time"

	"github.com/argusops/argus-go/pkg/domain"
)

// SeverityError is the console severity that can be promoted to a report.
const SeverityError = "error"

// RecordConsole appends captured log output to the event log. Error-level
// records are promoted to a full report (entry kind "console") when
// configured.
func (a *Agent) RecordConsole(severity, message string) {
	a.mu.Lock()
	enabled := a.cfg.Console.Enabled
	promote := a.cfg.Console.ReportErrors
	a.mu.Unlock()
	if !enabled {
		return
	}

	a.log.Add(domain.CategoryConsole, domain.ConsoleEvent{
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})

	if promote && severity == SeverityError {
		ce := &domain.CanonicalError{
			Name:    "ConsoleError",
			Message: message,
			Stack:   captureStack(3),
		}
		fillLocation(ce)
		a.report(domain.KindConsole, ce, nil, message, false)
	}
}

// StartNetwork records an outbound request start and returns the entry key
// used to complete it. Returns an empty key when network capture is off.
func (a *Agent) StartNetwork(method, url string) string {
	a.mu.Lock()
	enabled := a.cfg.Network.Enabled
	a.mu.Unlock()
	if !enabled {
		return ""
	}

	return a.log.Add(domain.CategoryNetwork, domain.NetworkEvent{
		Method:    method,
		URL:       url,
		StartedAt: time.Now().UTC(),
	})
}

// CompleteNetwork completes a previously-started network entry in place. If
// the entry was evicted in the meantime the completion is dropped silently.
// Failed requests are additionally reported with entry kind "ajax" per the
// network configuration.
func (a *Agent) CompleteNetwork(key, method, url string, status int, duration time.Duration, errMsg string) {
	if key != "" {
		a.log.Amend(domain.CategoryNetwork, key, func(v any) any {
			ev, ok := v.(domain.NetworkEvent)
			if !ok {
				return v
			}
			ev.Completed = true
			ev.StatusCode = status
			ev.Duration = duration.Milliseconds()
			ev.Error = errMsg
			return ev
		})
	}

	a.mu.Lock()
	reportErrors := a.cfg.Network.ReportErrors
	reportClient := a.cfg.Network.ReportClientErrors
	a.mu.Unlock()

	failed := errMsg != "" || status >= 500 || (status >= 400 && reportClient)
	if !reportErrors || !failed {
		return
	}

	msg := errMsg
	if msg == "" {
		msg = fmt.Sprintf("%d %s %s", status, method, url)
	}
	ce := &domain.CanonicalError{
		Name:    "NetworkError",
		Message: msg,
		Stack:   captureStack(3),
	}
	fillLocation(ce)
	a.report(domain.KindAjax, ce, nil, msg, false)
}

// RecordNavigation appends a route transition to the event log.
func (a *Agent) RecordNavigation(from, to string) {
	a.log.Add(domain.CategoryNavigation, domain.NavigationEvent{
		From:      from,
		To:        to,
		Timestamp: time.Now().UTC(),
	})
}

// RecordAction appends an application-supplied interaction fact to the
// event log.
func (a *Agent) RecordAction(action, target string) {
	a.log.Add(domain.CategoryVisitor, domain.ActionEvent{
		Action:    action,
		Target:    target,
		Timestamp: time.Now().UTC(),
	})
}

// ReportPanic reports a recovered panic value under the given entry kind and
// returns it for re-raising. Used by boundary recovery such as the HTTP
// middleware (kind "window").
func (a *Agent) ReportPanic(r any, kind domain.EntryKind) any {
	a.reportRecovered(r, kind, nil)
	return r
}
