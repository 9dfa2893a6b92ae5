// Package telemetry bootstraps distributed tracing for the collector daemon
// and scrubs sensitive report data out of span attributes before export.
//
// The agent itself never imports this package: agent-side observation stays
// on the Prometheus counters in pkg/agent, while the collector is a regular
// service and traces like one.
package telemetry
