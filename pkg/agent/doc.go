// Package agent implements the interception-and-telemetry-aggregation
// engine: the function-wrapping protocol, the error normalizer, the
// dedup/throttle gate, the report assembler, and the installation surface a
// host application uses to enable instrumentation.
//
// One Agent instance coordinates all interception for the process. All
// mutable state (event log, throttle counters, reporting guard, metadata)
// lives behind the Agent so a test can substitute the host environment
// entirely. The package-level functions operate on a process-wide singleton
// created by Install.
package agent

// Version identifies the agent build in report payloads.
const Version = "0.4.2"
