// Package domain defines the core data model for the Argus telemetry agent.
//
// This package contains pure domain types with ZERO external dependencies
// outside the Go standard library. All types in this package are:
//
// - Independent of infrastructure (no HTTP, no serialization libraries)
// - Technology-agnostic (no framework coupling)
// - Testable in isolation without mocks
//
// Other packages (agent, eventlog, transport, capture) depend on these types.
// The dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
