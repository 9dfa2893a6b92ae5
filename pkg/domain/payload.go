package domain

import "time"

// Environment carries host facts gathered at report-assembly time.
type Environment struct {
	Hostname       string `json:"hostname"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	RuntimeVersion string `json:"runtimeVersion"`
	PID            int    `json:"pid"`
	AgentVersion   string `json:"agentVersion"`
	UptimeMS       int64  `json:"uptimeMs"`
}

// MetadataItem is one verbatim key/value pair from the metadata store.
type MetadataItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Payload is the unit of transmission: one JSON object per failure event.
// Once assembled it is immutable; it is never touched after being handed to
// the transmission pipeline.
type Payload struct {
	ReportID      string    `json:"reportId"`
	CorrelationID string    `json:"correlationId"`
	Token         string    `json:"token"`
	Application   string    `json:"application,omitempty"`
	EntryKind     EntryKind `json:"entry"`
	Timestamp     time.Time `json:"timestamp"`

	Error CanonicalError `json:"error"`

	Console    []ConsoleEvent    `json:"console"`
	Network    []NetworkEvent    `json:"network"`
	Navigation []NavigationEvent `json:"navigation"`
	Visitor    []ActionEvent     `json:"visitor"`

	Metadata    []MetadataItem `json:"metadata"`
	Environment Environment    `json:"environment"`

	// Throttled carries how many reports the gate suppressed in the window
	// preceding this one, so the server sees "N reports suppressed".
	Throttled int `json:"throttled"`
}
