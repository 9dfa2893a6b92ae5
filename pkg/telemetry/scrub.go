package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Attributes the collector never exports verbatim. Report payloads carry
// account tokens and captured application output, neither of which belongs
// in a tracing backend.
var defaultDeny = map[string]string{
	"report.token":                      "mask",
	"report.error.message":              "hash",
	"http.request.header.authorization": "drop",
	"http.request.header.cookie":        "drop",
}

// ScrubAttributes applies the collector's redaction policy to span attributes
// before export. extra maps attribute keys to a strategy ("drop", "mask" or
// "hash") and extends the default deny-list for one call.
func ScrubAttributes(attrs []attribute.KeyValue, extra map[string]string) []attribute.KeyValue {
	if len(attrs) == 0 {
		return attrs
	}

	scrubbed := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		key := string(kv.Key)
		strategy, ok := extra[key]
		if !ok {
			strategy, ok = defaultDeny[key]
		}
		if !ok {
			scrubbed = append(scrubbed, kv)
			continue
		}

		switch strategy {
		case "mask":
			scrubbed = append(scrubbed, attribute.String(key, MaskValue(kv.Value.AsString())))
		case "hash":
			scrubbed = append(scrubbed, attribute.String(key, hashValue(kv.Value.AsString())))
		default: // drop
		}
	}
	return scrubbed
}

// MaskValue keeps the first and last four characters for debugging while
// hiding the middle. Values too short to mask meaningfully are replaced
// entirely.
func MaskValue(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}

// hashValue produces a deterministic tag so identical values still correlate
// across spans without exposing the data.
func hashValue(s string) string {
	if s == "" {
		return "[REDACTED:empty]"
	}
	hash := 0
	for _, ch := range s {
		hash = hash*31 + int(ch)
	}
	return fmt.Sprintf("[REDACTED:hash:%08x]", hash&0xFFFFFFFF)
}
