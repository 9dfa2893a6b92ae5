// Package serialize converts arbitrary values into best-effort strings for
// inclusion in telemetry reports. It must never panic and never produce an
// unbounded result for cyclic or hostile inputs.
package serialize

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Unserializable is the literal token emitted when a value defeats every
// serialization strategy.
const Unserializable = "Unserializable Object"

// String renders value as a string. Strings pass through unchanged,
// primitives use their literal form, NaN and nil are rendered as tokens,
// and structured values fall back to JSON and then to a key-value dump.
func String(value any) string {
	switch v := value.(type) {
	case nil:
		return "nil"
	case string:
		return v
	case error:
		return v.Error()
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v))
	case float64:
		return formatFloat(v)
	case fmt.Stringer:
		return stringerSafe(v)
	}
	return structured(value)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// stringerSafe guards String() implementations that panic.
func stringerSafe(s fmt.Stringer) (out string) {
	defer func() {
		if recover() != nil {
			out = Unserializable
		}
	}()
	return s.String()
}

// structured marshals via JSON; cyclic or otherwise unsupported values fall
// back to a shallow key-value dump, then to the Unserializable token.
func structured(value any) string {
	if data, err := json.Marshal(value); err == nil {
		return string(data)
	}

	if m, ok := value.(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ", "
			}
			out += k + ": " + shallow(m[k])
		}
		return out + "}"
	}

	return Unserializable
}

// shallow renders one map value without recursing into nested structures.
func shallow(value any) string {
	switch value.(type) {
	case nil, string, bool, int, int64, uint64, float32, float64, error:
		return String(value)
	}
	if data, err := json.Marshal(value); err == nil {
		return string(data)
	}
	return Unserializable
}
