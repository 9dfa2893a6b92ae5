package domain

import (
	"fmt"
	"strings"
	"time"
)

// StackFrame is one resolved frame of a captured call stack.
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// CanonicalError is the normalized failure representation every report
// carries. Message is always a string; foreign values are run through the
// serializer before they get here.
type CanonicalError struct {
	Name    string       `json:"name"`
	Message string       `json:"message"`
	Stack   []StackFrame `json:"stack,omitempty"`
	File    string       `json:"file,omitempty"`
	Line    int          `json:"line,omitempty"`
	Column  int          `json:"column,omitempty"`

	// Inner forms a single-level wrap chain, never cyclic. Normalizing a
	// value that already carries an Inner link returns it unchanged.
	Inner *CanonicalError `json:"innerError,omitempty"`

	// BindStack and BindTime carry where and when the failing callback was
	// registered, when bind-stack capture is enabled.
	BindStack []StackFrame `json:"bindStack,omitempty"`
	BindTime  time.Time    `json:"bindTime,omitzero"`
}

// Error implements the error interface so a CanonicalError can travel
// through ordinary Go error paths.
func (e *CanonicalError) Error() string {
	return e.Message
}

// StackString renders the stack in a compact single-string form for
// fingerprinting and wire transmission.
func (e *CanonicalError) StackString() string {
	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "%s (%s:%d)\n", f.Function, f.File, f.Line)
	}
	return b.String()
}
