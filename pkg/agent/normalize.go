package agent

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/argusops/argus-go/pkg/domain"
	"github.com/argusops/argus-go/pkg/serialize"
)

// maxStackDepth bounds synthetic stack capture.
const maxStackDepth = 32

// Normalize converts an arbitrary reported value into the canonical error
// shape. Values that already carry the canonical shape pass through
// unchanged, including anything holding an Inner link, so re-wrap chains
// cannot grow across nested recovery layers. Everything else is serialized
// into a message string with a synthetic stack captured here.
func Normalize(raw any) *domain.CanonicalError {
	switch v := raw.(type) {
	case *domain.CanonicalError:
		return v
	case domain.CanonicalError:
		return &v
	case error:
		ce := &domain.CanonicalError{
			Name:    errorName(v),
			Message: v.Error(),
			Stack:   captureStack(3),
		}
		if inner := errors.Unwrap(v); inner != nil {
			// Record one level of the wrap chain, never more.
			ce.Inner = &domain.CanonicalError{
				Name:    errorName(inner),
				Message: inner.Error(),
			}
		}
		fillLocation(ce)
		return ce
	default:
		ce := &domain.CanonicalError{
			Name:    "Error",
			Message: serialize.String(raw),
			Stack:   captureStack(3),
		}
		fillLocation(ce)
		return ce
	}
}

func errorName(err error) string {
	return fmt.Sprintf("%T", err)
}

// fillLocation copies the innermost frame into the flat file/line fields.
func fillLocation(ce *domain.CanonicalError) {
	if len(ce.Stack) == 0 {
		return
	}
	ce.File = ce.Stack[0].File
	ce.Line = ce.Stack[0].Line
}

// captureStack resolves the current call stack, skipping the given number of
// frames (runtime.Callers itself counts as one).
func captureStack(skip int) []domain.StackFrame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]domain.StackFrame, 0, n)
	for {
		frame, more := frames.Next()
		stack = append(stack, domain.StackFrame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more {
			break
		}
	}
	return stack
}
