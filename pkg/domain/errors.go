package domain

import "errors"

// Common domain errors
var (
	ErrNotInstalled  = errors.New("agent not installed")
	ErrConfigInvalid = errors.New("invalid configuration")
)

// AgentError wraps internal agent failures with a stable machine-readable
// code so fault reports stay compact.
type AgentError struct {
	Err     error
	Code    string
	Message string
}

func (e *AgentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AgentError) Unwrap() error {
	return e.Err
}
