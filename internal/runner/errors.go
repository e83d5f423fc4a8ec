// File: internal/runner/errors.go
package runner

import (
	"errors"
	"fmt"
)

// ErrorCode is a string type used for structured error classification in
// step and test results. Using a custom type ensures that only predefined
// constants can be used where an ErrorCode is expected.
type ErrorCode string

const (
	// ErrCodeConfiguration marks failures caused by missing or invalid
	// setup: absent API key, unreachable store, bad script file.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeProvider marks failures of the reasoning-model provider:
	// quota, transport, malformed responses.
	ErrCodeProvider ErrorCode = "PROVIDER_ERROR"
	// ErrCodeActionExecution marks failures of the automation surface while
	// dispatching input or capturing state.
	ErrCodeActionExecution ErrorCode = "ACTION_EXECUTION_ERROR"
)

// RunError carries an error code alongside the wrapped cause so callers can
// tell a broken configuration from a flaky provider.
type RunError struct {
	Code ErrorCode
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// NewConfigurationError wraps err as a configuration failure.
func NewConfigurationError(err error) *RunError {
	return &RunError{Code: ErrCodeConfiguration, Err: err}
}

// NewProviderError wraps err as a provider failure.
func NewProviderError(err error) *RunError {
	return &RunError{Code: ErrCodeProvider, Err: err}
}

// NewActionExecutionError wraps err as an automation-surface failure.
func NewActionExecutionError(err error) *RunError {
	return &RunError{Code: ErrCodeActionExecution, Err: err}
}

// CodeOf extracts the error code from err, or empty when err carries none.
func CodeOf(err error) ErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
