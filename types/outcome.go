package types

import "fmt"

// OutcomeKind discriminates ProcessOutcome variants.
type OutcomeKind string

const (
	// OutcomeSuccess indicates the process exited with code 0.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeFailed indicates the process exited with a non-zero code.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeError indicates the process could not start, was killed by a
	// signal, or was disconnected before reporting an exit code.
	OutcomeError OutcomeKind = "error"
)

// ProcessOutcome is the single terminal result of one external process
// invocation. Exactly one is produced per invocation.
type ProcessOutcome struct {
	Kind OutcomeKind
	// Code is the exit code. Only meaningful for OutcomeFailed.
	Code int
	// Message describes an infrastructure error. Only set for OutcomeError.
	Message string
}

// Succeeded returns the success outcome.
func Succeeded() ProcessOutcome {
	return ProcessOutcome{Kind: OutcomeSuccess}
}

// FailedWith returns a failed-exit outcome carrying code.
func FailedWith(code int) ProcessOutcome {
	return ProcessOutcome{Kind: OutcomeFailed, Code: code}
}

// Errored returns an infrastructure error outcome.
func Errored(format string, args ...any) ProcessOutcome {
	return ProcessOutcome{Kind: OutcomeError, Message: fmt.Sprintf(format, args...)}
}

// OK reports whether the outcome is a success.
func (o ProcessOutcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

func (o ProcessOutcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "exited successfully"
	case OutcomeFailed:
		return fmt.Sprintf("exited with code %d", o.Code)
	case OutcomeError:
		return o.Message
	default:
		return string(o.Kind)
	}
}
