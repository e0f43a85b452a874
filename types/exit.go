package types

import (
	"errors"
	"fmt"
)

// ExitCode is the process exit status for a run.
//
// Codes live in the LSB "reserved for application use" range (150-199)
// so they never collide with shell or signal statuses. They are stable
// across versions; scripts may branch on them.
type ExitCode int

const (
	ExitSuccess    ExitCode = 0
	ExitManifest   ExitCode = 150
	ExitDependency ExitCode = 151
	ExitBuild      ExitCode = 152
	ExitArtifact   ExitCode = 153
	ExitDocument   ExitCode = 154
	ExitCleanup    ExitCode = 155
)

func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitManifest:
		return "manifest_not_found"
	case ExitDependency:
		return "dependency_install_failure"
	case ExitBuild:
		return "build_failure"
	case ExitArtifact:
		return "artifact_failure"
	case ExitDocument:
		return "document_failure"
	case ExitCleanup:
		return "cleanup_failure"
	default:
		return fmt.Sprintf("exit_%d", int(c))
	}
}

// Sentinel errors for failure classification, one per exit code.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrManifest covers a missing manifest and any other configuration
	// error (bad arguments, unreadable tool config).
	ErrManifest = errors.New("configuration error")

	// ErrDependency indicates the build tool was missing and could not be installed.
	ErrDependency = errors.New("dependency install failed")

	// ErrBuild indicates the compiler failed, errored, or disconnected.
	ErrBuild = errors.New("build failed")

	// ErrArtifact indicates the artifact could not be loaded or its entry point failed.
	ErrArtifact = errors.New("artifact load failed")

	// ErrDocument indicates the payload could not be parsed, processed, or written.
	ErrDocument = errors.New("document generation failed")

	// ErrCleanup indicates the final removal of the transient output failed.
	ErrCleanup = errors.New("cleanup failed")
)

// StageError wraps an underlying error with its failure class.
// It preserves the original error in the chain for inspection via errors.As.
type StageError struct {
	// Kind is the sentinel error for classification (e.g., ErrBuild).
	Kind error
	// Stage names the pipeline stage that failed (e.g., "build").
	Stage string
	// Err is the underlying error.
	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewStageError creates a classified stage error.
func NewStageError(kind error, stage string, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// ExitCodeFor maps a classified error to its exit code.
// Nil maps to ExitSuccess. Unclassified errors map to ExitManifest,
// the configuration class, since they can only arise before any stage runs.
func ExitCodeFor(err error) ExitCode {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrDependency):
		return ExitDependency
	case errors.Is(err, ErrBuild):
		return ExitBuild
	case errors.Is(err, ErrArtifact):
		return ExitArtifact
	case errors.Is(err, ErrDocument):
		return ExitDocument
	case errors.Is(err, ErrCleanup):
		return ExitCleanup
	default:
		return ExitManifest
	}
}
