// Package loader loads the compiled artifact and invokes its document
// entry point.
//
// The artifact is a wasm-pack `--target nodejs` module, so it is loaded by
// a small embedded Node script rather than in-process. The script's exit
// code tells a missing entry point apart from a failing one.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pithecene-io/workers-openapi/log"
	"github.com/pithecene-io/workers-openapi/metrics"
	"github.com/pithecene-io/workers-openapi/process"
	"github.com/pithecene-io/workers-openapi/types"
)

// EntryPoint is the export the artifact must provide. ohkami's `#[worker]`
// macro emits it only when the crate's `openapi` feature is enabled.
const EntryPoint = "OpenAPIDocumentBytes"

// Loader script exit codes (see bundle/loader.mjs).
const (
	exitLoad         = 2
	exitMissingEntry = 3
	exitInvoke       = 4
)

// Failure classes within types.ErrArtifact.
var (
	// ErrModuleNotFound indicates the output directory has no loadable module.
	ErrModuleNotFound = errors.New("no module in build output")
	// ErrEntryPointMissing indicates the module does not export EntryPoint.
	ErrEntryPointMissing = errors.New("entry point missing")
	// ErrInvokeFailed indicates the module failed to load or EntryPoint failed.
	ErrInvokeFailed = errors.New("entry point invocation failed")
)

// Loader runs the embedded loader script with Node.
type Loader struct {
	// Node is the runtime binary.
	Node string
	// Dir is the working directory for the runtime.
	Dir string
	// Script overrides the embedded loader script path.
	Script string
	// Stderr receives the runtime's stderr. Nil discards it.
	Stderr io.Writer

	Logger    *log.Logger
	Collector *metrics.Collector
}

// FindModule returns the module wasm-pack emitted into outDir: the
// top-level .js file that is not wasm-bindgen glue (`*_bg.js`).
func FindModule(outDir string) (string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModuleNotFound, err)
	}

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".js") || strings.HasSuffix(name, "_bg.js") {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: %s contains no .js module", ErrModuleNotFound, outDir)
	}
	sort.Strings(candidates)
	return filepath.Join(outDir, candidates[0]), nil
}

// Load finds the module in outDir, invokes EntryPoint, and returns the
// raw payload. Errors are classified as types.ErrArtifact.
func (l *Loader) Load(ctx context.Context, outDir string) ([]byte, error) {
	module, err := FindModule(outDir)
	if err != nil {
		return nil, types.NewStageError(types.ErrArtifact, "load", err)
	}
	if module, err = filepath.Abs(module); err != nil {
		return nil, types.NewStageError(types.ErrArtifact, "load", err)
	}

	script := l.Script
	if script == "" {
		if script, err = ScriptPath(); err != nil {
			return nil, types.NewStageError(types.ErrArtifact, "load", err)
		}
	}

	var stdout bytes.Buffer
	spec := process.Spec{
		Name:   l.Node,
		Args:   []string{script, module, EntryPoint},
		Dir:    l.Dir,
		Env:    []string{"NODE_NO_WARNINGS=1"},
		Stdout: &stdout,
		Stderr: l.Stderr,
	}
	l.Logger.Debug("loading artifact", map[string]any{"module": module, "script": script})

	l.Collector.IncProcessSpawned()
	outcome := process.Run(ctx, spec)
	if !outcome.OK() {
		l.Collector.IncProcessFailure()
		return nil, types.NewStageError(types.ErrArtifact, "load", classify(module, outcome))
	}

	payload := stdout.Bytes()
	l.Collector.SetPayloadBytes(len(payload))
	return payload, nil
}

func classify(module string, outcome types.ProcessOutcome) error {
	if outcome.Kind == types.OutcomeFailed {
		switch outcome.Code {
		case exitMissingEntry:
			return fmt.Errorf("%w: %s does not export `%s`; the crate's `openapi` feature is probably not enabled (pass `-- --features openapi`)",
				ErrEntryPointMissing, filepath.Base(module), EntryPoint)
		case exitLoad:
			return fmt.Errorf("%w: could not load %s", ErrInvokeFailed, filepath.Base(module))
		case exitInvoke:
			return fmt.Errorf("%w: `%s` failed in %s", ErrInvokeFailed, EntryPoint, filepath.Base(module))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvokeFailed, outcome)
}
