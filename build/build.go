// Package build runs the wasm-pack compiler into the transient output
// directory.
package build

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pithecene-io/workers-openapi/log"
	"github.com/pithecene-io/workers-openapi/metrics"
	"github.com/pithecene-io/workers-openapi/outdir"
	"github.com/pithecene-io/workers-openapi/process"
	"github.com/pithecene-io/workers-openapi/types"
)

// Builder compiles the crate to a Node module.
type Builder struct {
	// Tool is the compiler binary.
	Tool string
	// Dir is the project root; OutDir is resolved against it.
	Dir string
	// OutDir is the transient output directory.
	OutDir string
	// Stdout and Stderr receive the compiler's output unbuffered.
	Stdout io.Writer
	Stderr io.Writer

	Logger    *log.Logger
	Collector *metrics.Collector
}

// Args returns the full compiler argument list. Passthrough arguments
// follow a "--" terminator and are never reordered or rewritten.
func Args(outDir string, passthrough []string) []string {
	args := []string{
		"build",
		"--dev",
		"--no-opt",
		"--no-pack",
		"--no-typescript",
		"--target", "nodejs",
		"--out-dir", outDir,
	}
	if len(passthrough) > 0 {
		args = append(args, "--")
		args = append(args, passthrough...)
	}
	return args
}

// OutputPath returns the absolute-or-project-relative output directory.
func (b *Builder) OutputPath() string {
	if filepath.IsAbs(b.OutDir) {
		return b.OutDir
	}
	return filepath.Join(b.Dir, b.OutDir)
}

// Build removes stale output and runs the compiler. On any outcome other
// than exit 0 the output directory is removed and a types.ErrBuild error
// is returned.
func (b *Builder) Build(ctx context.Context, passthrough []string) error {
	out := b.OutputPath()
	if outdir.Exists(out) {
		b.Logger.Warn("removing stale build output", map[string]any{"dir": out})
		if err := outdir.Remove(out); err != nil {
			return types.NewStageError(types.ErrBuild, "build", fmt.Errorf("stale output: %w", err))
		}
	}

	spec := process.Spec{
		Name:   b.Tool,
		Args:   Args(b.OutDir, passthrough),
		Dir:    b.Dir,
		Stdout: b.Stdout,
		Stderr: b.Stderr,
	}
	b.Logger.Info("building", map[string]any{"command": spec.String()})

	b.Collector.IncProcessSpawned()
	outcome := process.Run(ctx, spec)
	if !outcome.OK() {
		b.Collector.IncProcessFailure()
		outdir.Discard(out)
		return types.NewStageError(types.ErrBuild, "build", fmt.Errorf("`%s` %s", spec, outcome))
	}
	return nil
}
