// Package toolchain makes sure the external build tool is installed.
package toolchain

import (
	"context"
	"fmt"
	"io"

	"github.com/pithecene-io/workers-openapi/log"
	"github.com/pithecene-io/workers-openapi/metrics"
	"github.com/pithecene-io/workers-openapi/process"
	"github.com/pithecene-io/workers-openapi/types"
)

// Ensurer checks for a tool and installs it on demand.
type Ensurer struct {
	// Tool is the binary that must be available (e.g. "wasm-pack").
	Tool string
	// Install is the installer command line (e.g. cargo install wasm-pack).
	Install []string
	// Dir is the working directory for both invocations.
	Dir string
	// Stdout and Stderr receive installer output. Lookup output is discarded.
	Stdout io.Writer
	Stderr io.Writer

	Logger    *log.Logger
	Collector *metrics.Collector
}

// Ensure returns nil if the tool answers `--version`, otherwise runs the
// installer and blocks until it finishes. Installer failure is classified
// as types.ErrDependency.
func (e *Ensurer) Ensure(ctx context.Context) error {
	lookup := process.Spec{Name: e.Tool, Args: []string{"--version"}, Dir: e.Dir}
	e.Collector.IncProcessSpawned()
	outcome := process.Run(ctx, lookup)
	if outcome.OK() {
		e.Logger.Debug("build tool present", map[string]any{"tool": e.Tool})
		return nil
	}

	if len(e.Install) == 0 {
		return types.NewStageError(types.ErrDependency, "ensure", fmt.Errorf("%s not found (%s) and no installer configured", e.Tool, outcome))
	}

	install := process.Spec{
		Name:   e.Install[0],
		Args:   e.Install[1:],
		Dir:    e.Dir,
		Stdout: e.Stdout,
		Stderr: e.Stderr,
	}
	e.Logger.Info("build tool not found, installing", map[string]any{
		"tool":    e.Tool,
		"lookup":  outcome.String(),
		"install": install.String(),
	})
	e.Collector.IncProcessSpawned()
	e.Collector.IncInstall()
	if res := process.Run(ctx, install); !res.OK() {
		e.Collector.IncProcessFailure()
		return types.NewStageError(types.ErrDependency, "ensure", fmt.Errorf("failed to install %s: `%s` %s", e.Tool, install, res))
	}
	return nil
}
