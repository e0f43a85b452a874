// Package main provides the workers-openapi CLI entrypoint.
//
// Usage:
//
//	workers-openapi [--out|-o <path>] [--skip-login] [--config <path>] [-- <compiler args>...]
//
// Exit codes:
//   - 0: success
//   - 150: manifest or configuration error
//   - 151: dependency install failed
//   - 152: build failed
//   - 153: artifact load or invocation failed
//   - 154: document generation failed
//   - 155: cleanup failed after the document was written
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/workers-openapi/cli/cmd"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := cmd.NewApp(commit)
	app.ExitErrHandler = exitErrHandler

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler prints the error, if it carries a message, and exits
// with its code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	os.Exit(report(os.Stderr, err))
}

// report writes err's message to w and returns the exit code to use.
// cli.ExitCoder codes are preserved; anything else exits 1.
func report(w io.Writer, err error) int {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() is empty or "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			_, _ = fmt.Fprintln(w, msg)
		}
		return code
	}

	_, _ = fmt.Fprintf(w, "Fatal: %v\n", err)
	return 1
}
