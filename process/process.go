// Package process wraps external tool invocations.
//
// A child process can end in several overlapping ways: its pipes close,
// it exits, it fails to spawn, or the run is cancelled underneath it.
// Handle collapses all of them into exactly one types.ProcessOutcome.
// The first signal to arrive wins; later ones are ignored.
//
// Children run in their own process group where the platform supports it.
// Cancellation and Kill signal the whole group, and a cancelled handle
// settles only after the child has been reaped, so nothing the tool
// spawned is still writing when the caller cleans up.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pithecene-io/workers-openapi/types"
)

// waitDelay bounds how long Wait keeps copying output after the child is
// gone. Tools launched through wrappers (npx, cargo) can leave grandchildren
// holding the pipes open.
const waitDelay = 5 * time.Second

// Spec describes one external process invocation.
type Spec struct {
	// Name is the binary to execute, resolved through PATH.
	Name string
	// Args are the arguments after the binary name.
	Args []string
	// Dir is the working directory. Empty uses the current directory.
	Dir string
	// Env holds extra KEY=VALUE entries layered over os.Environ().
	Env []string
	// Stdout receives the child's stdout. Nil discards it.
	Stdout io.Writer
	// Stderr receives the child's stderr. Nil discards it.
	Stderr io.Writer
}

// String renders the command line for diagnostics.
func (s Spec) String() string {
	return strings.Join(append([]string{s.Name}, s.Args...), " ")
}

// Handle is a started process and its eventual outcome.
type Handle struct {
	cmd     *exec.Cmd
	done    chan struct{}
	once    sync.Once
	outcome types.ProcessOutcome
}

// Start spawns the process described by spec.
// It never returns an error: a spawn failure settles the handle with an
// OutcomeError, so callers read every fate through Wait.
func Start(ctx context.Context, spec Spec) *Handle {
	h := &Handle{done: make(chan struct{})}

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)
	if len(spec.Env) > 0 {
		cmd.Env = deduplicateEnv(append(os.Environ(), spec.Env...))
	}
	h.cmd = cmd

	if err := cmd.Start(); err != nil {
		h.settle(types.Errored("failed to start %s: %v", spec.Name, err))
		return h
	}

	go func() {
		h.settle(outcomeFromWait(ctx, cmd.Wait()))
	}()

	return h
}

// Run starts the process and blocks until its outcome is known.
func Run(ctx context.Context, spec Spec) types.ProcessOutcome {
	return Start(ctx, spec).Wait()
}

// Done is closed once the outcome is settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the outcome is settled and returns it.
func (h *Handle) Wait() types.ProcessOutcome {
	<-h.done
	return h.outcome
}

// Kill terminates the process. It is a no-op if the process never started
// or has already been reaped.
func (h *Handle) Kill() error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}
	select {
	case <-h.done:
		return nil
	default:
	}
	if err := killGroup(h.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill %s: %w", h.cmd.Path, err)
	}
	return nil
}

func (h *Handle) settle(o types.ProcessOutcome) {
	h.once.Do(func() {
		h.outcome = o
		close(h.done)
	})
}

// outcomeFromWait classifies the error returned by exec.Cmd.Wait.
func outcomeFromWait(ctx context.Context, err error) types.ProcessOutcome {
	if err == nil {
		return types.Succeeded()
	}
	if ctx.Err() != nil {
		return types.Errored("disconnected: %v", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return types.FailedWith(code)
		}
		return types.Errored("terminated: %v", exitErr)
	}

	// Pipe copy failures and WaitDelay expiry surface here.
	return types.Errored("wait failed: %v", err)
}

// deduplicateEnv keeps the last occurrence of each env var key.
// This ensures Spec.Env values win over inherited duplicates from os.Environ().
func deduplicateEnv(env []string) []string {
	seen := make(map[string]int, len(env))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		seen[key] = i
	}
	result := make([]string, 0, len(seen))
	for i, entry := range env {
		key, _, _ := strings.Cut(entry, "=")
		if seen[key] == i {
			result = append(result, entry)
		}
	}
	return result
}
