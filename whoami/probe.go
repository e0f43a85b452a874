package whoami

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/workers-openapi/process"
	"github.com/pithecene-io/workers-openapi/types"
)

// ErrNoAccount indicates the probe ran but printed no account ID,
// typically because the user is not logged in.
var ErrNoAccount = errors.New("no account ID in probe output")

// errFound stops the output copier once the ID has been read.
var errFound = errors.New("account ID found")

// Prober discovers the account ID. Implementations may be replaced by a
// structured API call without touching the pipeline.
type Prober interface {
	Probe(ctx context.Context) (string, error)
}

// WranglerProber runs an identity command such as `wrangler whoami` and
// scrapes its table output.
type WranglerProber struct {
	// Command is the probe command line.
	Command []string
	// Dir is the working directory.
	Dir string
	// Timeout bounds the whole probe. Zero means no limit.
	Timeout time.Duration
	// Stderr receives the probe's stderr. Nil discards it.
	Stderr io.Writer
}

// Probe runs the command and returns the first account ID it prints.
// The child is killed as soon as the ID is read.
func (p *WranglerProber) Probe(ctx context.Context) (string, error) {
	if len(p.Command) == 0 {
		return "", errors.New("no probe command configured")
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	spec := process.Spec{
		Name:   p.Command[0],
		Args:   p.Command[1:],
		Dir:    p.Dir,
		Stderr: p.Stderr,
	}
	pr, pw := io.Pipe()
	spec.Stdout = pw

	h := process.Start(ctx, spec)
	go func() {
		<-h.Done()
		_ = pw.Close()
	}()

	if id, ok := ScanAccountID(pr); ok {
		_ = pr.CloseWithError(errFound)
		_ = h.Kill()
		<-h.Done()
		return id, nil
	}

	// Keep the child's stdout flowing so it can exit on its own.
	_, _ = io.Copy(io.Discard, pr)

	outcome := h.Wait()
	switch {
	case ctx.Err() != nil:
		return "", fmt.Errorf("`%s` did not finish: %w", spec, ctx.Err())
	case outcome.Kind != types.OutcomeSuccess:
		return "", fmt.Errorf("`%s` %s", spec, outcome)
	default:
		return "", ErrNoAccount
	}
}
