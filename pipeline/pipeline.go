// Package pipeline orchestrates one generation run.
//
// Stages run strictly in order: ensure the build tool, build, load the
// artifact, post-process the document, write it, and clean up. Credential
// discovery is the only concurrent stage; it starts before ensure and is
// joined before post-processing. Its failure is never fatal.
//
// The transient output directory is owned by the run. Every fatal path
// removes it best-effort before returning. Running two pipelines against
// the same project directory at once is not supported.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/pithecene-io/workers-openapi/document"
	"github.com/pithecene-io/workers-openapi/iox"
	"github.com/pithecene-io/workers-openapi/log"
	"github.com/pithecene-io/workers-openapi/metrics"
	"github.com/pithecene-io/workers-openapi/outdir"
	"github.com/pithecene-io/workers-openapi/types"
	"github.com/pithecene-io/workers-openapi/whoami"
)

// Stage names used in logs, metrics and errors.
const (
	StageEnsure   = "ensure"
	StageProbe    = "probe"
	StageBuild    = "build"
	StageLoad     = "load"
	StageDocument = "document"
	StageWrite    = "write"
	StageCleanup  = "cleanup"
)

// stageKinds classifies errors a stage returns unclassified.
var stageKinds = map[string]error{
	StageEnsure:   types.ErrDependency,
	StageBuild:    types.ErrBuild,
	StageLoad:     types.ErrArtifact,
	StageDocument: types.ErrDocument,
	StageWrite:    types.ErrDocument,
}

// Ensurer makes the build tool available.
type Ensurer interface {
	Ensure(ctx context.Context) error
}

// Builder compiles the project into its output directory.
type Builder interface {
	Build(ctx context.Context, passthrough []string) error
	OutputPath() string
}

// Loader invokes the compiled artifact and returns its raw payload.
type Loader interface {
	Load(ctx context.Context, outDir string) ([]byte, error)
}

// Config configures a single run.
type Config struct {
	// Run is the resolved run configuration.
	Run types.RunConfig
	// Identity is the manifest-derived identity. The account ID is
	// filled in by the probe.
	Identity types.ServiceIdentity
	// ProjectDir anchors a relative Run.OutputPath.
	ProjectDir string

	Ensurer Ensurer
	// Prober is optional. Nil behaves like Run.SkipLogin.
	Prober  whoami.Prober
	Builder Builder
	Loader  Loader

	// Document carries post-processing options.
	Document document.Options

	Logger *log.Logger
	// Collector is optional; all Collector methods are nil-safe.
	Collector *metrics.Collector
}

// Result describes a completed run.
type Result struct {
	// OutputPath is where the document was written.
	OutputPath string
	// Identity is the identity used for post-processing.
	Identity types.ServiceIdentity
	// Duration is the total run duration.
	Duration time.Duration
	// Metrics is a snapshot taken at the end of the run.
	Metrics metrics.Snapshot
}

// Pipeline runs the stages for one project.
type Pipeline struct {
	config *Config
	logger *log.Logger
}

// New validates config and returns a Pipeline.
func New(config *Config) (*Pipeline, error) {
	switch {
	case config.Ensurer == nil:
		return nil, errors.New("pipeline: ensurer is required")
	case config.Builder == nil:
		return nil, errors.New("pipeline: builder is required")
	case config.Loader == nil:
		return nil, errors.New("pipeline: loader is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{config: config, logger: logger}, nil
}

type probeResult struct {
	account string
	err     error
}

// Execute runs every stage.
//
// On a fatal stage error the output directory is removed, the error is
// returned, and Result is nil. A failed final cleanup returns both the
// Result (the document is already written) and an ErrCleanup error.
func (p *Pipeline) Execute(ctx context.Context) (*Result, error) {
	start := time.Now()
	cfg := p.config
	out := cfg.Builder.OutputPath()
	id := cfg.Identity
	id.WorkersDevDisabled = id.WorkersDevDisabled || cfg.Run.NoProduction

	p.logger.Info("starting run", map[string]any{
		"output":  p.outputPath(),
		"out_dir": out,
	})

	probeCtx, cancelProbe := context.WithCancel(ctx)
	defer cancelProbe()
	probed := p.startProbe(probeCtx)

	if err := p.timed(StageEnsure, func() error { return cfg.Ensurer.Ensure(ctx) }); err != nil {
		return nil, p.fail(StageEnsure, out, err)
	}

	if err := p.timed(StageBuild, func() error { return cfg.Builder.Build(ctx, cfg.Run.BuildArgs) }); err != nil {
		return nil, p.fail(StageBuild, out, err)
	}

	var payload []byte
	err := p.timed(StageLoad, func() error {
		var loadErr error
		payload, loadErr = cfg.Loader.Load(ctx, out)
		return loadErr
	})
	if err != nil {
		return nil, p.fail(StageLoad, out, err)
	}

	id = p.joinProbe(probed, id)

	var doc []byte
	err = p.timed(StageDocument, func() error {
		var docErr error
		doc, docErr = document.Process(payload, id, cfg.Document)
		return docErr
	})
	if err != nil {
		return nil, p.fail(StageDocument, out, err)
	}

	path := p.outputPath()
	err = p.timed(StageWrite, func() error { return iox.WriteFile(path, doc, 0o644) })
	if err != nil {
		return nil, p.fail(StageWrite, out, err)
	}
	cfg.Collector.SetBytesWritten(len(doc))

	result := &Result{OutputPath: path, Identity: id}

	if err := p.timed(StageCleanup, func() error { return outdir.Remove(out) }); err != nil {
		cfg.Collector.SetFailedStage(StageCleanup)
		p.logger.Error("cleanup failed", map[string]any{"dir": out, "error": err.Error()})
		result.Duration = time.Since(start)
		result.Metrics = cfg.Collector.Snapshot()
		return result, types.NewStageError(types.ErrCleanup, StageCleanup, err)
	}

	result.Duration = time.Since(start)
	result.Metrics = cfg.Collector.Snapshot()
	p.logger.Info("run complete", map[string]any{
		"output":   path,
		"bytes":    len(doc),
		"duration": result.Duration.String(),
	})
	return result, nil
}

// startProbe launches credential discovery. It returns nil when the
// probe is skipped.
func (p *Pipeline) startProbe(ctx context.Context) <-chan probeResult {
	cfg := p.config
	if cfg.Run.SkipLogin || cfg.Prober == nil {
		cfg.Collector.IncProbeSkipped()
		p.logger.Debug("credential discovery skipped", nil)
		return nil
	}

	ch := make(chan probeResult, 1)
	go func() {
		started := time.Now()
		account, err := cfg.Prober.Probe(ctx)
		cfg.Collector.ObserveStage(StageProbe, time.Since(started))
		ch <- probeResult{account: account, err: err}
	}()
	return ch
}

// joinProbe waits for discovery and merges the account into id. A probe
// failure only costs the production server entry.
func (p *Pipeline) joinProbe(ch <-chan probeResult, id types.ServiceIdentity) types.ServiceIdentity {
	if ch == nil {
		return id
	}
	res := <-ch
	if res.err != nil {
		p.config.Collector.RecordProbe(false)
		p.logger.Warn("could not determine account ID; production server will not be added", map[string]any{
			"error": res.err.Error(),
		})
		return id
	}
	p.config.Collector.RecordProbe(true)
	p.logger.Debug("account ID discovered", map[string]any{"account_id": res.account})
	return id.WithAccountID(res.account)
}

// fail classifies err, records the failed stage and removes the output
// directory. A removal error here is swallowed so it cannot mask err.
func (p *Pipeline) fail(stage, out string, err error) error {
	var se *types.StageError
	if !errors.As(err, &se) {
		err = types.NewStageError(stageKinds[stage], stage, err)
	}
	p.config.Collector.SetFailedStage(stage)
	outdir.Discard(out)
	p.logger.Debug("stage failed", map[string]any{"stage": stage, "error": err.Error()})
	return err
}

func (p *Pipeline) timed(stage string, fn func() error) error {
	started := time.Now()
	err := fn()
	p.config.Collector.ObserveStage(stage, time.Since(started))
	return err
}

func (p *Pipeline) outputPath() string {
	path := p.config.Run.OutputPath
	if path == "" {
		path = types.DefaultOutputPath
	}
	if filepath.IsAbs(path) || p.config.ProjectDir == "" {
		return path
	}
	return filepath.Join(p.config.ProjectDir, path)
}
