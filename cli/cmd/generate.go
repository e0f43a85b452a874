package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/workers-openapi/build"
	"github.com/pithecene-io/workers-openapi/cli/config"
	"github.com/pithecene-io/workers-openapi/document"
	"github.com/pithecene-io/workers-openapi/loader"
	"github.com/pithecene-io/workers-openapi/log"
	"github.com/pithecene-io/workers-openapi/metrics"
	"github.com/pithecene-io/workers-openapi/pipeline"
	"github.com/pithecene-io/workers-openapi/project"
	"github.com/pithecene-io/workers-openapi/toolchain"
	"github.com/pithecene-io/workers-openapi/types"
	"github.com/pithecene-io/workers-openapi/whoami"
)

func generateAction(c *cli.Context) error {
	projectDir, err := os.Getwd()
	if err != nil {
		return fatal(types.NewStageError(types.ErrManifest, "resolve", err))
	}

	run, id, err := project.Resolve(projectDir, c.Args().Slice())
	switch {
	case errors.Is(err, project.ErrHelpRequested):
		return cli.ShowAppHelp(c)
	case errors.Is(err, project.ErrVersionRequested):
		cli.ShowVersion(c)
		return nil
	case err != nil:
		return fatal(err)
	}

	toolCfg, err := config.Resolve(projectDir, run.ConfigPath)
	if err != nil {
		return fatal(types.NewStageError(types.ErrManifest, "config", err))
	}

	runID := log.NewRunID()
	logger := log.NewLoggerWithWriter(runID, toolCfg.LogLevel, c.App.ErrWriter)
	defer logger.Sync()
	collector := metrics.NewCollector(runID)

	p, err := pipeline.New(newPipelineConfig(projectDir, run, id, toolCfg, logger, collector, c.App.Writer, c.App.ErrWriter))
	if err != nil {
		return fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := p.Execute(ctx)
	snap := collector.Snapshot()
	if result != nil {
		snap = result.Metrics
	}
	logger.Debug("run metrics", snap.Fields())
	if err != nil {
		return fatal(err)
	}

	logger.Sugar().Infof("wrote %s in %s", result.OutputPath, result.Duration.Round(time.Millisecond))
	return nil
}

// newPipelineConfig wires the production stage implementations.
func newPipelineConfig(
	projectDir string,
	run types.RunConfig,
	id types.ServiceIdentity,
	toolCfg *config.Config,
	logger *log.Logger,
	collector *metrics.Collector,
	stdout, stderr io.Writer,
) *pipeline.Config {
	return &pipeline.Config{
		Run:        run,
		Identity:   id,
		ProjectDir: projectDir,
		Ensurer: &toolchain.Ensurer{
			Tool:      toolCfg.BuildTool,
			Install:   toolCfg.Install,
			Dir:       projectDir,
			Stdout:    stdout,
			Stderr:    stderr,
			Logger:    logger,
			Collector: collector,
		},
		Prober: &whoami.WranglerProber{
			Command: toolCfg.Probe,
			Dir:     projectDir,
			Timeout: toolCfg.Timeout(),
		},
		Builder: &build.Builder{
			Tool:      toolCfg.BuildTool,
			Dir:       projectDir,
			OutDir:    toolCfg.OutDir,
			Stdout:    stdout,
			Stderr:    stderr,
			Logger:    logger,
			Collector: collector,
		},
		Loader: &loader.Loader{
			Node:      toolCfg.Node,
			Dir:       projectDir,
			Stderr:    stderr,
			Logger:    logger,
			Collector: collector,
		},
		Document: document.Options{
			LocalURL:     toolCfg.LocalURL,
			DomainSuffix: toolCfg.DomainSuffix,
			Collector:    collector,
		},
		Logger:    logger,
		Collector: collector,
	}
}

// fatal converts a classified error into a cli exit with its code.
func fatal(err error) error {
	return cli.Exit(fmt.Sprintf("Fatal: %v", err), int(types.ExitCodeFor(err)))
}
