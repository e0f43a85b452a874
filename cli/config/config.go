package config

import (
	"fmt"
	"time"

	"github.com/pithecene-io/workers-openapi/document"
	"github.com/pithecene-io/workers-openapi/outdir"
)

// Defaults for every tool setting. An empty value in the file falls back
// to these.
const (
	DefaultBuildTool    = "wasm-pack"
	DefaultNode         = "node"
	DefaultOutDir       = outdir.DefaultName
	DefaultLocalURL     = document.DefaultLocalURL
	DefaultDomainSuffix = document.DefaultDomainSuffix
	DefaultLogLevel     = "warn"
	DefaultProbeTimeout = 30 * time.Second
)

var (
	defaultInstall = []string{"cargo", "install", "wasm-pack"}
	defaultProbe   = []string{"wrangler", "whoami"}
)

// Config represents a workers-openapi.yaml tool configuration file.
// All values are optional. It configures the tool itself; project
// settings come from the manifest.
type Config struct {
	// BuildTool is the compiler binary checked by the dependency stage.
	BuildTool string `yaml:"build_tool"`
	// Install is the installer command line run when BuildTool is missing.
	Install []string `yaml:"install"`
	// Probe is the identity probe command line.
	Probe []string `yaml:"probe"`
	// ProbeTimeout bounds credential discovery. "0s" disables the limit.
	ProbeTimeout *Duration `yaml:"probe_timeout"`
	// Node is the runtime used to load the compiled artifact.
	Node string `yaml:"node"`
	// OutDir is the transient build output directory, relative to the project.
	OutDir string `yaml:"out_dir"`
	// LocalURL is the server entry added when no local one exists.
	LocalURL string `yaml:"local_url"`
	// DomainSuffix completes the inferred production URL.
	DomainSuffix string `yaml:"domain_suffix"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Timeout returns the effective probe timeout. Zero means no limit.
func (c *Config) Timeout() time.Duration {
	if c.ProbeTimeout == nil {
		return DefaultProbeTimeout
	}
	return c.ProbeTimeout.Duration
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.ProbeTimeout != nil && c.ProbeTimeout.Duration < 0 {
		return fmt.Errorf("probe_timeout must not be negative, got %s", c.ProbeTimeout.Duration)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q (must be debug, info, warn, or error)", c.LogLevel)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.BuildTool = orDefault(c.BuildTool, DefaultBuildTool)
	c.Node = orDefault(c.Node, DefaultNode)
	c.OutDir = orDefault(c.OutDir, DefaultOutDir)
	c.LocalURL = orDefault(c.LocalURL, DefaultLocalURL)
	c.DomainSuffix = orDefault(c.DomainSuffix, DefaultDomainSuffix)
	c.LogLevel = orDefault(c.LogLevel, DefaultLogLevel)
	if len(c.Install) == 0 {
		c.Install = append([]string(nil), defaultInstall...)
	}
	if len(c.Probe) == 0 {
		c.Probe = append([]string(nil), defaultProbe...)
	}
}

// orDefault returns val if non-empty, otherwise fallback.
func orDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
