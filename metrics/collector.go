// Package metrics provides per-run counters for the generation pipeline.
//
// The Collector accumulates counters during a single run and is logged as
// one summary entry when the run ends. It is a leaf package with no
// internal dependencies.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is an immutable point-in-time view of the run counters.
// Safe to read concurrently after creation.
type Snapshot struct {
	// Processes
	ProcessesSpawned int64
	ProcessFailures  int64
	InstallsRun      int64

	// Credential discovery
	ProbeHits    int64
	ProbeMisses  int64
	ProbeSkipped int64

	// Document
	PayloadBytes    int64
	ServersAppended int64
	BytesWritten    int64

	// StageDurations maps stage name to wall time spent in it.
	StageDurations map[string]time.Duration
	// FailedStage is the stage that ended the run, empty on success.
	FailedStage string

	RunID string
}

// Fields flattens the snapshot for a structured log entry.
func (s Snapshot) Fields() map[string]any {
	stages := make(map[string]string, len(s.StageDurations))
	for name, d := range s.StageDurations {
		stages[name] = d.Round(time.Millisecond).String()
	}
	fields := map[string]any{
		"processes_spawned": s.ProcessesSpawned,
		"process_failures":  s.ProcessFailures,
		"installs_run":      s.InstallsRun,
		"probe_hits":        s.ProbeHits,
		"probe_misses":      s.ProbeMisses,
		"probe_skipped":     s.ProbeSkipped,
		"payload_bytes":     s.PayloadBytes,
		"servers_appended":  s.ServersAppended,
		"bytes_written":     s.BytesWritten,
		"stages":            stages,
	}
	if s.FailedStage != "" {
		fields["failed_stage"] = s.FailedStage
	}
	return fields
}

// Collector accumulates metrics during a single run.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	processesSpawned int64
	processFailures  int64
	installsRun      int64

	probeHits    int64
	probeMisses  int64
	probeSkipped int64

	payloadBytes    int64
	serversAppended int64
	bytesWritten    int64

	stageDurations map[string]time.Duration
	failedStage    string

	runID string
}

// NewCollector creates a Collector for one run.
func NewCollector(runID string) *Collector {
	return &Collector{
		stageDurations: make(map[string]time.Duration),
		runID:          runID,
	}
}

// --- Processes ---

// IncProcessSpawned records an external process invocation.
func (c *Collector) IncProcessSpawned() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.processesSpawned++
	c.mu.Unlock()
}

// IncProcessFailure records an invocation that did not exit 0.
func (c *Collector) IncProcessFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.processFailures++
	c.mu.Unlock()
}

// IncInstall records an on-demand install of the build tool.
func (c *Collector) IncInstall() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.installsRun++
	c.mu.Unlock()
}

// --- Credential discovery ---

// RecordProbe records whether the probe yielded an account ID.
func (c *Collector) RecordProbe(hit bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if hit {
		c.probeHits++
	} else {
		c.probeMisses++
	}
	c.mu.Unlock()
}

// IncProbeSkipped records a run that bypassed discovery.
func (c *Collector) IncProbeSkipped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.probeSkipped++
	c.mu.Unlock()
}

// --- Document ---

// SetPayloadBytes records the size of the raw artifact payload.
func (c *Collector) SetPayloadBytes(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.payloadBytes = int64(n)
	c.mu.Unlock()
}

// AddServersAppended records server entries added by post-processing.
func (c *Collector) AddServersAppended(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.serversAppended += int64(n)
	c.mu.Unlock()
}

// SetBytesWritten records the size of the written document.
func (c *Collector) SetBytesWritten(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bytesWritten = int64(n)
	c.mu.Unlock()
}

// --- Stages ---

// ObserveStage adds d to the wall time of the named stage.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.stageDurations[stage] += d
	c.mu.Unlock()
}

// SetFailedStage records the stage that ended the run. First call wins.
func (c *Collector) SetFailedStage(stage string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.failedStage == "" {
		c.failedStage = stage
	}
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stages := make(map[string]time.Duration, len(c.stageDurations))
	for k, v := range c.stageDurations {
		stages[k] = v
	}

	return Snapshot{
		ProcessesSpawned: c.processesSpawned,
		ProcessFailures:  c.processFailures,
		InstallsRun:      c.installsRun,

		ProbeHits:    c.probeHits,
		ProbeMisses:  c.probeMisses,
		ProbeSkipped: c.probeSkipped,

		PayloadBytes:    c.payloadBytes,
		ServersAppended: c.serversAppended,
		BytesWritten:    c.bytesWritten,

		StageDurations: stages,
		FailedStage:    c.failedStage,

		RunID: c.runID,
	}
}
