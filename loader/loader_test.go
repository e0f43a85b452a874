package loader

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pithecene-io/workers-openapi/log"
	"github.com/pithecene-io/workers-openapi/metrics"
	"github.com/pithecene-io/workers-openapi/types"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("// "+name+"\n"), 0o644))
	}
}

func TestFindModule(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "app_bg.js", "app.js", "app_bg.wasm", "app.d.ts")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "snippets"), 0o755))

	got, err := FindModule(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app.js"), got)
}

func TestFindModule_Sorted(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "zeta.js", "alpha.js")

	got, err := FindModule(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "alpha.js"), got)
}

func TestFindModule_Missing(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "app_bg.js", "app_bg.wasm")

	_, err := FindModule(dir)
	assert.ErrorIs(t, err, ErrModuleNotFound)

	_, err = FindModule(filepath.Join(dir, "absent"))
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestExtractLoader(t *testing.T) {
	root := t.TempDir()

	path, err := extractLoader(root)
	require.NoError(t, err)
	assert.Contains(t, path, "workers-openapi-loader-"+types.Version+"-"+EmbeddedChecksum()[:16])

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, embeddedLoader, content)

	again, err := extractLoader(root)
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestEmbeddedChecksum_Stable(t *testing.T) {
	assert.Len(t, EmbeddedChecksum(), 64)
	assert.Equal(t, EmbeddedChecksum(), EmbeddedChecksum())
}

// fakeNode writes a runtime stand-in that prints payload and exits with code.
func fakeNode(t *testing.T, dir, payload string, code int) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(dir, "node")
	script := "#!/bin/sh\n" +
		"printf '%s' '" + payload + "'\n" +
		"exit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func newLoader(node, dir string) *Loader {
	return &Loader{
		Node:   node,
		Dir:    dir,
		Script: filepath.Join(dir, "loader.mjs"),
		Logger: log.NewNop(),
	}
}

func TestLoad_Payload(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))
	writeFiles(t, out, "app.js")

	l := newLoader(fakeNode(t, dir, `{"openapi":"3.1.0"}`, 0), dir)
	l.Collector = metrics.NewCollector("run-1")

	payload, err := l.Load(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, `{"openapi":"3.1.0"}`, string(payload))

	snap := l.Collector.Snapshot()
	assert.Equal(t, int64(1), snap.ProcessesSpawned)
	assert.Equal(t, int64(len(payload)), snap.PayloadBytes)
}

func TestLoad_ExitClassification(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"missing entry point", exitMissingEntry, ErrEntryPointMissing},
		{"load failure", exitLoad, ErrInvokeFailed},
		{"invoke failure", exitInvoke, ErrInvokeFailed},
		{"unexpected code", 1, ErrInvokeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			out := filepath.Join(dir, "out")
			require.NoError(t, os.Mkdir(out, 0o755))
			writeFiles(t, out, "app.js")

			l := newLoader(fakeNode(t, dir, "", tt.code), dir)
			_, err := l.Load(context.Background(), out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, types.ErrArtifact)
			assert.Equal(t, types.ExitArtifact, types.ExitCodeFor(err))
		})
	}
}

func TestLoad_MissingEntryHint(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))
	writeFiles(t, out, "app.js")

	l := newLoader(fakeNode(t, dir, "", exitMissingEntry), dir)
	_, err := l.Load(context.Background(), out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--features openapi")
}

func TestLoad_PassesEntryPoint(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))
	writeFiles(t, out, "app.js")

	node := filepath.Join(dir, "node")
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	require.NoError(t, os.WriteFile(node, []byte("#!/bin/sh\nprintf '%s' \"$3\"\n"), 0o755))

	payload, err := newLoader(node, dir).Load(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, "OpenAPIDocumentBytes", string(payload))
}

func TestLoad_NoModule(t *testing.T) {
	dir := t.TempDir()
	l := newLoader("node", dir)

	_, err := l.Load(context.Background(), dir)
	assert.ErrorIs(t, err, ErrModuleNotFound)
	assert.Equal(t, types.ExitArtifact, types.ExitCodeFor(err))
}

func TestLoad_SpawnFailure(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "app.js")
	l := newLoader(filepath.Join(dir, "no-such-node"), dir)

	_, err := l.Load(context.Background(), dir)
	assert.ErrorIs(t, err, ErrInvokeFailed)
	assert.True(t, errors.Is(err, types.ErrArtifact))
}

// The remaining tests drive the embedded script with a real Node runtime.

func requireNode(t *testing.T) string {
	t.Helper()
	node, err := exec.LookPath("node")
	if err != nil {
		t.Skip("node not available")
	}
	return node
}

func realLoader(t *testing.T, module string) (*Loader, string) {
	t.Helper()
	node := requireNode(t)
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "app.js"), []byte(module), 0o644))

	script, err := extractLoader(t.TempDir())
	require.NoError(t, err)
	return &Loader{Node: node, Dir: out, Script: script, Logger: log.NewNop()}, out
}

func TestLoad_Node_Bytes(t *testing.T) {
	l, out := realLoader(t, `exports.OpenAPIDocumentBytes = async () => new TextEncoder().encode('{"openapi":"3.1.0"}');`)

	payload, err := l.Load(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, `{"openapi":"3.1.0"}`, string(payload))
}

func TestLoad_Node_String(t *testing.T) {
	l, out := realLoader(t, `exports.OpenAPIDocumentBytes = () => '{"paths":{}}';`)

	payload, err := l.Load(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, `{"paths":{}}`, string(payload))
}

// The shape wasm-bindgen emits for an ohkami `#[worker]` built with the
// `openapi` feature: an async export resolving to a Node Buffer.
func TestLoad_Node_WorkerExport(t *testing.T) {
	l, out := realLoader(t, `
module.exports.fetch = async () => null;
module.exports.OpenAPIDocumentBytes = async () => Buffer.from('{"openapi":"3.1.0","info":{"title":"w","version":"1"}}');
`)

	payload, err := l.Load(context.Background(), out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"openapi":"3.1.0","info":{"title":"w","version":"1"}}`, string(payload))
}

func TestLoad_Node_MissingExport(t *testing.T) {
	tests := []struct {
		name   string
		module string
	}{
		{"feature disabled", `exports.fetch = () => null;`},
		{"lowercase name", `exports.openapi = async () => Buffer.from('{}');`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, out := realLoader(t, tt.module)

			_, err := l.Load(context.Background(), out)
			assert.ErrorIs(t, err, ErrEntryPointMissing)
		})
	}
}

func TestLoad_Node_Rejects(t *testing.T) {
	l, out := realLoader(t, `exports.OpenAPIDocumentBytes = async () => { throw new Error('boom'); };`)

	_, err := l.Load(context.Background(), out)
	assert.ErrorIs(t, err, ErrInvokeFailed)
	assert.NotErrorIs(t, err, ErrEntryPointMissing)
}
