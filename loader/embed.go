package loader

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pithecene-io/workers-openapi/types"
)

//go:embed bundle/loader.mjs
var embeddedLoader []byte

// extractOnce ensures extraction happens only once per process.
var (
	extractOnce   sync.Once
	extractedPath string
	extractErr    error
)

// EmbeddedChecksum returns the SHA256 checksum of the embedded loader.
func EmbeddedChecksum() string {
	hash := sha256.Sum256(embeddedLoader)
	return hex.EncodeToString(hash[:])
}

// ScriptPath returns the path to the extracted loader script.
// Extracts on first call; subsequent calls return the cached path.
func ScriptPath() (string, error) {
	extractOnce.Do(func() {
		extractedPath, extractErr = extractLoader(os.TempDir())
	})
	return extractedPath, extractErr
}

// extractLoader writes the embedded loader under root. The directory name
// carries the version and checksum so different builds never share a
// script, and an existing identical extraction is reused.
func extractLoader(root string) (string, error) {
	if len(embeddedLoader) == 0 {
		return "", fmt.Errorf("no embedded loader available")
	}

	dirName := fmt.Sprintf("workers-openapi-loader-%s-%s", types.Version, EmbeddedChecksum()[:16])
	dir := filepath.Join(root, dirName)
	path := filepath.Join(dir, "loader.mjs")

	if info, err := os.Stat(path); err == nil && info.Size() == int64(len(embeddedLoader)) {
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create loader directory: %w", err)
	}
	if err := os.WriteFile(path, embeddedLoader, 0o644); err != nil {
		return "", fmt.Errorf("failed to write loader: %w", err)
	}
	return path, nil
}
