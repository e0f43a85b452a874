// Package project resolves the run configuration from the project on disk
// and the command line.
//
// Resolution is pure: it reads files and arguments and returns values. It
// never writes to the filesystem and never spawns processes.
package project

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pithecene-io/workers-openapi/iox"
	"github.com/pithecene-io/workers-openapi/types"
)

// Files that mark the top of a Workers Rust package.
const (
	CargoManifest = "Cargo.toml"
	SourceDir     = "src"
	WranglerTOML  = "wrangler.toml"
	WranglerJSONC = "wrangler.jsonc"
)

// ErrManifestNotFound indicates the directory is not the top of a Workers
// Rust package.
var ErrManifestNotFound = errors.New("manifest not found")

// Manifest markers. Both match TOML (`key = value`) and JSONC
// (`"key": value`) lines. Anchoring at the line start keeps commented-out
// lines from matching; anything after the value (trailing comments,
// commas) is ignored.
var (
	nameLine       = regexp.MustCompile(`^\s*"?name"?\s*[=:]\s*(?:"([^"]*)"|'([^']*)')`)
	workersDevLine = regexp.MustCompile(`^\s*"?workers_dev"?\s*[=:]\s*(true|false)\b`)
)

// LocateManifest checks that dir is the top of a Workers Rust package and
// returns the path of its wrangler manifest.
func LocateManifest(dir string) (string, error) {
	for _, required := range []string{CargoManifest, SourceDir} {
		if _, err := os.Stat(filepath.Join(dir, required)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: expected to be called at the top of a Rust package, but `%s` was not found", ErrManifestNotFound, required)
			}
			return "", fmt.Errorf("cannot stat %s: %w", required, err)
		}
	}

	toml := filepath.Join(dir, WranglerTOML)
	jsonc := filepath.Join(dir, WranglerJSONC)
	hasTOML, hasJSONC := fileExists(toml), fileExists(jsonc)

	switch {
	case hasTOML && hasJSONC:
		return "", fmt.Errorf("both `%s` and `%s` found; keep only one", WranglerTOML, WranglerJSONC)
	case hasTOML:
		return toml, nil
	case hasJSONC:
		return jsonc, nil
	default:
		return "", fmt.Errorf("%w: neither `%s` nor `%s` found", ErrManifestNotFound, WranglerTOML, WranglerJSONC)
	}
}

// ReadManifest opens and scans the manifest at path.
func ReadManifest(path string) (types.ServiceIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.ServiceIdentity{}, fmt.Errorf("cannot read manifest %s: %w", path, err)
	}
	defer iox.DiscardClose(f)

	id, err := ScanManifest(f)
	if err != nil {
		return types.ServiceIdentity{}, fmt.Errorf("cannot read manifest %s: %w", path, err)
	}
	return id, nil
}

// ScanManifest extracts the service name and the workers_dev opt-out from
// manifest lines. The first match of each marker wins.
func ScanManifest(r io.Reader) (types.ServiceIdentity, error) {
	var (
		id             types.ServiceIdentity
		seenWorkersDev bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if id.ServiceName == nil {
			if m := nameLine.FindStringSubmatch(line); m != nil {
				name := m[1]
				if name == "" {
					name = m[2]
				}
				id.ServiceName = &name
				continue
			}
		}

		if !seenWorkersDev {
			if m := workersDevLine.FindStringSubmatch(line); m != nil {
				seenWorkersDev = true
				id.WorkersDevDisabled = m[1] == "false"
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return types.ServiceIdentity{}, err
	}
	return id, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
