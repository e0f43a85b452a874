// Package outdir owns the transient build output directory.
//
// The directory is scratch space for one run and is removed on every exit
// path. It is not locked: two runs against the same project directory
// race on it and the result is undefined.
package outdir

import (
	"fmt"
	"os"
)

// DefaultName is the transient directory created under the project root.
const DefaultName = "workers_openapi-worker_build-output"

// Remove deletes the directory and everything under it.
// A missing directory is not an error.
func Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Discard removes the directory and drops any error.
// Fatal paths use it so a cleanup failure never masks the original cause.
func Discard(path string) {
	_ = Remove(path)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
