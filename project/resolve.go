package project

import (
	"fmt"

	"github.com/pithecene-io/workers-openapi/types"
)

// Resolve parses args and reads the manifest in dir.
//
// The returned RunConfig carries the manifest's service name and its
// workers_dev opt-out as NoProduction. The returned ServiceIdentity has no
// account ID yet; credential discovery fills that in later.
//
// Every error is classified as types.ErrManifest.
func Resolve(dir string, args []string) (types.RunConfig, types.ServiceIdentity, error) {
	cfg, err := ParseArgs(args)
	if err != nil {
		return types.RunConfig{}, types.ServiceIdentity{}, types.NewStageError(types.ErrManifest, "resolve", err)
	}

	path, err := LocateManifest(dir)
	if err != nil {
		return types.RunConfig{}, types.ServiceIdentity{}, types.NewStageError(types.ErrManifest, "resolve", err)
	}

	id, err := ReadManifest(path)
	if err != nil {
		return types.RunConfig{}, types.ServiceIdentity{}, types.NewStageError(types.ErrManifest, "resolve", fmt.Errorf("manifest: %w", err))
	}

	cfg.ServiceName = id.ServiceName
	cfg.NoProduction = id.WorkersDevDisabled
	return cfg, id, nil
}
