package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/workers-openapi/types"
)

// appHelpTemplate replaces urfave's generated help. Flag parsing is owned
// by project.ParseArgs, so the flags are documented here by hand.
const appHelpTemplate = `{{.Name}} - {{.Usage}}

Usage:

	{{.Name}} [--out|-o <path>] [--skip-login] [--config <path>] [-- <compiler args>...]

Run at the root of a Rust Workers package (Cargo.toml, src/, and
wrangler.toml or wrangler.jsonc).

Options:

	-o, --out <path>    output file (default: openapi.json)
	--skip-login        do not probe for an account ID; no production server is added
	--config <path>     tool config file (default: ./workers-openapi.yaml when present)
	-h, --help          show this help
	--version           show the version
	-- <args>...        passed to the compiler unchanged (e.g. -- --features openapi)

Exit codes:

	0    success
	150  manifest or configuration error
	151  dependency install failed
	152  build failed
	153  artifact load or invocation failed
	154  document generation failed
	155  cleanup failed (the document was written)

Build output goes to a transient directory in the project root that is
removed before exit. Do not run two instances against the same project
at once.
`

// NewApp returns the workers-openapi application.
// commit is reported alongside the version.
func NewApp(commit string) *cli.App {
	return &cli.App{
		Name:                  "workers-openapi",
		Usage:                 "generate openapi.json from a Rust Workers project",
		Version:               fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		CustomAppHelpTemplate: appHelpTemplate,
		HideHelp:              true,
		HideVersion:           true,
		SkipFlagParsing:       true,
		Action:                generateAction,
	}
}
