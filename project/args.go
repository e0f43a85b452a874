package project

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/workers-openapi/types"
)

// Command-line tokens.
const (
	flagOut       = "--out"
	flagOutShort  = "-o"
	flagSkipLogin = "--skip-login"
	flagConfig    = "--config"
	flagHelp      = "--help"
	flagHelpShort = "-h"
	flagVersion   = "--version"
	terminator    = "--"
)

// Sentinels returned by ParseArgs for informational flags. They are not
// failures; the CLI prints help or version and exits 0.
var (
	ErrHelpRequested    = errors.New("help requested")
	ErrVersionRequested = errors.New("version requested")
)

// ErrInvalidArgs indicates a malformed command line.
var ErrInvalidArgs = errors.New("invalid arguments")

// ParseArgs parses the command line strictly left to right.
//
// Recognized before the terminator:
//
//	--out, -o <path>   output path (two tokens)
//	--skip-login       skip credential discovery
//	--config <path>    tool config file (two tokens)
//	-h, --help         help
//	--version          version
//
// Every token after "--" is passed through to the compiler verbatim and in
// order. Any other token before "--" is an error.
func ParseArgs(args []string) (types.RunConfig, error) {
	cfg := types.RunConfig{OutputPath: types.DefaultOutputPath}

	for i := 0; i < len(args); i++ {
		switch tok := args[i]; tok {
		case terminator:
			cfg.BuildArgs = append([]string{}, args[i+1:]...)
			return cfg, nil
		case flagOut, flagOutShort:
			value, err := optionValue(args, i)
			if err != nil {
				return types.RunConfig{}, err
			}
			cfg.OutputPath = value
			i++
		case flagConfig:
			value, err := optionValue(args, i)
			if err != nil {
				return types.RunConfig{}, err
			}
			cfg.ConfigPath = value
			i++
		case flagSkipLogin:
			cfg.SkipLogin = true
		case flagHelp, flagHelpShort:
			return types.RunConfig{}, ErrHelpRequested
		case flagVersion:
			return types.RunConfig{}, ErrVersionRequested
		default:
			return types.RunConfig{}, fmt.Errorf("%w: unrecognized argument %q (compiler arguments go after `--`)", ErrInvalidArgs, tok)
		}
	}

	return cfg, nil
}

// optionValue returns the token following args[i]. A missing value, or
// one that is itself the terminator, is an error.
func optionValue(args []string, i int) (string, error) {
	if i+1 >= len(args) || args[i+1] == terminator || args[i+1] == "" {
		return "", fmt.Errorf("%w: %s requires a value", ErrInvalidArgs, args[i])
	}
	return args[i+1], nil
}
