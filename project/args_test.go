package project

import (
	"errors"
	"reflect"
	"testing"

	"github.com/pithecene-io/workers-openapi/types"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want types.RunConfig
	}{
		{
			name: "no args",
			args: nil,
			want: types.RunConfig{OutputPath: "openapi.json"},
		},
		{
			name: "long out",
			args: []string{"--out", "docs/api.json"},
			want: types.RunConfig{OutputPath: "docs/api.json"},
		},
		{
			name: "short out and skip login",
			args: []string{"-o", "api.json", "--skip-login"},
			want: types.RunConfig{OutputPath: "api.json", SkipLogin: true},
		},
		{
			name: "config",
			args: []string{"--config", "ci.yaml"},
			want: types.RunConfig{OutputPath: "openapi.json", ConfigPath: "ci.yaml"},
		},
		{
			name: "last out wins",
			args: []string{"-o", "a.json", "--out", "b.json"},
			want: types.RunConfig{OutputPath: "b.json"},
		},
		{
			name: "passthrough",
			args: []string{"--skip-login", "--", "--features", "openapi", "--release"},
			want: types.RunConfig{
				OutputPath: "openapi.json",
				SkipLogin:  true,
				BuildArgs:  []string{"--features", "openapi", "--release"},
			},
		},
		{
			name: "passthrough keeps flag-like tokens verbatim",
			args: []string{"--", "--out", "x", "-o", "--", "--skip-login"},
			want: types.RunConfig{
				OutputPath: "openapi.json",
				BuildArgs:  []string{"--out", "x", "-o", "--", "--skip-login"},
			},
		},
		{
			name: "empty passthrough",
			args: []string{"--"},
			want: types.RunConfig{OutputPath: "openapi.json", BuildArgs: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("ParseArgs: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown flag", []string{"--release"}, ErrInvalidArgs},
		{"positional", []string{"openapi.json"}, ErrInvalidArgs},
		{"out without value", []string{"--out"}, ErrInvalidArgs},
		{"out followed by terminator", []string{"-o", "--", "x"}, ErrInvalidArgs},
		{"empty out", []string{"-o", ""}, ErrInvalidArgs},
		{"config without value", []string{"--config"}, ErrInvalidArgs},
		{"unknown before terminator", []string{"--skip-login", "--bogus", "--", "ok"}, ErrInvalidArgs},
		{"help", []string{"-h"}, ErrHelpRequested},
		{"long help", []string{"--out", "x.json", "--help"}, ErrHelpRequested},
		{"version", []string{"--version"}, ErrVersionRequested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseArgs_PassthroughIsCopied(t *testing.T) {
	args := []string{"--", "--features", "openapi"}
	cfg, err := ParseArgs(args)
	if err != nil {
		t.Fatal(err)
	}

	args[1] = "mutated"
	if cfg.BuildArgs[0] != "--features" {
		t.Error("BuildArgs aliases the caller's slice")
	}
}
