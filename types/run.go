// Package types defines core domain types for the workers-openapi pipeline.
//
//nolint:revive // types is a common Go package naming convention
package types

// DefaultOutputPath is used when --out is not given.
const DefaultOutputPath = "openapi.json"

// RunConfig is the immutable configuration for a single run.
// It is produced by project.Resolve and only read afterwards.
type RunConfig struct {
	// OutputPath is where the final document is written.
	OutputPath string
	// BuildArgs are passed verbatim to the compiler after a "--" terminator.
	BuildArgs []string
	// NoProduction suppresses production endpoint inference.
	NoProduction bool
	// ServiceName is the declared service name from the manifest, if any.
	ServiceName *string
	// SkipLogin bypasses credential discovery.
	SkipLogin bool
	// ConfigPath is an explicit tool config file path (--config).
	// Empty means the optional default file is used if present.
	ConfigPath string
}

// ServiceIdentity is what the pipeline knows about the deployed service.
// All fields are independently optional.
type ServiceIdentity struct {
	// ServiceName is parsed from the manifest.
	ServiceName *string
	// AccountID is scraped from the identity probe.
	AccountID *string
	// WorkersDevDisabled is set when the manifest opts out of the
	// default public endpoint. Absent means false.
	WorkersDevDisabled bool
}

// WithAccountID returns a copy of the identity with the account ID set.
// An empty id leaves the account unset.
func (s ServiceIdentity) WithAccountID(id string) ServiceIdentity {
	if id == "" {
		return s
	}
	s.AccountID = &id
	return s
}

// ProductionKnown reports whether a production endpoint can be inferred.
func (s ServiceIdentity) ProductionKnown() bool {
	return s.ServiceName != nil && *s.ServiceName != "" &&
		s.AccountID != nil && *s.AccountID != "" &&
		!s.WorkersDevDisabled
}
