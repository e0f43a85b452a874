package types

// Version is the canonical project version.
// The embedded loader script is versioned in lockstep with it.
const Version = "0.3.0"
