// Package tmmigrate moves translation-management records from a legacy
// document store to a new one, re-keying every record and repairing
// cross-entity references on the way.
package tmmigrate

var (
	// Version of the application. Set by build flags.
	Version = "v0.1.0"

	// Build timestamp. Set by build flags.
	Build = "n/a"
)
