// Package constants centralizes limits and defaults shared by the server,
// the lookups and the CLI.
//
// Body caps, lookup timeouts and upstream endpoints live here so cmd/ and
// internal/ can reference them without introducing import cycles.
package constants
