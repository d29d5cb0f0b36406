// Package pipeline owns the workspace provisioning orchestration.
//
// Ownership boundary:
// - the ordered stage state machine for setup and restore runs
// - fatal versus best-effort stage classification
// - pin-file convergence policy and persistence
// - exit-code mapping for the CLI surface
package pipeline
