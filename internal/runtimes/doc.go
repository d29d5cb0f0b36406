// Package runtimes owns host runtime dependency convergence.
//
// Ownership boundary:
// - architecture-scoped inventory parsing
// - per-entry skip/upgrade/install decisions against host state
// - runtime package installation through an injected collaborator
package runtimes
