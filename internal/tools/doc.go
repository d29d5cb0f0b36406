// Package tools owns the external command execution boundary.
//
// Ownership boundary:
// - command runner interface
// - local exec runner with exit-code normalization
package tools
