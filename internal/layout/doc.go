// Package layout owns workspace tree materialization from installed packages.
//
// Ownership boundary:
// - workspace directory skeleton
// - staging of headers, libraries, binaries and runtime bundles
// - best-effort license collection
package layout
