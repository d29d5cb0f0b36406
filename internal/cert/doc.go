// Package cert owns development signing certificate provisioning.
//
// Ownership boundary:
// - publisher subject inference and sanitation
// - idempotent certificate generation orchestration
// - optional trust-store installation and gitignore upkeep
package cert
