package runtimes

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/sdkctl/internal/version"
)

// EntryAction records what happened to one inventory entry.
type EntryAction string

const (
	ActionInstalled EntryAction = "installed"
	ActionSkipped   EntryAction = "skipped"
	ActionFailed    EntryAction = "failed"
)

// EntryResult is the per-entry diagnostic record from one convergence pass.
type EntryResult struct {
	FileName string
	Identity string
	Action   EntryAction
	Reason   string
	Err      error
}

// HostState answers installed-package queries against the live host.
type HostState interface {
	IdentityInstalled(ctx context.Context, identity string) (bool, error)
	InstalledVersion(ctx context.Context, name string) (string, bool, error)
}

// RuntimeInstaller applies one runtime package file to the host.
type RuntimeInstaller interface {
	InstallRuntime(ctx context.Context, path string) error
}

// Installer converges host runtime state toward an architecture-scoped inventory.
type Installer struct {
	RuntimesDir string
	Host        HostState
	Runtime     RuntimeInstaller
}

// NewInstaller builds a convergence installer over a runtimes directory.
func NewInstaller(runtimesDir string, host HostState, rt RuntimeInstaller) *Installer {
	return &Installer{RuntimesDir: runtimesDir, Host: host, Runtime: rt}
}

// InstallAll walks the inventory for one architecture and converges each
// entry, continuing past per-entry failures. An unreadable inventory yields
// an empty result set, not an error; only cancellation propagates.
func (i *Installer) InstallAll(ctx context.Context, arch string) ([]EntryResult, error) {
	path := InventoryPath(i.RuntimesDir, arch)
	entries, err := LoadInventory(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("no runtime installation performed")
		return nil, nil
	}

	results := make([]EntryResult, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, i.converge(ctx, arch, entry))
	}
	return results, nil
}

// converge decides skip/upgrade/install for one entry and applies the install.
func (i *Installer) converge(ctx context.Context, arch string, entry InventoryEntry) EntryResult {
	result := EntryResult{FileName: entry.FileName, Identity: entry.Identity}

	if skip, reason := i.shouldSkip(ctx, entry); skip {
		log.Debug().Str("identity", entry.Identity).Str("reason", reason).Msg("runtime entry skipped")
		result.Action = ActionSkipped
		result.Reason = reason
		return result
	}

	path := filepath.Join(i.RuntimesDir, arch, entry.FileName)
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("path", path).Msg("runtime artifact missing")
		result.Action = ActionSkipped
		result.Reason = "artifact missing"
		return result
	}

	if err := i.Runtime.InstallRuntime(ctx, path); err != nil {
		log.Warn().Str("identity", entry.Identity).Err(err).Msg("runtime install failed")
		result.Action = ActionFailed
		result.Reason = "install failed"
		result.Err = err
		return result
	}

	log.Info().Str("identity", entry.Identity).Msg("runtime installed")
	result.Action = ActionInstalled
	return result
}

// shouldSkip runs the exact-identity and name+version checks, failing open
// toward install whenever a check is inconclusive.
func (i *Installer) shouldSkip(ctx context.Context, entry InventoryEntry) (bool, string) {
	installed, err := i.Host.IdentityInstalled(ctx, entry.Identity)
	if err == nil && installed {
		return true, "already installed"
	}

	id, err := ParseIdentity(entry.Identity)
	if err != nil {
		return false, ""
	}
	have, found, err := i.Host.InstalledVersion(ctx, id.Name)
	if err != nil || !found {
		return false, ""
	}
	cmp, err := version.CompareStrings(have, id.Version)
	if err != nil {
		return false, ""
	}
	if cmp >= 0 {
		return true, "installed version " + have + " satisfies " + id.Version
	}
	return false, ""
}
