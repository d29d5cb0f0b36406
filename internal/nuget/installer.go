package nuget

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/sdkctl/internal/tools"
	"github.com/danmuck/sdkctl/internal/version"
)

// PackageInstaller materializes packages into a target directory and
// reports the versions that landed on disk.
type PackageInstaller interface {
	InstallPackages(ctx context.Context, targetDir string, names []string, includePrerelease, ignorePinned bool) (map[string]string, error)
}

// ExecInstaller drives the nuget CLI for package materialization.
type ExecInstaller struct {
	Command string
	FeedURL string
	Pins    map[string]string
	Runner  tools.CommandRunner
}

// NewExecInstaller builds a CLI-backed installer with pinned versions applied unless overridden.
func NewExecInstaller(feedURL string, pins map[string]string, runner tools.CommandRunner) *ExecInstaller {
	return &ExecInstaller{
		Command: "nuget",
		FeedURL: strings.TrimSpace(feedURL),
		Pins:    pins,
		Runner:  runner,
	}
}

// InstallPackages installs each named package, continuing past individual
// failures, and returns the installed name->version set discovered on disk.
func (i *ExecInstaller) InstallPackages(ctx context.Context, targetDir string, names []string, includePrerelease, ignorePinned bool) (map[string]string, error) {
	if i.Runner == nil {
		return nil, fmt.Errorf("nuget: installer requires a command runner")
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("nuget: prepare package directory: %w", err)
	}

	var failures []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := i.installOne(ctx, targetDir, name, includePrerelease, ignorePinned); err != nil {
			log.Warn().Str("package", name).Err(err).Msg("package install failed")
			failures = append(failures, name)
		}
	}

	installed, err := InstalledVersions(targetDir, names)
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		return installed, fmt.Errorf("nuget: install failed for %s", strings.Join(failures, ", "))
	}
	return installed, nil
}

// installOne seeds the CLI invocation for a single package id.
func (i *ExecInstaller) installOne(ctx context.Context, targetDir, name string, includePrerelease, ignorePinned bool) error {
	args := []string{"install", name}
	if !ignorePinned {
		if pin := strings.TrimSpace(i.Pins[name]); pin != "" {
			args = append(args, "-Version", pin)
		}
	}
	if includePrerelease {
		args = append(args, "-Prerelease")
	}
	args = append(args, "-OutputDirectory", targetDir, "-NonInteractive")
	if i.FeedURL != "" {
		args = append(args, "-Source", i.FeedURL)
	}

	command := i.Command
	if strings.TrimSpace(command) == "" {
		command = "nuget"
	}
	stdout, stderr, exit, err := i.Runner.Run(ctx, command, args...)
	if err != nil {
		return fmt.Errorf("nuget: run %s %s: %w", command, strings.Join(args, " "), err)
	}
	if exit != 0 {
		return fmt.Errorf("nuget: %s %s exited %d\nstdout: %s\nstderr: %s",
			command, strings.Join(args, " "), exit, string(stdout), string(stderr))
	}
	return nil
}

// InstalledVersions scans a package directory for <Name>.<Version> entries
// and returns the newest version present per requested name.
func InstalledVersions(targetDir string, names []string) (map[string]string, error) {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("nuget: scan package directory: %w", err)
	}

	installed := make(map[string]string)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		best := ""
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			v, ok := versionSuffix(entry.Name(), name)
			if !ok {
				continue
			}
			if best == "" || newerVersion(v, best) {
				best = v
			}
		}
		if best != "" {
			installed[name] = best
		}
	}
	return installed, nil
}

// InstalledDir returns the on-disk directory for one installed package version.
func InstalledDir(targetDir, name, ver string) string {
	return filepath.Join(targetDir, fmt.Sprintf("%s.%s", name, ver))
}

// versionSuffix extracts the version portion of a <Name>.<Version> directory name.
func versionSuffix(dir, name string) (string, bool) {
	prefix := name + "."
	if len(dir) <= len(prefix) || !strings.EqualFold(dir[:len(prefix)], prefix) {
		return "", false
	}
	rest := dir[len(prefix):]
	if rest == "" {
		return "", false
	}
	// Require the suffix to open numerically so SDK.Core does not
	// claim SDK.Core.Headers.1.0.0 directories.
	if rest[0] < '0' || rest[0] > '9' {
		return "", false
	}
	return rest, true
}

// newerVersion reports whether a sorts after b, falling back to lexical
// order when either side fails numeric parsing.
func newerVersion(a, b string) bool {
	cmp, err := version.CompareStrings(a, b)
	if err != nil {
		return a > b
	}
	return cmp > 0
}
