package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/sdkctl/internal/pipeline"
)

// defaultsFileName is the optional per-project CLI defaults file.
const defaultsFileName = "sdkctl.toml"

// fileDefaults mirrors the defaults file keys; only keys actually present in
// the file take effect, and command-line flags win over the file.
type fileDefaults struct {
	FeedURL      string   `toml:"feed_url"`
	WorkspaceDir string   `toml:"workspace_dir"`
	PackagesDir  string   `toml:"packages_dir"`
	Packages     []string `toml:"packages"`
	ToolsPackage string   `toml:"tools_package"`
	Arch         string   `toml:"arch"`
	Publisher    string   `toml:"publisher"`
	CertPath     string   `toml:"cert_path"`
	CertDays     int      `toml:"cert_valid_days"`

	NuGetCommand       string `toml:"nuget_command"`
	HostQueryCommand   string `toml:"host_query_command"`
	HostInstallCommand string `toml:"host_install_command"`
	HostInstallTarget  string `toml:"host_install_target"`
}

// hostOverrides carries the file-level command substitutions for the exec
// adapters; these have no flag equivalents.
type hostOverrides struct {
	NuGetCommand   string
	QueryCommand   string
	InstallCommand string
	InstallTarget  string
}

// applyDefaultsFile folds defined file keys into the options, skipping any
// field whose flag was given on the command line.
func applyDefaultsFile(path string, set map[string]bool, opts *pipeline.Options, host *hostOverrides) error {
	var raw fileDefaults
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load defaults file: %w", err)
	}

	if meta.IsDefined("feed_url") && !set["feed"] {
		opts.FeedURL = strings.TrimSpace(raw.FeedURL)
	}
	if meta.IsDefined("workspace_dir") && !set["workspace"] {
		opts.WorkspaceDir = strings.TrimSpace(raw.WorkspaceDir)
	}
	if meta.IsDefined("packages_dir") && !set["packages-dir"] {
		opts.PackagesDir = strings.TrimSpace(raw.PackagesDir)
	}
	if meta.IsDefined("packages") && !set["packages"] {
		opts.Desired = normalizePackages(raw.Packages)
	}
	if meta.IsDefined("tools_package") && !set["tools-package"] {
		opts.ToolsPackage = strings.TrimSpace(raw.ToolsPackage)
	}
	if meta.IsDefined("arch") && !set["arch"] {
		opts.Arch = strings.TrimSpace(raw.Arch)
	}
	if meta.IsDefined("publisher") && !set["publisher"] {
		opts.Publisher = strings.TrimSpace(raw.Publisher)
	}
	if meta.IsDefined("cert_path") && !set["cert"] {
		opts.CertPath = strings.TrimSpace(raw.CertPath)
	}
	if meta.IsDefined("cert_valid_days") && !set["cert-days"] {
		opts.CertValidDays = raw.CertDays
	}

	if meta.IsDefined("nuget_command") {
		host.NuGetCommand = strings.TrimSpace(raw.NuGetCommand)
	}
	if meta.IsDefined("host_query_command") {
		host.QueryCommand = strings.TrimSpace(raw.HostQueryCommand)
	}
	if meta.IsDefined("host_install_command") {
		host.InstallCommand = strings.TrimSpace(raw.HostInstallCommand)
	}
	if meta.IsDefined("host_install_target") {
		host.InstallTarget = strings.TrimSpace(raw.HostInstallTarget)
	}
	return nil
}

// normalizePackages trims entries and drops empties.
func normalizePackages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, pkg := range in {
		if v := strings.TrimSpace(pkg); v != "" {
			out = append(out, v)
		}
	}
	return out
}
