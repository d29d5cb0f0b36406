package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danmuck/sdkctl/internal/runtimes"
)

var ErrInvalidOptions = errors.New("pipeline: invalid options")

// Mode selects the provisioning flavor of one run.
type Mode string

const (
	ModeSetup   Mode = "setup"
	ModeRestore Mode = "restore"
)

// ToolsPackageDefault is the package expected to carry the projection tool.
const ToolsPackageDefault = "SDK.Tools.Projector"

// DefaultDesiredPackages returns the package set a fresh workspace wants.
func DefaultDesiredPackages() []string {
	return []string{
		"SDK.Core.Headers",
		"SDK.Core.Libs",
		"SDK.Tools.Projector",
		"SDK.Runtime.Bundles",
	}
}

// Options is the immutable parameter set for one orchestrator run.
type Options struct {
	Mode         Mode
	WorkspaceDir string
	ProjectDir   string
	PackagesDir  string
	FeedURL      string
	Desired      []string
	ToolsPackage string
	Arch         string

	AssumeYes    bool
	Verbose      bool
	Experimental bool
	UseLatest    bool
	ConfigOnly   bool

	SkipCert      bool
	SkipGitignore bool
	TrustCert     bool
	CertPath      string
	CertPassword  string
	CertValidDays int
	Publisher     string
	ManifestPath  string
}

// Normalized fills defaults and trims path inputs.
func (o Options) Normalized() Options {
	o.WorkspaceDir = strings.TrimSpace(o.WorkspaceDir)
	o.ProjectDir = strings.TrimSpace(o.ProjectDir)
	o.PackagesDir = strings.TrimSpace(o.PackagesDir)
	o.FeedURL = strings.TrimSpace(o.FeedURL)
	o.ToolsPackage = strings.TrimSpace(o.ToolsPackage)
	o.CertPath = strings.TrimSpace(o.CertPath)

	if o.Mode == "" {
		o.Mode = ModeSetup
	}
	if o.ProjectDir == "" {
		o.ProjectDir = "."
	}
	if o.WorkspaceDir == "" {
		o.WorkspaceDir = filepath.Join(o.ProjectDir, "sdk")
	}
	if o.PackagesDir == "" {
		o.PackagesDir = filepath.Join(o.WorkspaceDir, "packages")
	}
	if len(o.Desired) == 0 {
		o.Desired = DefaultDesiredPackages()
	}
	if o.ToolsPackage == "" {
		o.ToolsPackage = ToolsPackageDefault
	}
	if o.Arch == "" {
		o.Arch = runtimes.HostArch()
	}
	if o.CertPath == "" {
		o.CertPath = filepath.Join(o.WorkspaceDir, "dev.cert.pfx")
	}
	if o.CertValidDays <= 0 {
		o.CertValidDays = 365
	}
	return o
}

// Validate enforces the fields a run cannot proceed without.
func (o Options) Validate() error {
	switch o.Mode {
	case ModeSetup, ModeRestore:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, o.Mode)
	}
	if strings.TrimSpace(o.WorkspaceDir) == "" {
		return fmt.Errorf("%w: workspace directory required", ErrInvalidOptions)
	}
	if strings.TrimSpace(o.ProjectDir) == "" {
		return fmt.Errorf("%w: project directory required", ErrInvalidOptions)
	}
	if o.Mode == ModeRestore && o.ConfigOnly {
		return fmt.Errorf("%w: config-only applies to setup runs", ErrInvalidOptions)
	}
	return nil
}
