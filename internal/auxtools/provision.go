package auxtools

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/sdkctl/internal/nuget"
	"github.com/danmuck/sdkctl/internal/tools"
)

// ToolStatus records the outcome for one catalog entry.
type ToolStatus string

const (
	StatusPresent   ToolStatus = "present"
	StatusInstalled ToolStatus = "installed"
	StatusFailed    ToolStatus = "failed"
)

// ToolResult pairs a catalog entry with its provisioning outcome.
type ToolResult struct {
	ID     string
	Status ToolStatus
	Err    error
}

// Provisioner probes catalog tools and installs the missing ones.
type Provisioner struct {
	PackagesDir string
	Runner      tools.CommandRunner
	Installer   nuget.PackageInstaller
}

// NewProvisioner builds a best-effort auxiliary tool provisioner.
func NewProvisioner(packagesDir string, runner tools.CommandRunner, installer nuget.PackageInstaller) *Provisioner {
	return &Provisioner{PackagesDir: packagesDir, Runner: runner, Installer: installer}
}

// ProvisionAll walks the catalog, probing each tool and installing absent
// ones through the package installer. Failures never abort the batch.
func (p *Provisioner) ProvisionAll(ctx context.Context, catalog []Tool) []ToolResult {
	results := make([]ToolResult, 0, len(catalog))
	for _, tool := range catalog {
		if ctx.Err() != nil {
			break
		}
		results = append(results, p.provisionOne(ctx, tool))
	}
	return results
}

// provisionOne probes one tool and provisions it when absent.
func (p *Provisioner) provisionOne(ctx context.Context, tool Tool) ToolResult {
	if len(tool.Probe) > 0 {
		_, _, exit, err := p.Runner.Run(ctx, tool.Probe[0], tool.Probe[1:]...)
		if err == nil && exit == 0 {
			log.Debug().Str("tool", tool.ID).Msg("auxiliary tool present")
			return ToolResult{ID: tool.ID, Status: StatusPresent}
		}
	}

	if tool.Package == "" || p.Installer == nil {
		log.Warn().Str("tool", tool.ID).Msg("auxiliary tool absent and no package to install")
		return ToolResult{ID: tool.ID, Status: StatusFailed}
	}
	if _, err := p.Installer.InstallPackages(ctx, p.PackagesDir, []string{tool.Package}, false, false); err != nil {
		log.Warn().Str("tool", tool.ID).Err(err).Msg("auxiliary tool install failed")
		return ToolResult{ID: tool.ID, Status: StatusFailed, Err: err}
	}
	log.Info().Str("tool", tool.ID).Str("package", tool.Package).Msg("auxiliary tool installed")
	return ToolResult{ID: tool.ID, Status: StatusInstalled}
}
