package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/danmuck/sdkctl/internal/auxtools"
	"github.com/danmuck/sdkctl/internal/cert"
	"github.com/danmuck/sdkctl/internal/config"
	"github.com/danmuck/sdkctl/internal/layout"
	"github.com/danmuck/sdkctl/internal/manifest"
	"github.com/danmuck/sdkctl/internal/nuget"
	"github.com/danmuck/sdkctl/internal/pipeline"
	"github.com/danmuck/sdkctl/internal/resolve"
	"github.com/danmuck/sdkctl/internal/runtimes"
	"github.com/danmuck/sdkctl/internal/toolchain"
	"github.com/danmuck/sdkctl/internal/tools"
)

// defaultFeedURL is the flat-container feed consulted when no override is given.
const defaultFeedURL = "https://api.nuget.org/v3-flatcontainer"

const usageText = `usage: sdkctl <command> [flags]

commands:
  setup     provision a workspace, resolving and pinning package versions
  restore   reprovision strictly from the pinned configuration
  config    write a default pin file from feed lookups and exit

run "sdkctl <command> -h" for command flags
`

// execute dispatches one CLI invocation and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 1
	}
	command := args[0]
	switch command {
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
		return 0
	case "setup", "restore", "config":
	default:
		fmt.Fprintf(stderr, "sdkctl: unknown command %q\n%s", command, usageText)
		return 1
	}

	inv, err := parseCommand(command, args[1:], stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "sdkctl: %v\n", err)
		return 1
	}
	if inv.opts.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if inv.template {
		path := config.Path(inv.opts.Normalized().WorkspaceDir)
		if err := config.WriteTemplate(path, false); err != nil {
			fmt.Fprintf(stderr, "sdkctl: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "wrote pin file template to %s\n", path)
		return 0
	}

	orch, err := buildOrchestrator(inv.opts, inv.host, stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "sdkctl: %v\n", err)
		return 1
	}
	if _, err := orch.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "sdkctl: %v\n", err)
		return pipeline.ExitCode(err)
	}
	return 0
}

// invocation is one parsed CLI command ready to run.
type invocation struct {
	opts     pipeline.Options
	host     hostOverrides
	template bool
}

// parseCommand builds the per-command flag set, parses it, and folds in the
// optional defaults file for every key the command line left alone.
func parseCommand(command string, args []string, stderr io.Writer) (invocation, error) {
	fs := flag.NewFlagSet("sdkctl "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var inv invocation
	opts := &inv.opts
	var packagesCSV string
	defaultsPath := fs.String("defaults", "", "defaults file (default <project>/"+defaultsFileName+" when present)")
	fs.StringVar(&opts.ProjectDir, "project", ".", "project directory holding projection inputs")
	fs.StringVar(&opts.WorkspaceDir, "workspace", "", "workspace directory (default <project>/sdk)")
	fs.StringVar(&opts.PackagesDir, "packages-dir", "", "package cache directory (default <workspace>/packages)")
	fs.StringVar(&opts.FeedURL, "feed", defaultFeedURL, "package feed base url")
	fs.StringVar(&packagesCSV, "packages", "", "comma-separated package set (default the core SDK set)")
	fs.StringVar(&opts.ToolsPackage, "tools-package", "", "package carrying the projection tool")
	fs.StringVar(&opts.Arch, "arch", "", "architecture tag (default detected from the host)")
	fs.BoolVar(&opts.AssumeYes, "yes", false, "assume yes on every prompt")
	fs.BoolVar(&opts.Verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&opts.Experimental, "experimental", false, "allow prerelease package channels")

	if command == "config" {
		fs.BoolVar(&inv.template, "template", false, "write the starter pin file instead of resolving the feed")
	}
	if command == "setup" {
		fs.BoolVar(&opts.UseLatest, "latest", false, "discard pinned versions and resolve latest")
		fs.BoolVar(&opts.SkipCert, "skip-cert", false, "skip certificate provisioning")
		fs.BoolVar(&opts.SkipGitignore, "skip-gitignore", false, "skip the certificate gitignore entry")
		fs.BoolVar(&opts.TrustCert, "trust-cert", false, "install the certificate into the host trust store")
		fs.StringVar(&opts.CertPath, "cert", "", "certificate output path (default <workspace>/dev.cert.pfx)")
		fs.StringVar(&opts.CertPassword, "cert-password", "", "certificate export password")
		fs.IntVar(&opts.CertValidDays, "cert-days", 0, "certificate validity in days (default 365)")
		fs.StringVar(&opts.Publisher, "publisher", "", "certificate publisher name")
		fs.StringVar(&opts.ManifestPath, "publisher-manifest", "", "manifest file to read the publisher from")
	}

	if err := fs.Parse(args); err != nil {
		return invocation{}, err
	}
	if fs.NArg() > 0 {
		return invocation{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	switch command {
	case "restore":
		opts.Mode = pipeline.ModeRestore
	default:
		opts.Mode = pipeline.ModeSetup
	}
	opts.ConfigOnly = command == "config"
	opts.Desired = splitPackages(packagesCSV)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	path := strings.TrimSpace(*defaultsPath)
	if path == "" {
		candidate := filepath.Join(opts.ProjectDir, defaultsFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		if err := applyDefaultsFile(path, set, opts, &inv.host); err != nil {
			return invocation{}, err
		}
	}
	return inv, nil
}

// buildOrchestrator wires the exec-backed collaborators for a live run.
func buildOrchestrator(opts pipeline.Options, host hostOverrides, stdin io.Reader, stdout io.Writer) (*pipeline.Orchestrator, error) {
	opts = opts.Normalized()

	runner := tools.ExecRunner{}
	client, err := nuget.NewClient(opts.FeedURL)
	if err != nil {
		return nil, err
	}

	pins := map[string]string{}
	if ws, err := config.Load(opts.WorkspaceDir); err == nil {
		pins = ws.Pinned()
	}
	installer := nuget.NewExecInstaller(opts.FeedURL, pins, runner)
	if host.NuGetCommand != "" {
		installer.Command = host.NuGetCommand
	}

	hostState := runtimes.NewExecHost(runner)
	if host.QueryCommand != "" {
		hostState.QueryCommand = host.QueryCommand
	}
	if host.InstallCommand != "" {
		hostState.InstallCommand = host.InstallCommand
	}
	if host.InstallTarget != "" {
		hostState.InstallTarget = host.InstallTarget
	}

	collab := pipeline.Collaborators{
		Resolver:    resolve.NewResolver(client),
		Installer:   installer,
		Stager:      layout.NewStager(opts.PackagesDir, opts.WorkspaceDir, opts.Arch),
		Projector:   toolchain.NewRunner(runner),
		AuxTools:    auxtools.NewProvisioner(opts.PackagesDir, runner, installer),
		DevMode:     pipeline.NewExecDevMode(runner),
		Runtimes:    runtimes.NewInstaller(filepath.Join(opts.WorkspaceDir, layout.RuntimesDir), hostState, hostState),
		GenManifest: manifest.Generate,
		Certs: cert.NewProvisioner(
			cert.NewOpenSSLGenerator(runner),
			cert.NewExecTrustStore(runner),
			func() (string, error) { return discoverPublisher(opts.ProjectDir) },
		),
	}
	return pipeline.New(opts, collab, stdout, pipeline.IOPrompter{In: stdin, Out: stdout})
}

// discoverPublisher reads the publisher from a project-discovered manifest.
func discoverPublisher(projectDir string) (string, error) {
	path, found := manifest.Discover(projectDir)
	if !found {
		return "", nil
	}
	return manifest.PublisherOf(path)
}

// splitPackages parses a comma-separated package list, dropping empties.
func splitPackages(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
