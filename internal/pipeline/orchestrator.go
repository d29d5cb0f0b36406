package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/sdkctl/internal/auxtools"
	"github.com/danmuck/sdkctl/internal/cert"
	"github.com/danmuck/sdkctl/internal/config"
	"github.com/danmuck/sdkctl/internal/manifest"
	"github.com/danmuck/sdkctl/internal/nuget"
	"github.com/danmuck/sdkctl/internal/runtimes"
	"github.com/danmuck/sdkctl/internal/toolchain"
)

var (
	ErrCancelled          = errors.New("pipeline: operation cancelled")
	ErrConfigRequired     = errors.New("pipeline: workspace config required")
	ErrConfigExists       = errors.New("pipeline: config already present")
	ErrToolchainNotFound  = errors.New("pipeline: toolchain not found")
	ErrNoProjectionInputs = errors.New("pipeline: no projection inputs")
)

// GeneratedDir receives projection outputs inside the workspace.
const GeneratedDir = "generated"

// ExitCode maps a run error onto the CLI exit surface.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrToolchainNotFound), errors.Is(err, ErrNoProjectionInputs):
		return 2
	default:
		return 1
	}
}

// VersionResolver decides target versions for the desired package set.
type VersionResolver interface {
	Resolve(ctx context.Context, desired []string, pinned map[string]string, includePrerelease, preferPinned bool) map[string]string
}

// WorkspaceStager materializes the workspace tree from installed packages.
type WorkspaceStager interface {
	InitWorkspace() error
	CopyIncludes() error
	CopyLibs() error
	CopyBinaries() error
	CopyRuntimes() error
	CopyLicenses() error
}

// ToolFinder locates the projection tool among installed package versions.
type ToolFinder func(packagesDir, toolsPkg string, versions []string) (string, bool)

// InputLister collects projection input files under a directory.
type InputLister func(dir string) ([]string, error)

// Projector runs the projection tool over input files.
type Projector interface {
	Project(ctx context.Context, toolPath string, inputs []string, outDir, workDir string) error
}

// AuxProvisioner converges the auxiliary tool catalog, best-effort.
type AuxProvisioner interface {
	ProvisionAll(ctx context.Context, catalog []auxtools.Tool) []auxtools.ToolResult
}

// RuntimeConverger converges host runtime packages for one architecture.
type RuntimeConverger interface {
	InstallAll(ctx context.Context, arch string) ([]runtimes.EntryResult, error)
}

// ManifestGenerator writes a fresh application descriptor.
type ManifestGenerator func(dir string, opts manifest.GenerateOptions) (string, error)

// CertProvisioner provisions the development signing certificate.
type CertProvisioner interface {
	Provision(ctx context.Context, req cert.Request) (cert.Record, error)
}

// Collaborators bundles the external surfaces one run drives.
type Collaborators struct {
	Resolver    VersionResolver
	Installer   nuget.PackageInstaller
	Stager      WorkspaceStager
	FindTool    ToolFinder
	ListInputs  InputLister
	Projector   Projector
	LoadTools   func(path string) ([]auxtools.Tool, error)
	AuxTools    AuxProvisioner
	DevMode     DevModeChecker
	Runtimes    RuntimeConverger
	GenManifest ManifestGenerator
	Certs       CertProvisioner
}

// Orchestrator drives the provisioning stage machine for one workspace.
type Orchestrator struct {
	opts     Options
	collab   Collaborators
	out      io.Writer
	prompter Prompter
}

// New validates options, fills collaborator defaults, and builds an orchestrator.
func New(opts Options, collab Collaborators, out io.Writer, prompter Prompter) (*Orchestrator, error) {
	opts = opts.Normalized()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if collab.Resolver == nil {
		return nil, fmt.Errorf("%w: resolver required", ErrInvalidOptions)
	}
	if collab.Installer == nil {
		return nil, fmt.Errorf("%w: package installer required", ErrInvalidOptions)
	}
	if collab.Stager == nil {
		return nil, fmt.Errorf("%w: workspace stager required", ErrInvalidOptions)
	}
	if collab.Projector == nil {
		return nil, fmt.Errorf("%w: projector required", ErrInvalidOptions)
	}
	if collab.FindTool == nil {
		collab.FindTool = toolchain.Find
	}
	if collab.ListInputs == nil {
		collab.ListInputs = toolchain.DiscoverInputs
	}
	if collab.LoadTools == nil {
		collab.LoadTools = auxtools.LoadCatalog
	}
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{opts: opts, collab: collab, out: out, prompter: prompter}, nil
}

// RunReport is the caller-visible record of one run.
type RunReport struct {
	RunID    string
	Mode     Mode
	Stages   []StageResult
	Packages map[string]string
}

// runState carries the artifacts stages hand to each other.
type runState struct {
	pins         map[string]string
	preferPinned bool
	plan         map[string]string
	merged       map[string]string
	toolPath     string
}

// Run executes the stage machine and reports the outcome.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{RunID: uuid.NewString(), Mode: o.opts.Mode}
	logger := log.With().Str("run_id", report.RunID).Str("mode", string(o.opts.Mode)).Logger()
	logger.Info().Str("workspace", o.opts.WorkspaceDir).Msg("provisioning run started")

	st := &runState{}
	err := o.drive(ctx, report, st)
	report.Packages = st.merged
	if err != nil {
		logger.Error().Err(err).Msg("provisioning run failed")
		return report, err
	}
	logger.Info().Msg("provisioning run complete")
	return report, nil
}

// drive walks the stage order, honoring mode splits and cancellation.
func (o *Orchestrator) drive(ctx context.Context, report *RunReport, st *runState) error {
	if err := o.checkCancelled(ctx); err != nil {
		return err
	}
	res, terminate := o.resolveConfig(ctx, st)
	if err := o.record(report, res); err != nil {
		return err
	}
	if terminate {
		return nil
	}

	type step struct {
		setupOnly bool
		fn        func(context.Context, *runState) StageResult
	}
	steps := []step{
		{false, o.initDirs},
		{false, o.convergeVersions},
		{false, o.installPackages},
		{false, o.discoverToolchain},
		{false, o.materializeLayout},
		{false, o.project},
		{false, o.provisionAuxTools},
		{true, o.ensureDevMode},
		{true, o.installRuntimes},
		{true, o.generateManifest},
		{true, o.persist},
		{true, o.provisionCertificate},
	}
	for _, s := range steps {
		if err := o.checkCancelled(ctx); err != nil {
			return err
		}
		if s.setupOnly && o.opts.Mode != ModeSetup {
			continue
		}
		if err := o.record(report, s.fn(ctx, st)); err != nil {
			return err
		}
	}
	return nil
}

// record appends a stage outcome, emits progress, and stops the run on fatal results.
func (o *Orchestrator) record(report *RunReport, res StageResult) error {
	report.Stages = append(report.Stages, res)
	switch res.Status {
	case StatusOK:
		if res.Reason != "" {
			fmt.Fprintf(o.out, "[ok]   %s (%s)\n", res.Stage, res.Reason)
		} else {
			fmt.Fprintf(o.out, "[ok]   %s\n", res.Stage)
		}
	case StatusSkipped:
		fmt.Fprintf(o.out, "[skip] %s: %s\n", res.Stage, res.Reason)
	case StatusFailed:
		fmt.Fprintf(o.out, "[fail] %s: %s\n", res.Stage, res.Reason)
	}

	if res.Status != StatusFailed {
		return nil
	}
	if !res.Fatal {
		log.Warn().Str("stage", string(res.Stage)).Err(res.Err).Msg("stage failed, continuing")
		return nil
	}
	if res.Err != nil {
		if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrCancelled, res.Err)
		}
		return res.Err
	}
	return fmt.Errorf("pipeline: stage %s failed: %s", res.Stage, res.Reason)
}

// checkCancelled folds context state into the distinct cancellation outcome.
func (o *Orchestrator) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}

// resolveConfig loads pins, applies the latest-versus-pinned policy, and
// handles the config-only short circuit. The bool result terminates the run
// without error when nothing further should happen.
func (o *Orchestrator) resolveConfig(ctx context.Context, st *runState) (StageResult, bool) {
	st.preferPinned = true

	ws, err := config.Load(o.opts.WorkspaceDir)
	switch {
	case err == nil:
		st.pins = ws.Pinned()
	case errors.Is(err, config.ErrNotFound):
		if o.opts.Mode == ModeRestore {
			wrapped := fmt.Errorf("%w: %s", ErrConfigRequired, config.Path(o.opts.WorkspaceDir))
			return failed(StageConfigResolution, "no pinned configuration to restore", wrapped, true), false
		}
		st.pins = map[string]string{}
	default:
		return failed(StageConfigResolution, "configuration unreadable", err, true), false
	}

	if o.opts.ConfigOnly {
		return o.generateDefaultConfig(ctx, st), true
	}

	if o.opts.Mode == ModeRestore && len(st.pins) == 0 {
		return StageResult{
			Stage:  StageConfigResolution,
			Status: StatusOK,
			Reason: "no packages pinned; nothing to restore",
		}, true
	}

	if o.opts.Mode == ModeSetup && o.opts.UseLatest {
		switch {
		case len(st.pins) == 0:
			st.preferPinned = false
		case o.opts.AssumeYes:
			st.preferPinned = false
		case o.prompter != nil:
			yes, err := o.prompter.Confirm("Discard pinned versions and resolve latest?")
			if err != nil {
				log.Warn().Err(err).Msg("prompt failed, keeping pinned versions")
			}
			st.preferPinned = !yes
		}
	}

	reason := fmt.Sprintf("%d pinned packages", len(st.pins))
	if !st.preferPinned {
		reason += ", resolving latest"
	}
	return StageResult{Stage: StageConfigResolution, Status: StatusOK, Reason: reason}, false
}

// generateDefaultConfig writes a fresh pin file from feed lookups and stops the run.
func (o *Orchestrator) generateDefaultConfig(ctx context.Context, st *runState) StageResult {
	if len(st.pins) > 0 {
		wrapped := fmt.Errorf("%w: %s", ErrConfigExists, config.Path(o.opts.WorkspaceDir))
		return failed(StageConfigResolution, "config already present", wrapped, true)
	}

	plan := o.collab.Resolver.Resolve(ctx, o.opts.Desired, nil, o.opts.Experimental, false)
	ws := &config.Workspace{Packages: plan}
	if err := config.Save(o.opts.WorkspaceDir, ws); err != nil {
		return failed(StageConfigResolution, "default config write failed", err, true)
	}
	return StageResult{
		Stage:  StageConfigResolution,
		Status: StatusOK,
		Reason: fmt.Sprintf("default config written with %d of %d packages", len(plan), len(o.opts.Desired)),
	}
}

// initDirs creates the workspace skeleton.
func (o *Orchestrator) initDirs(ctx context.Context, st *runState) StageResult {
	if err := o.collab.Stager.InitWorkspace(); err != nil {
		return failed(StageDirectoryInit, "workspace initialization failed", err, true)
	}
	return ok(StageDirectoryInit)
}

// convergeVersions produces the package install plan for this run.
func (o *Orchestrator) convergeVersions(ctx context.Context, st *runState) StageResult {
	desired := o.opts.Desired
	if o.opts.Mode == ModeRestore {
		desired = sortedKeys(st.pins)
	}
	st.plan = o.collab.Resolver.Resolve(ctx, desired, st.pins, o.opts.Experimental, st.preferPinned)
	return StageResult{
		Stage:  StageVersionConvergence,
		Status: StatusOK,
		Reason: fmt.Sprintf("%d of %d packages resolved", len(st.plan), len(desired)),
	}
}

// installPackages materializes the plan and merges on-disk reality back in.
func (o *Orchestrator) installPackages(ctx context.Context, st *runState) StageResult {
	st.merged = copyVersions(st.plan)
	names := sortedKeys(st.plan)
	if len(names) == 0 {
		return skipped(StagePackageInstall, "no packages to install")
	}

	installed, err := o.collab.Installer.InstallPackages(ctx, o.opts.PackagesDir, names,
		o.opts.Experimental, !st.preferPinned)
	for name, version := range installed {
		st.merged[name] = version
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return failed(StagePackageInstall, "install interrupted", err, true)
		}
		if len(installed) == 0 {
			return failed(StagePackageInstall, "no packages installed", err, true)
		}
		return failed(StagePackageInstall,
			fmt.Sprintf("%d of %d packages installed", len(installed), len(names)), err, false)
	}
	return StageResult{
		Stage:  StagePackageInstall,
		Status: StatusOK,
		Reason: fmt.Sprintf("%d packages installed", len(installed)),
	}
}

// discoverToolchain locates the projection tool among installed versions.
func (o *Orchestrator) discoverToolchain(ctx context.Context, st *runState) StageResult {
	var candidates []string
	if v := strings.TrimSpace(st.merged[o.opts.ToolsPackage]); v != "" {
		candidates = append(candidates, v)
	}
	if onDisk, err := nuget.InstalledVersions(o.opts.PackagesDir, []string{o.opts.ToolsPackage}); err == nil {
		if v := onDisk[o.opts.ToolsPackage]; v != "" && (len(candidates) == 0 || candidates[0] != v) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		wrapped := fmt.Errorf("%w: %s is not installed", ErrToolchainNotFound, o.opts.ToolsPackage)
		return failed(StageToolchainDiscovery, "tools package missing", wrapped, true)
	}

	toolPath, found := o.collab.FindTool(o.opts.PackagesDir, o.opts.ToolsPackage, candidates)
	if !found {
		wrapped := fmt.Errorf("%w: no %s executable under %s", ErrToolchainNotFound,
			toolchain.ExecutableName, o.opts.PackagesDir)
		return failed(StageToolchainDiscovery, "projector executable missing", wrapped, true)
	}
	st.toolPath = toolPath
	return StageResult{Stage: StageToolchainDiscovery, Status: StatusOK, Reason: toolPath}
}

// materializeLayout stages package payloads into the workspace tree.
func (o *Orchestrator) materializeLayout(ctx context.Context, st *runState) StageResult {
	core := []struct {
		name string
		fn   func() error
	}{
		{"includes", o.collab.Stager.CopyIncludes},
		{"libs", o.collab.Stager.CopyLibs},
		{"binaries", o.collab.Stager.CopyBinaries},
	}
	for _, c := range core {
		if err := c.fn(); err != nil {
			return failed(StageLayout, c.name+" staging failed", err, true)
		}
	}

	var notes []string
	if err := o.collab.Stager.CopyRuntimes(); err != nil {
		log.Warn().Err(err).Msg("runtime staging failed")
		notes = append(notes, "runtimes not staged")
	}
	if err := o.collab.Stager.CopyLicenses(); err != nil {
		log.Warn().Err(err).Msg("license staging failed")
		notes = append(notes, "licenses not staged")
	}
	if len(notes) > 0 {
		return failed(StageLayout, strings.Join(notes, "; "), nil, false)
	}
	return ok(StageLayout)
}

// project discovers inputs and runs the projection tool over them.
func (o *Orchestrator) project(ctx context.Context, st *runState) StageResult {
	inputs, err := o.collab.ListInputs(o.opts.ProjectDir)
	if err != nil {
		return failed(StageProjection, "input discovery failed", err, true)
	}
	if len(inputs) == 0 {
		wrapped := fmt.Errorf("%w: no %s files under %s", ErrNoProjectionInputs,
			toolchain.InputExtension, o.opts.ProjectDir)
		return failed(StageProjection, "no projection inputs", wrapped, true)
	}

	outDir := filepath.Join(o.opts.WorkspaceDir, GeneratedDir)
	if err := o.collab.Projector.Project(ctx, st.toolPath, inputs, outDir, o.opts.ProjectDir); err != nil {
		return failed(StageProjection, "projection failed", err, true)
	}
	return StageResult{
		Stage:  StageProjection,
		Status: StatusOK,
		Reason: fmt.Sprintf("%d inputs projected", len(inputs)),
	}
}

// provisionAuxTools converges the optional tool catalog, best-effort.
func (o *Orchestrator) provisionAuxTools(ctx context.Context, st *runState) StageResult {
	if o.collab.AuxTools == nil {
		return skipped(StageAuxTools, "no auxiliary tool provisioner")
	}
	catalog, err := o.collab.LoadTools(filepath.Join(o.opts.ProjectDir, auxtools.CatalogFileName))
	if err != nil {
		return failed(StageAuxTools, "catalog unreadable", err, false)
	}
	if len(catalog) == 0 {
		return skipped(StageAuxTools, "no tool catalog")
	}

	results := o.collab.AuxTools.ProvisionAll(ctx, catalog)
	failures := 0
	for _, r := range results {
		if r.Status == auxtools.StatusFailed {
			failures++
		}
	}
	if failures > 0 {
		return failed(StageAuxTools,
			fmt.Sprintf("%d of %d tools failed", failures, len(results)), nil, false)
	}
	return StageResult{
		Stage:  StageAuxTools,
		Status: StatusOK,
		Reason: fmt.Sprintf("%d tools converged", len(results)),
	}
}

// ensureDevMode checks and, when needed, enables host developer mode.
func (o *Orchestrator) ensureDevMode(ctx context.Context, st *runState) StageResult {
	if o.collab.DevMode == nil {
		return skipped(StageDevMode, "no dev-mode checker")
	}
	enabled, err := o.collab.DevMode.Status(ctx)
	if err != nil {
		return failed(StageDevMode, "status check failed", err, false)
	}
	if enabled {
		return StageResult{Stage: StageDevMode, Status: StatusOK, Reason: "already enabled"}
	}
	if err := o.collab.DevMode.Enable(ctx); err != nil {
		return failed(StageDevMode, "enable failed", err, false)
	}
	return StageResult{Stage: StageDevMode, Status: StatusOK, Reason: "enabled"}
}

// installRuntimes converges host runtime packages from the staged inventory.
func (o *Orchestrator) installRuntimes(ctx context.Context, st *runState) StageResult {
	if o.collab.Runtimes == nil {
		return skipped(StageRuntimeInstall, "no runtime installer")
	}
	results, err := o.collab.Runtimes.InstallAll(ctx, o.opts.Arch)
	if err != nil {
		return failed(StageRuntimeInstall, "runtime convergence interrupted", err, true)
	}

	installed, failures := 0, 0
	for _, r := range results {
		switch r.Action {
		case runtimes.ActionInstalled:
			installed++
		case runtimes.ActionFailed:
			failures++
		}
	}
	if failures > 0 {
		return failed(StageRuntimeInstall,
			fmt.Sprintf("%d installed, %d failed of %d entries", installed, failures, len(results)), nil, false)
	}
	return StageResult{
		Stage:  StageRuntimeInstall,
		Status: StatusOK,
		Reason: fmt.Sprintf("%d installed of %d entries", installed, len(results)),
	}
}

// generateManifest writes a descriptor when the project has none.
func (o *Orchestrator) generateManifest(ctx context.Context, st *runState) StageResult {
	if o.collab.GenManifest == nil {
		return skipped(StageManifest, "no manifest generator")
	}
	if _, found := manifest.Discover(o.opts.ProjectDir); found {
		return skipped(StageManifest, "manifest present")
	}

	path, err := o.collab.GenManifest(o.opts.ProjectDir, manifest.GenerateOptions{
		Publisher: strings.TrimSpace(o.opts.Publisher),
	})
	if err != nil {
		if errors.Is(err, manifest.ErrManifestExists) {
			return skipped(StageManifest, "manifest present")
		}
		return failed(StageManifest, "manifest generation failed", err, false)
	}
	return StageResult{Stage: StageManifest, Status: StatusOK, Reason: path}
}

// persist writes the converged versions, filtered to the desired set.
func (o *Orchestrator) persist(ctx context.Context, st *runState) StageResult {
	pins := make(map[string]string, len(o.opts.Desired))
	for _, name := range o.opts.Desired {
		if version, found := lookupVersion(st.merged, name); found {
			pins[name] = version
		}
	}
	if err := config.Save(o.opts.WorkspaceDir, &config.Workspace{Packages: pins}); err != nil {
		return failed(StagePersistence, "config write failed", err, true)
	}
	return StageResult{
		Stage:  StagePersistence,
		Status: StatusOK,
		Reason: fmt.Sprintf("%d packages pinned", len(pins)),
	}
}

// provisionCertificate ends a setup run with the signing certificate.
func (o *Orchestrator) provisionCertificate(ctx context.Context, st *runState) StageResult {
	if o.opts.SkipCert {
		return skipped(StageCertificate, "suppressed")
	}
	if o.collab.Certs == nil {
		return skipped(StageCertificate, "no certificate provisioner")
	}

	record, err := o.collab.Certs.Provision(ctx, cert.Request{
		OutputPath:      o.opts.CertPath,
		Publisher:       o.opts.Publisher,
		ManifestPath:    o.opts.ManifestPath,
		Password:        o.opts.CertPassword,
		ValidDays:       o.opts.CertValidDays,
		SkipIfExists:    true,
		UpdateGitignore: !o.opts.SkipGitignore,
		Install:         o.opts.TrustCert,
		ProjectDir:      o.opts.ProjectDir,
	})
	if err != nil {
		if errors.Is(err, cert.ErrCertExists) {
			return skipped(StageCertificate, "certificate already exists")
		}
		return failed(StageCertificate, "provisioning failed", err, true)
	}
	return StageResult{Stage: StageCertificate, Status: StatusOK, Reason: record.Subject}
}

// sortedKeys returns map keys in stable order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// copyVersions clones a name-to-version map.
func copyVersions(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// lookupVersion reads a version case-insensitively on package name.
func lookupVersion(m map[string]string, name string) (string, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
