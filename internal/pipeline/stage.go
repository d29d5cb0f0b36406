package pipeline

// Stage names one step of the provisioning state machine.
type Stage string

const (
	StageConfigResolution   Stage = "config-resolution"
	StageDirectoryInit      Stage = "directory-init"
	StageVersionConvergence Stage = "version-convergence"
	StagePackageInstall     Stage = "package-install"
	StageToolchainDiscovery Stage = "toolchain-discovery"
	StageLayout             Stage = "layout"
	StageProjection         Stage = "projection"
	StageAuxTools           Stage = "aux-tools"
	StageDevMode            Stage = "dev-mode"
	StageRuntimeInstall     Stage = "runtime-install"
	StageManifest           Stage = "manifest"
	StagePersistence        Stage = "persistence"
	StageCertificate        Stage = "certificate"
)

// StageStatus tags how a stage ended.
type StageStatus string

const (
	StatusOK      StageStatus = "ok"
	StatusSkipped StageStatus = "skipped"
	StatusFailed  StageStatus = "failed"
)

// StageResult is the tagged outcome of one stage; Fatal marks the results
// that abort the remainder of the run.
type StageResult struct {
	Stage  Stage
	Status StageStatus
	Reason string
	Err    error
	Fatal  bool
}

// ok builds a success result.
func ok(stage Stage) StageResult {
	return StageResult{Stage: stage, Status: StatusOK}
}

// skipped builds a non-fatal skip with its reason.
func skipped(stage Stage, reason string) StageResult {
	return StageResult{Stage: stage, Status: StatusSkipped, Reason: reason}
}

// failed builds a failure result; fatal failures abort the run.
func failed(stage Stage, reason string, err error, fatal bool) StageResult {
	return StageResult{Stage: stage, Status: StatusFailed, Reason: reason, Err: err, Fatal: fatal}
}
