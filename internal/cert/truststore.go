package cert

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/sdkctl/internal/tools"
)

// ExecTrustStore drives a configurable host trust command pair.
type ExecTrustStore struct {
	ProbeCommand   string
	ProbeArgs      []string
	InstallCommand string
	InstallArgs    []string
	Runner         tools.CommandRunner
}

// NewExecTrustStore builds a trust store backed by the macOS security tool.
func NewExecTrustStore(runner tools.CommandRunner) *ExecTrustStore {
	return &ExecTrustStore{
		ProbeCommand:   "security",
		ProbeArgs:      []string{"verify-cert", "-c"},
		InstallCommand: "security",
		InstallArgs:    []string{"add-trusted-cert", "-r", "trustRoot"},
		Runner:         runner,
	}
}

// Install adds the certificate to the trust store unless it already
// verifies, reporting false for the already-trusted no-op.
func (s *ExecTrustStore) Install(ctx context.Context, certPath, password string, force bool) (bool, error) {
	if !force {
		args := append(append([]string{}, s.ProbeArgs...), certPath)
		_, _, exit, err := s.Runner.Run(ctx, s.ProbeCommand, args...)
		if err != nil {
			return false, fmt.Errorf("cert: trust probe %s: %w", certPath, err)
		}
		if exit == 0 {
			return false, nil
		}
	}

	args := append(append([]string{}, s.InstallArgs...), certPath)
	stdout, stderr, exit, err := s.Runner.Run(ctx, s.InstallCommand, args...)
	if err != nil {
		return false, fmt.Errorf("cert: run %s %s: %w", s.InstallCommand, strings.Join(args, " "), err)
	}
	if exit != 0 {
		return false, fmt.Errorf("cert: %s %s exited %d\nstdout: %s\nstderr: %s",
			s.InstallCommand, strings.Join(args, " "), exit, string(stdout), string(stderr))
	}
	return true, nil
}
