package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/sdkctl/internal/tools"
)

// DevModeChecker probes and enables host developer mode.
type DevModeChecker interface {
	Status(ctx context.Context) (bool, error)
	Enable(ctx context.Context) error
}

// ExecDevMode drives the host developer-mode tool.
type ExecDevMode struct {
	Command string
	Runner  tools.CommandRunner
}

// NewExecDevMode builds the default DevToolsSecurity-backed checker.
func NewExecDevMode(runner tools.CommandRunner) *ExecDevMode {
	return &ExecDevMode{Command: "DevToolsSecurity", Runner: runner}
}

// Status reports whether developer mode is already enabled.
func (d *ExecDevMode) Status(ctx context.Context) (bool, error) {
	stdout, _, exit, err := d.Runner.Run(ctx, d.Command, "-status")
	if err != nil {
		return false, fmt.Errorf("pipeline: dev-mode status: %w", err)
	}
	if exit != 0 {
		return false, nil
	}
	return strings.Contains(strings.ToLower(string(stdout)), "enabled"), nil
}

// Enable turns developer mode on.
func (d *ExecDevMode) Enable(ctx context.Context) error {
	stdout, stderr, exit, err := d.Runner.Run(ctx, d.Command, "-enable")
	if err != nil {
		return fmt.Errorf("pipeline: dev-mode enable: %w", err)
	}
	if exit != 0 {
		return fmt.Errorf("pipeline: %s -enable exited %d\nstdout: %s\nstderr: %s",
			d.Command, exit, string(stdout), string(stderr))
	}
	return nil
}
