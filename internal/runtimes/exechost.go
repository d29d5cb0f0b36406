package runtimes

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/sdkctl/internal/tools"
)

// ExecHost queries and mutates host runtime state through platform tools.
type ExecHost struct {
	QueryCommand   string
	InstallCommand string
	InstallTarget  string
	Runner         tools.CommandRunner
}

// NewExecHost builds a host backed by pkgutil queries and installer applies.
func NewExecHost(runner tools.CommandRunner) *ExecHost {
	return &ExecHost{
		QueryCommand:   "pkgutil",
		InstallCommand: "installer",
		InstallTarget:  "/",
		Runner:         runner,
	}
}

// IdentityInstalled reports whether the exact package identity is registered on the host.
func (h *ExecHost) IdentityInstalled(ctx context.Context, identity string) (bool, error) {
	_, _, exit, err := h.Runner.Run(ctx, h.QueryCommand, "--pkg-info", identity)
	if err != nil {
		return false, fmt.Errorf("runtimes: query %s: %w", identity, err)
	}
	return exit == 0, nil
}

// InstalledVersion looks up the registered version for a package name.
func (h *ExecHost) InstalledVersion(ctx context.Context, name string) (string, bool, error) {
	stdout, _, exit, err := h.Runner.Run(ctx, h.QueryCommand, "--pkg-info", name)
	if err != nil {
		return "", false, fmt.Errorf("runtimes: query %s: %w", name, err)
	}
	if exit != 0 {
		return "", false, nil
	}
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "version:"); ok {
			return strings.TrimSpace(v), true, nil
		}
	}
	return "", false, nil
}

// InstallRuntime applies one runtime package file to the host root.
func (h *ExecHost) InstallRuntime(ctx context.Context, path string) error {
	stdout, stderr, exit, err := h.Runner.Run(ctx, h.InstallCommand, "-pkg", path, "-target", h.InstallTarget)
	if err != nil {
		return fmt.Errorf("runtimes: run %s -pkg %s: %w", h.InstallCommand, path, err)
	}
	if exit != 0 {
		return fmt.Errorf("runtimes: %s -pkg %s exited %d\nstdout: %s\nstderr: %s",
			h.InstallCommand, path, exit, string(stdout), string(stderr))
	}
	return nil
}
