// Package toolchain owns projection tool discovery and invocation.
//
// Ownership boundary:
// - locating the projector executable inside installed tool packages
// - collecting projection input files
// - driving one projection run
package toolchain

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/sdkctl/internal/tools"
)

// ExecutableName is the projection tool binary inside a tools package.
const ExecutableName = "projector"

// InputExtension marks projection input files.
const InputExtension = ".idl"

// Find locates the projection tool under <packagesDir>/<toolsPkg>.<version>/tools,
// trying candidate versions in order.
func Find(packagesDir, toolsPkg string, versions []string) (string, bool) {
	names := []string{ExecutableName}
	if runtime.GOOS == "windows" {
		names = []string{ExecutableName + ".exe", ExecutableName}
	}
	for _, version := range versions {
		version = strings.TrimSpace(version)
		if version == "" {
			continue
		}
		dir := filepath.Join(packagesDir, fmt.Sprintf("%s.%s", toolsPkg, version), "tools")
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			log.Debug().Str("path", candidate).Msg("projection tool located")
			return candidate, true
		}
	}
	return "", false
}

// DiscoverInputs walks a directory tree for projection input files, sorted.
func DiscoverInputs(dir string) ([]string, error) {
	var inputs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), InputExtension) {
			inputs = append(inputs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("toolchain: scan inputs under %s: %w", dir, err)
	}
	sort.Strings(inputs)
	return inputs, nil
}

// Runner drives the projection tool over input files.
type Runner struct {
	Exec tools.DirRunner
}

// NewRunner builds a projection runner over a directory-aware executor.
func NewRunner(exec tools.DirRunner) *Runner {
	return &Runner{Exec: exec}
}

// Project runs one projection pass, writing outputs under outDir.
func (r *Runner) Project(ctx context.Context, toolPath string, inputs []string, outDir, workDir string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("toolchain: no projection inputs")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("toolchain: prepare output directory: %w", err)
	}

	args := make([]string, 0, 2*len(inputs)+2)
	for _, input := range inputs {
		args = append(args, "-in", input)
	}
	args = append(args, "-out", outDir)

	log.Info().Str("tool", toolPath).Int("inputs", len(inputs)).Msg("projection started")
	stdout, stderr, exit, err := r.Exec.RunIn(ctx, workDir, toolPath, args...)
	if err != nil {
		return fmt.Errorf("toolchain: run %s: %w", toolPath, err)
	}
	if exit != 0 {
		return fmt.Errorf("toolchain: %s exited %d\nstdout: %s\nstderr: %s",
			toolPath, exit, string(stdout), string(stderr))
	}
	return nil
}
