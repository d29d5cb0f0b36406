package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrSandboxViolation = errors.New("layout: sandbox violation")

// Workspace subtree names.
const (
	IncludeDir  = "include"
	LibDir      = "lib"
	BinDir      = "bin"
	RuntimesDir = "runtimes"
	LicensesDir = "licenses"
)

// Stager copies package payload subtrees into the workspace layout.
type Stager struct {
	PackagesDir  string
	WorkspaceDir string
	Arch         string
}

// NewStager builds a stager for one packages directory and workspace root.
func NewStager(packagesDir, workspaceDir, arch string) *Stager {
	return &Stager{PackagesDir: packagesDir, WorkspaceDir: workspaceDir, Arch: arch}
}

// InitWorkspace creates the workspace skeleton directories.
func (s *Stager) InitWorkspace() error {
	dirs := []string{
		s.WorkspaceDir,
		filepath.Join(s.WorkspaceDir, IncludeDir),
		filepath.Join(s.WorkspaceDir, LibDir),
		filepath.Join(s.WorkspaceDir, BinDir),
		filepath.Join(s.WorkspaceDir, RuntimesDir, s.Arch),
		filepath.Join(s.WorkspaceDir, LicensesDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("layout: init %s: %w", dir, err)
		}
	}
	return nil
}

// CopyIncludes stages every package's include/ subtree into the workspace.
func (s *Stager) CopyIncludes() error {
	return s.copySubtrees(IncludeDir, filepath.Join(s.WorkspaceDir, IncludeDir))
}

// CopyLibs stages every package's lib/<arch>/ subtree into the workspace.
func (s *Stager) CopyLibs() error {
	return s.copySubtrees(filepath.Join(LibDir, s.Arch), filepath.Join(s.WorkspaceDir, LibDir))
}

// CopyBinaries stages every package's bin/<arch>/ subtree into the workspace.
func (s *Stager) CopyBinaries() error {
	return s.copySubtrees(filepath.Join(BinDir, s.Arch), filepath.Join(s.WorkspaceDir, BinDir))
}

// CopyRuntimes stages every package's runtimes/<arch>/ subtree, inventory included.
func (s *Stager) CopyRuntimes() error {
	return s.copySubtrees(filepath.Join(RuntimesDir, s.Arch), filepath.Join(s.WorkspaceDir, RuntimesDir, s.Arch))
}

// CopyLicenses collects package root license files under licenses/<pkg>/.
func (s *Stager) CopyLicenses() error {
	packages, err := s.packageDirs()
	if err != nil {
		return err
	}
	for _, pkg := range packages {
		entries, err := os.ReadDir(filepath.Join(s.PackagesDir, pkg))
		if err != nil {
			return fmt.Errorf("layout: scan %s: %w", pkg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isLicenseFile(entry.Name()) {
				continue
			}
			src := filepath.Join(s.PackagesDir, pkg, entry.Name())
			dst := filepath.Join(s.WorkspaceDir, LicensesDir, pkg, entry.Name())
			info, err := entry.Info()
			if err != nil {
				return fmt.Errorf("layout: stat %s: %w", src, err)
			}
			if err := s.copyFileGuarded(src, dst, info.Mode().Perm()); err != nil {
				return err
			}
		}
	}
	return nil
}

// copySubtrees merges the named subtree of every installed package into dest.
func (s *Stager) copySubtrees(subtree, dest string) error {
	packages, err := s.packageDirs()
	if err != nil {
		return err
	}
	if !isWithin(dest, s.WorkspaceDir) {
		return fmt.Errorf("%w: destination=%q outside workspace", ErrSandboxViolation, dest)
	}

	copied := 0
	for _, pkg := range packages {
		src := filepath.Join(s.PackagesDir, pkg, subtree)
		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("layout: stat %s: %w", src, err)
		}
		if !info.IsDir() {
			continue
		}
		if err := copyDir(src, dest); err != nil {
			return fmt.Errorf("layout: stage %s from %s: %w", subtree, pkg, err)
		}
		copied++
	}
	log.Debug().Str("subtree", subtree).Int("packages", copied).Msg("layout staged")
	return nil
}

// packageDirs lists the installed package directories, sorted by ReadDir.
func (s *Stager) packageDirs() ([]string, error) {
	entries, err := os.ReadDir(s.PackagesDir)
	if err != nil {
		return nil, fmt.Errorf("layout: scan packages directory: %w", err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs, nil
}

// copyFileGuarded enforces the workspace sandbox before copying one file.
func (s *Stager) copyFileGuarded(src, dst string, perm os.FileMode) error {
	if !isWithin(dst, s.WorkspaceDir) {
		return fmt.Errorf("%w: destination=%q outside workspace", ErrSandboxViolation, dst)
	}
	if err := copyFile(src, dst, perm); err != nil {
		return fmt.Errorf("layout: copy %s: %w", src, err)
	}
	return nil
}

// isLicenseFile matches the common license file names at a package root.
func isLicenseFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "license") || strings.HasPrefix(lower, "notice")
}
