package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LockFileName is the pin file kept at the workspace root between runs.
const LockFileName = "sdk.lock.toml"

var (
	ErrNotFound     = errors.New("config: workspace pin file not found")
	ErrDuplicatePin = errors.New("config: duplicate package pin")
	ErrInvalidPin   = errors.New("config: invalid package pin")
)

// Workspace is the persisted package pin set for one workspace root.
type Workspace struct {
	Packages map[string]string `toml:"packages"`
}

// Path returns the pin file location under a workspace root.
func Path(workspaceDir string) string {
	return filepath.Join(workspaceDir, LockFileName)
}

// Load reads and validates the pin file for a workspace root.
func Load(workspaceDir string) (Workspace, error) {
	path := Path(workspaceDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Workspace{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Workspace{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	var ws Workspace
	if err := toml.Unmarshal(data, &ws); err != nil {
		return Workspace{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if err := validatePins(ws.Packages); err != nil {
		return Workspace{}, fmt.Errorf("%w (%s)", err, path)
	}
	return ws, nil
}

// Save overwrites the pin file atomically via a same-directory temp file.
func Save(workspaceDir string, ws *Workspace) error {
	if err := validatePins(ws.Packages); err != nil {
		return err
	}
	data, err := toml.Marshal(ws)
	if err != nil {
		return fmt.Errorf("config marshal failed: %w", err)
	}

	path := Path(workspaceDir)
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return fmt.Errorf("config save failed (%s): %w", path, err)
	}
	tmp, err := os.CreateTemp(workspaceDir, LockFileName+".*")
	if err != nil {
		return fmt.Errorf("config save failed (%s): %w", path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("config save failed (%s): %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config save failed (%s): %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config save failed (%s): %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("config save failed (%s): %w", path, err)
	}
	return nil
}

// Empty reports whether the pin set holds no packages.
func (w Workspace) Empty() bool {
	return len(w.Packages) == 0
}

// Pinned returns a defensive copy of the package pin map.
func (w Workspace) Pinned() map[string]string {
	out := make(map[string]string, len(w.Packages))
	for name, version := range w.Packages {
		out[name] = version
	}
	return out
}

// PackageNames returns pinned package names in deterministic order.
func (w Workspace) PackageNames() []string {
	names := make([]string, 0, len(w.Packages))
	for name := range w.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Version resolves one pin by case-insensitive package name.
func (w Workspace) Version(name string) (string, bool) {
	for pkg, version := range w.Packages {
		if strings.EqualFold(pkg, name) {
			return version, true
		}
	}
	return "", false
}

// validatePins enforces non-empty entries and case-insensitive name uniqueness.
func validatePins(pins map[string]string) error {
	seen := make(map[string]string, len(pins))
	for name, version := range pins {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return fmt.Errorf("%w: empty package name", ErrInvalidPin)
		}
		if strings.TrimSpace(version) == "" {
			return fmt.Errorf("%w: package %q has empty version", ErrInvalidPin, name)
		}
		key := strings.ToLower(trimmed)
		if prior, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q and %q", ErrDuplicatePin, prior, name)
		}
		seen[key] = name
	}
	return nil
}
