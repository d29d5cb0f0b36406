package auxtools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/sdkctl/internal/testutil/testlog"
)

type probeFakeRunner struct {
	exits map[string]int32
}

func (f *probeFakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	if exit, ok := f.exits[name]; ok {
		return nil, nil, exit, nil
	}
	return nil, nil, 127, errors.New("command not found")
}

type fakePackageInstaller struct {
	installed [][]string
	fail      error
}

func (f *fakePackageInstaller) InstallPackages(ctx context.Context, targetDir string, names []string, includePrerelease, ignorePinned bool) (map[string]string, error) {
	f.installed = append(f.installed, names)
	if f.fail != nil {
		return nil, f.fail
	}
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = "1.0.0"
	}
	return out, nil
}

func TestLoadCatalogMissingFileIsEmpty(t *testing.T) {
	testlog.Start(t)

	tools, err := LoadCatalog(filepath.Join(t.TempDir(), CatalogFileName))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(tools) != 0 {
		t.Fatalf("expected empty catalog, got %v", tools)
	}
}

func TestLoadCatalogParsesEntries(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), CatalogFileName)
	content := `tools:
  - id: cmake
    name: CMake
    probe: ["cmake", "--version"]
    package: SDK.Tools.CMake
    executable: cmake
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	tools, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(tools) != 1 || tools[0].ID != "cmake" || tools[0].Probe[1] != "--version" {
		t.Fatalf("unexpected catalog %+v", tools)
	}
}

func TestLoadCatalogRejectsBadIDs(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), CatalogFileName)
	content := "tools:\n  - id: \"Bad ID\"\n    name: Bad\n    probe: [\"bad\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := LoadCatalog(path); !errors.Is(err, ErrInvalidTool) {
		t.Fatalf("expected ErrInvalidTool, got %v", err)
	}
}

func TestValidateToolIDFormat(t *testing.T) {
	testlog.Start(t)

	good := Tool{ID: "vs-build.tools2", Name: "X", Probe: []string{"x"}}
	if err := ValidateTool(good); err != nil {
		t.Fatalf("ValidateTool: %v", err)
	}
	for _, id := range []string{"-lead", "trail-", "double--sep", "UpperCase", "sp ace"} {
		bad := Tool{ID: id, Name: "X", Probe: []string{"x"}}
		if err := ValidateTool(bad); !errors.Is(err, ErrInvalidTool) {
			t.Fatalf("ValidateTool(%q): expected ErrInvalidTool, got %v", id, err)
		}
	}
}

func TestProvisionAllSkipsPresentTools(t *testing.T) {
	testlog.Start(t)

	runner := &probeFakeRunner{exits: map[string]int32{"cmake": 0}}
	installer := &fakePackageInstaller{}
	p := NewProvisioner(t.TempDir(), runner, installer)

	results := p.ProvisionAll(context.Background(), []Tool{
		{ID: "cmake", Name: "CMake", Probe: []string{"cmake", "--version"}, Package: "SDK.Tools.CMake"},
	})
	if results[0].Status != StatusPresent {
		t.Fatalf("expected present, got %+v", results[0])
	}
	if len(installer.installed) != 0 {
		t.Fatalf("expected no installs, got %v", installer.installed)
	}
}

func TestProvisionAllInstallsMissingTools(t *testing.T) {
	testlog.Start(t)

	runner := &probeFakeRunner{}
	installer := &fakePackageInstaller{}
	p := NewProvisioner(t.TempDir(), runner, installer)

	results := p.ProvisionAll(context.Background(), []Tool{
		{ID: "cmake", Name: "CMake", Probe: []string{"cmake", "--version"}, Package: "SDK.Tools.CMake"},
	})
	if results[0].Status != StatusInstalled {
		t.Fatalf("expected installed, got %+v", results[0])
	}
	if len(installer.installed) != 1 || installer.installed[0][0] != "SDK.Tools.CMake" {
		t.Fatalf("expected package install, got %v", installer.installed)
	}
}

func TestProvisionAllContinuesPastFailures(t *testing.T) {
	testlog.Start(t)

	runner := &probeFakeRunner{exits: map[string]int32{"ninja": 0}}
	installer := &fakePackageInstaller{fail: errors.New("feed down")}
	p := NewProvisioner(t.TempDir(), runner, installer)

	results := p.ProvisionAll(context.Background(), []Tool{
		{ID: "cmake", Name: "CMake", Probe: []string{"cmake", "--version"}, Package: "SDK.Tools.CMake"},
		{ID: "ninja", Name: "Ninja", Probe: []string{"ninja", "--version"}},
	})
	if len(results) != 2 {
		t.Fatalf("expected both entries processed, got %+v", results)
	}
	if results[0].Status != StatusFailed {
		t.Fatalf("expected first failed, got %+v", results[0])
	}
	if results[1].Status != StatusPresent {
		t.Fatalf("expected second present, got %+v", results[1])
	}
}
