package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/sdkctl/internal/testutil/testlog"
)

func TestGenerateWritesDescriptor(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	path, err := Generate(dir, GenerateOptions{
		Name:        "Demo",
		Publisher:   "CN=Acme",
		Version:     "2.0.0.0",
		Description: "demo workspace",
		Executable:  "demo.exe",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read descriptor: %v", err)
	}
	content := string(data)
	for _, want := range []string{`Name="Demo"`, `Publisher="CN=Acme"`, `Version="2.0.0.0"`, "<Executable>demo.exe</Executable>"} {
		if !strings.Contains(content, want) {
			t.Fatalf("descriptor missing %q:\n%s", want, content)
		}
	}
}

func TestGenerateSparseOmitsExecutable(t *testing.T) {
	testlog.Start(t)

	path, err := Generate(t.TempDir(), GenerateOptions{
		Name:       "Demo",
		Executable: "demo.exe",
		Sparse:     true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "Executable") {
		t.Fatalf("sparse descriptor should omit executable:\n%s", data)
	}
}

func TestGenerateRefusesOverwrite(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	if _, err := Generate(dir, GenerateOptions{Name: "Demo"}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if _, err := Generate(dir, GenerateOptions{Name: "Demo"}); !errors.Is(err, ErrManifestExists) {
		t.Fatalf("expected ErrManifestExists, got %v", err)
	}
}

func TestGenerateDefaultsNameFromDirectory(t *testing.T) {
	testlog.Start(t)

	dir := filepath.Join(t.TempDir(), "widget")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path, err := Generate(dir, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `Name="widget-`) {
		t.Fatalf("expected directory-derived name with suffix:\n%s", data)
	}
}

func TestPublisherOf(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	path, err := Generate(dir, GenerateOptions{Name: "Demo", Publisher: "CN=Acme Dev"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	publisher, err := PublisherOf(path)
	if err != nil {
		t.Fatalf("PublisherOf: %v", err)
	}
	if publisher != "CN=Acme Dev" {
		t.Fatalf("expected CN=Acme Dev, got %q", publisher)
	}
}

func TestPublisherOfMissingField(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`<Application><Identity Name="X" Version="1.0"/></Application>`), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	if _, err := PublisherOf(path); !errors.Is(err, ErrPublisherMissing) {
		t.Fatalf("expected ErrPublisherMissing, got %v", err)
	}
}

func TestPublisherOfParseFailure(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("not xml"), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	if _, err := PublisherOf(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDiscoverFindsNestedDescriptor(t *testing.T) {
	testlog.Start(t)

	dir := t.TempDir()
	sub := filepath.Join(dir, "app")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := Generate(sub, GenerateOptions{Name: "Demo"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	path, ok := Discover(dir)
	if !ok || path != filepath.Join(sub, FileName) {
		t.Fatalf("expected nested descriptor, got %q ok=%v", path, ok)
	}
}

func TestDiscoverNothing(t *testing.T) {
	testlog.Start(t)

	if _, ok := Discover(t.TempDir()); ok {
		t.Fatal("expected no descriptor")
	}
}
