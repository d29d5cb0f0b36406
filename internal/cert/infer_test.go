package cert

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/sdkctl/internal/manifest"
	"github.com/danmuck/sdkctl/internal/testutil/testlog"
)

func writeManifest(t *testing.T, dir, publisher string) string {
	t.Helper()
	path, err := manifest.Generate(dir, manifest.GenerateOptions{Name: "Demo", Publisher: publisher})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return path
}

func TestInferPublisherExplicitWins(t *testing.T) {
	testlog.Start(t)

	path := writeManifest(t, t.TempDir(), "CN=FromManifest")
	got, err := InferPublisher("Acme", path, func() (string, error) { return "FromDiscovery", nil })
	if err != nil {
		t.Fatalf("InferPublisher: %v", err)
	}
	if got != "Acme" {
		t.Fatalf("expected explicit Acme, got %q", got)
	}
}

func TestInferPublisherManifestBeforeDiscovery(t *testing.T) {
	testlog.Start(t)

	path := writeManifest(t, t.TempDir(), "CN=FromManifest")
	got, err := InferPublisher("", path, func() (string, error) { return "FromDiscovery", nil })
	if err != nil {
		t.Fatalf("InferPublisher: %v", err)
	}
	if got != "CN=FromManifest" {
		t.Fatalf("expected manifest publisher, got %q", got)
	}
}

func TestInferPublisherRequestedManifestParseFailureIsFatal(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), manifest.FileName)
	if err := os.WriteFile(path, []byte("not xml"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, err := InferPublisher("", path, func() (string, error) { return "FromDiscovery", nil }); err == nil {
		t.Fatal("expected parse failure to be fatal")
	}
}

func TestInferPublisherFallsBackToDiscovery(t *testing.T) {
	testlog.Start(t)

	got, err := InferPublisher("", "", func() (string, error) { return "FromDiscovery", nil })
	if err != nil {
		t.Fatalf("InferPublisher: %v", err)
	}
	if got != "FromDiscovery" {
		t.Fatalf("expected discovery publisher, got %q", got)
	}
}

func TestInferPublisherAllEmptyFails(t *testing.T) {
	testlog.Start(t)

	if _, err := InferPublisher("", "", func() (string, error) { return "", nil }); !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher, got %v", err)
	}
	if _, err := InferPublisher("  ", "", nil); !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher without discovery, got %v", err)
	}
}

func TestSubjectSanitation(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"Acme":           "CN=Acme",
		"CN=Acme":        "CN=Acme",
		`CN="Acme Dev"`:  "CN=Acme Dev",
		"CN=CN=Acme":     "CN=Acme",
		"  'Acme Dev'  ": "CN=Acme Dev",
	}
	for in, want := range cases {
		if got := Subject(in); got != want {
			t.Fatalf("Subject(%q) = %q, want %q", in, got, want)
		}
	}
}
