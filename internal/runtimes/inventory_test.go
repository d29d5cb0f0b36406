package runtimes

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/sdkctl/internal/testutil/testlog"
)

func TestLoadInventorySkipsMalformedLines(t *testing.T) {
	testlog.Start(t)

	path := filepath.Join(t.TempDir(), InventoryFileName)
	content := "foo.pkg=Foo_1.0.0_x64_abc\n\nnot a pair\n  bar.pkg = Bar_2.0.0_x64_def  \n=\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write inventory: %v", err)
	}

	entries, err := LoadInventory(path)
	if err != nil {
		t.Fatalf("LoadInventory: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[1].FileName != "bar.pkg" || entries[1].Identity != "Bar_2.0.0_x64_def" {
		t.Fatalf("expected trimmed pair, got %+v", entries[1])
	}
}

func TestLoadInventoryMissingFile(t *testing.T) {
	testlog.Start(t)

	if _, err := LoadInventory(filepath.Join(t.TempDir(), "absent", InventoryFileName)); err == nil {
		t.Fatal("expected read error")
	}
}

func TestParseIdentityParts(t *testing.T) {
	testlog.Start(t)

	id, err := ParseIdentity("Foo_2.0.0.0_x64_abc123")
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if id.Name != "Foo" || id.Version != "2.0.0.0" || id.Arch != "x64" || id.PublisherHash != "abc123" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if id.String() != "Foo_2.0.0.0_x64_abc123" {
		t.Fatalf("round trip mismatch: %s", id.String())
	}
}

func TestParseIdentityRejectsShortForms(t *testing.T) {
	testlog.Start(t)

	for _, raw := range []string{"", "Foo", "_1.0.0", "Foo_"} {
		if _, err := ParseIdentity(raw); !errors.Is(err, ErrInvalidIdentity) {
			t.Fatalf("ParseIdentity(%q): expected ErrInvalidIdentity, got %v", raw, err)
		}
	}
}

func TestArchTagMapping(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"amd64":   "x64",
		"386":     "x86",
		"arm64":   "arm64",
		"arm":     "arm",
		"riscv64": "x64",
	}
	for goarch, want := range cases {
		if got := archTag(goarch); got != want {
			t.Fatalf("archTag(%q) = %q, want %q", goarch, got, want)
		}
	}
}
