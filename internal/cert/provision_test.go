package cert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/sdkctl/internal/testutil/testlog"
)

type fakeGenerator struct {
	calls   int
	subject string
	fail    error
	partial bool
}

func (f *fakeGenerator) Generate(ctx context.Context, subject, outputPath, password string, validDays int) error {
	f.calls++
	f.subject = subject
	if f.fail != nil {
		if f.partial {
			os.WriteFile(outputPath, []byte("partial"), 0o600)
		}
		return f.fail
	}
	return os.WriteFile(outputPath, []byte("pfx"), 0o600)
}

type fakeTrustStore struct {
	calls     int
	installed bool
	fail      error
}

func (f *fakeTrustStore) Install(ctx context.Context, certPath, password string, force bool) (bool, error) {
	f.calls++
	if f.fail != nil {
		return false, f.fail
	}
	return f.installed, nil
}

func TestProvisionGeneratesRecord(t *testing.T) {
	testlog.Start(t)

	out := filepath.Join(t.TempDir(), "certs", "dev.pfx")
	gen := &fakeGenerator{}
	p := NewProvisioner(gen, nil, nil)

	record, err := p.Provision(context.Background(), Request{
		OutputPath: out,
		Publisher:  `CN="Acme Dev"`,
		Password:   "pw",
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if record.Subject != "CN=Acme Dev" {
		t.Fatalf("expected sanitized subject, got %q", record.Subject)
	}
	if record.State != StateGenerated {
		t.Fatalf("expected generated state, got %q", record.State)
	}
	if gen.subject != "CN=Acme Dev" {
		t.Fatalf("generator saw subject %q", gen.subject)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected certificate on disk: %v", err)
	}
}

func TestProvisionIdempotencyGate(t *testing.T) {
	testlog.Start(t)

	out := filepath.Join(t.TempDir(), "dev.pfx")
	if err := os.WriteFile(out, []byte("existing"), 0o600); err != nil {
		t.Fatalf("seed existing cert: %v", err)
	}

	gen := &fakeGenerator{}
	p := NewProvisioner(gen, nil, nil)

	_, err := p.Provision(context.Background(), Request{
		OutputPath:   out,
		Publisher:    "Acme",
		SkipIfExists: true,
	})
	if !errors.Is(err, ErrCertExists) {
		t.Fatalf("expected ErrCertExists, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("generator must not run when the gate trips")
	}
}

func TestProvisionRemovesPartialOnGeneratorFailure(t *testing.T) {
	testlog.Start(t)

	out := filepath.Join(t.TempDir(), "dev.pfx")
	gen := &fakeGenerator{fail: errors.New("openssl exited 1"), partial: true}
	p := NewProvisioner(gen, nil, nil)

	if _, err := p.Provision(context.Background(), Request{OutputPath: out, Publisher: "Acme"}); err == nil {
		t.Fatal("expected generation failure")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("expected partial certificate removed, stat err %v", err)
	}
}

func TestProvisionInstallsIntoTrustStore(t *testing.T) {
	testlog.Start(t)

	out := filepath.Join(t.TempDir(), "dev.pfx")
	trust := &fakeTrustStore{installed: true}
	p := NewProvisioner(&fakeGenerator{}, trust, nil)

	record, err := p.Provision(context.Background(), Request{
		OutputPath: out,
		Publisher:  "Acme",
		Install:    true,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if record.State != StateInstalled || record.AlreadyTrusted {
		t.Fatalf("expected fresh install, got %+v", record)
	}
	if trust.calls != 1 {
		t.Fatalf("expected one trust call, got %d", trust.calls)
	}
}

func TestProvisionReportsAlreadyTrustedNoop(t *testing.T) {
	testlog.Start(t)

	out := filepath.Join(t.TempDir(), "dev.pfx")
	trust := &fakeTrustStore{installed: false}
	p := NewProvisioner(&fakeGenerator{}, trust, nil)

	record, err := p.Provision(context.Background(), Request{
		OutputPath: out,
		Publisher:  "Acme",
		Install:    true,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !record.AlreadyTrusted {
		t.Fatalf("expected already-trusted no-op, got %+v", record)
	}
}

func TestProvisionUpdatesGitignoreOnce(t *testing.T) {
	testlog.Start(t)

	project := t.TempDir()
	out := filepath.Join(project, "dev.pfx")
	p := NewProvisioner(&fakeGenerator{}, nil, nil)

	req := Request{
		OutputPath:      out,
		Publisher:       "Acme",
		UpdateGitignore: true,
		ProjectDir:      project,
	}
	if _, err := p.Provision(context.Background(), req); err != nil {
		t.Fatalf("first Provision: %v", err)
	}
	os.Remove(out)
	if _, err := p.Provision(context.Background(), req); err != nil {
		t.Fatalf("second Provision: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(project, ".gitignore"))
	if err != nil {
		t.Fatalf("read gitignore: %v", err)
	}
	if got := strings.Count(string(data), "dev.pfx"); got != 1 {
		t.Fatalf("expected one gitignore entry, got %d in %q", got, data)
	}
}

func TestProvisionUsesDiscoveryChain(t *testing.T) {
	testlog.Start(t)

	out := filepath.Join(t.TempDir(), "dev.pfx")
	p := NewProvisioner(&fakeGenerator{}, nil, func() (string, error) { return "Discovered Co", nil })

	record, err := p.Provision(context.Background(), Request{OutputPath: out})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if record.Subject != "CN=Discovered Co" {
		t.Fatalf("expected discovered subject, got %q", record.Subject)
	}
}
