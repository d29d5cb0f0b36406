package cert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrCertExists = errors.New("cert: certificate already exists")

// State tracks how far a provisioning run got.
type State string

const (
	StateNotGenerated State = "not-generated"
	StateGenerated    State = "generated"
	StateInstalled    State = "installed"
)

// Generator produces the certificate artifact at a path.
type Generator interface {
	Generate(ctx context.Context, subject, outputPath, password string, validDays int) error
}

// TrustStore installs a certificate into the host trust store.
// Install reports false when the certificate was already trusted.
type TrustStore interface {
	Install(ctx context.Context, certPath, password string, force bool) (bool, error)
}

// Request carries one provisioning invocation's inputs.
type Request struct {
	OutputPath      string
	Publisher       string
	ManifestPath    string
	Password        string
	ValidDays       int
	SkipIfExists    bool
	UpdateGitignore bool
	Install         bool
	ProjectDir      string
}

// Record is the immutable result of a successful provisioning run.
type Record struct {
	CertificatePath string
	Password        string
	Publisher       string
	Subject         string
	State           State
	AlreadyTrusted  bool
}

// Provisioner orchestrates certificate generation around its collaborators.
type Provisioner struct {
	Generator Generator
	Trust     TrustStore
	Discover  func() (string, error)
}

// NewProvisioner builds a provisioner over generation and trust collaborators.
func NewProvisioner(gen Generator, trust TrustStore, discover func() (string, error)) *Provisioner {
	return &Provisioner{Generator: gen, Trust: trust, Discover: discover}
}

// Provision runs the idempotency gate, subject inference, generation and
// the optional post steps for one certificate request.
func (p *Provisioner) Provision(ctx context.Context, req Request) (Record, error) {
	outputPath := strings.TrimSpace(req.OutputPath)
	if outputPath == "" {
		return Record{}, fmt.Errorf("cert: output path required")
	}
	if req.SkipIfExists {
		if _, err := os.Stat(outputPath); err == nil {
			return Record{}, fmt.Errorf("%w: %s", ErrCertExists, outputPath)
		}
	}

	publisher, err := InferPublisher(req.Publisher, req.ManifestPath, p.Discover)
	if err != nil {
		return Record{}, err
	}
	subject := Subject(publisher)

	validDays := req.ValidDays
	if validDays <= 0 {
		validDays = 365
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return Record{}, fmt.Errorf("cert: prepare output directory: %w", err)
	}
	if err := p.Generator.Generate(ctx, subject, outputPath, req.Password, validDays); err != nil {
		// A half-written artifact must not survive a failed generation.
		if rmErr := os.Remove(outputPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warn().Str("path", outputPath).Err(rmErr).Msg("could not remove partial certificate")
		}
		return Record{}, fmt.Errorf("cert: generate %s: %w", outputPath, err)
	}

	record := Record{
		CertificatePath: outputPath,
		Password:        req.Password,
		Publisher:       publisher,
		Subject:         subject,
		State:           StateGenerated,
	}
	log.Info().Str("path", outputPath).Str("subject", subject).Msg("certificate generated")

	if req.UpdateGitignore {
		if err := appendGitignore(gitignoreDir(req), filepath.Base(outputPath)); err != nil {
			log.Warn().Err(err).Msg("gitignore update failed")
		}
	}

	if req.Install && p.Trust != nil {
		installed, err := p.Trust.Install(ctx, outputPath, req.Password, false)
		if err != nil {
			return record, fmt.Errorf("cert: trust install %s: %w", outputPath, err)
		}
		record.State = StateInstalled
		record.AlreadyTrusted = !installed
		if installed {
			log.Info().Str("path", outputPath).Msg("certificate installed into trust store")
		} else {
			log.Info().Str("path", outputPath).Msg("certificate already trusted")
		}
	}
	return record, nil
}

// gitignoreDir picks where the ignore entry belongs.
func gitignoreDir(req Request) string {
	if dir := strings.TrimSpace(req.ProjectDir); dir != "" {
		return dir
	}
	return filepath.Dir(req.OutputPath)
}

// appendGitignore adds one entry to a .gitignore, once.
func appendGitignore(dir, entry string) error {
	path := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cert: read %s: %w", path, err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cert: open %s: %w", path, err)
	}
	defer f.Close()

	prefix := ""
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		prefix = "\n"
	}
	if _, err := f.WriteString(prefix + entry + "\n"); err != nil {
		return fmt.Errorf("cert: append %s: %w", path, err)
	}
	return nil
}
