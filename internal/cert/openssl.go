package cert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danmuck/sdkctl/internal/tools"
)

// OpenSSLGenerator produces a PKCS#12 certificate through the openssl CLI.
type OpenSSLGenerator struct {
	Command string
	Runner  tools.CommandRunner
}

// NewOpenSSLGenerator builds a generator over a command runner.
func NewOpenSSLGenerator(runner tools.CommandRunner) *OpenSSLGenerator {
	return &OpenSSLGenerator{Command: "openssl", Runner: runner}
}

// Generate creates a self-signed key pair and exports it to outputPath.
func (g *OpenSSLGenerator) Generate(ctx context.Context, subject, outputPath, password string, validDays int) error {
	workDir, err := os.MkdirTemp("", "sdkctl-cert-")
	if err != nil {
		return fmt.Errorf("cert: temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	keyPath := filepath.Join(workDir, "key.pem")
	crtPath := filepath.Join(workDir, "crt.pem")

	if err := g.run(ctx, "req", "-x509", "-newkey", "rsa:2048",
		"-keyout", keyPath, "-out", crtPath,
		"-days", strconv.Itoa(validDays), "-nodes",
		"-subj", "/"+subject); err != nil {
		return err
	}
	return g.run(ctx, "pkcs12", "-export",
		"-out", outputPath, "-inkey", keyPath, "-in", crtPath,
		"-passout", "pass:"+password)
}

// run seeds one openssl invocation and folds its output into failures.
func (g *OpenSSLGenerator) run(ctx context.Context, args ...string) error {
	command := g.Command
	if strings.TrimSpace(command) == "" {
		command = "openssl"
	}
	stdout, stderr, exit, err := g.Runner.Run(ctx, command, args...)
	if err != nil {
		return fmt.Errorf("cert: run %s %s: %w", command, strings.Join(args, " "), err)
	}
	if exit != 0 {
		return fmt.Errorf("cert: %s %s exited %d\nstdout: %s\nstderr: %s",
			command, strings.Join(args, " "), exit, string(stdout), string(stderr))
	}
	return nil
}
