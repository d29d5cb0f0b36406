// Package manifest owns the application descriptor file.
//
// Ownership boundary:
// - descriptor generation into a workspace
// - publisher extraction for certificate subject inference
// - descriptor discovery inside a project tree
package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileName is the application descriptor written into a workspace.
const FileName = "app.manifest.xml"

var (
	ErrManifestExists   = errors.New("manifest: descriptor already exists")
	ErrPublisherMissing = errors.New("manifest: no publisher in descriptor")
)

// identity mirrors the descriptor's identity element.
type identity struct {
	Name      string `xml:"Name,attr"`
	Publisher string `xml:"Publisher,attr"`
	Version   string `xml:"Version,attr"`
}

// properties mirrors the descriptor's display metadata element.
type properties struct {
	DisplayName string `xml:"DisplayName"`
	Description string `xml:"Description,omitempty"`
	Logo        string `xml:"Logo,omitempty"`
}

// document is the on-disk descriptor shape.
type document struct {
	XMLName    xml.Name   `xml:"Application"`
	Identity   identity   `xml:"Identity"`
	Properties properties `xml:"Properties"`
	Executable string     `xml:"Executable,omitempty"`
}

// GenerateOptions carries the fields written into a fresh descriptor.
type GenerateOptions struct {
	Name        string
	Publisher   string
	Version     string
	Description string
	Executable  string
	LogoPath    string
	Sparse      bool
}

// Generate writes a descriptor into a directory, refusing to overwrite one.
func Generate(dir string, opts GenerateOptions) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrManifestExists, path)
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = DefaultName(dir)
	}
	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "1.0.0.0"
	}

	doc := document{
		Identity: identity{
			Name:      name,
			Publisher: strings.TrimSpace(opts.Publisher),
			Version:   version,
		},
		Properties: properties{
			DisplayName: name,
			Description: strings.TrimSpace(opts.Description),
			Logo:        strings.TrimSpace(opts.LogoPath),
		},
	}
	if !opts.Sparse {
		doc.Executable = strings.TrimSpace(opts.Executable)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("manifest: encode descriptor: %w", err)
	}
	content := []byte(xml.Header + string(body) + "\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("manifest: write descriptor: %w", err)
	}
	return path, nil
}

// DefaultName derives a unique descriptor name from the directory name.
func DefaultName(dir string) string {
	base := strings.TrimSpace(filepath.Base(filepath.Clean(dir)))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "app"
	}
	return base + "-" + uuid.NewString()[:8]
}

// PublisherOf parses a descriptor and returns its publisher subject.
func PublisherOf(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("manifest: read descriptor %s: %w", path, err)
	}
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("manifest: parse descriptor %s: %w", path, err)
	}
	publisher := strings.TrimSpace(doc.Identity.Publisher)
	if publisher == "" {
		return "", fmt.Errorf("%w: %s", ErrPublisherMissing, path)
	}
	return publisher, nil
}

// Discover locates a descriptor at the project root or one directory below it.
func Discover(dir string) (string, bool) {
	root := filepath.Join(dir, FileName)
	if _, err := os.Stat(root); err == nil {
		return root, true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(dir, entry.Name(), FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
