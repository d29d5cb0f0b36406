// Package auxtools owns the optional auxiliary tool catalog.
//
// Ownership boundary:
// - tools.yaml catalog parsing and validation
// - best-effort probe-then-provision of each catalog entry
package auxtools

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogFileName is the optional catalog at the project root.
const CatalogFileName = "tools.yaml"

var ErrInvalidTool = errors.New("auxtools: invalid tool entry")

// Tool is one auxiliary tool the workspace would like on the host.
type Tool struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Probe      []string `yaml:"probe"`
	Package    string   `yaml:"package"`
	Executable string   `yaml:"executable"`
}

// catalog is the on-disk document shape.
type catalog struct {
	Tools []Tool `yaml:"tools"`
}

// ValidateTool checks required fields and id format.
func ValidateTool(tool Tool) error {
	id := strings.TrimSpace(tool.ID)
	name := strings.TrimSpace(tool.Name)
	if id == "" || name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidTool)
	}
	if !isValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidTool, id)
	}
	if len(tool.Probe) == 0 && strings.TrimSpace(tool.Package) == "" {
		return fmt.Errorf("%w: %q needs a probe command or a package", ErrInvalidTool, id)
	}
	return nil
}

// LoadCatalog parses a tools.yaml file. A missing file is an empty catalog.
func LoadCatalog(path string) ([]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("auxtools: read %s: %w", path, err)
	}

	var doc catalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("auxtools: decode %s: %w", path, err)
	}
	for _, tool := range doc.Tools {
		if err := ValidateTool(tool); err != nil {
			return nil, fmt.Errorf("auxtools: %s: %w", path, err)
		}
	}
	return doc.Tools, nil
}

func isValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if i == 0 || i == len(id)-1 {
			if isSep {
				return false
			}
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
