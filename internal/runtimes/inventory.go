package runtimes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InventoryFileName is the per-architecture runtime manifest file.
const InventoryFileName = "inventory.txt"

// InventoryEntry is one fileName=packageIdentity pair from an inventory file.
type InventoryEntry struct {
	FileName string
	Identity string
}

// InventoryPath returns the inventory file location for one architecture directory.
func InventoryPath(runtimesDir, arch string) string {
	return filepath.Join(runtimesDir, arch, InventoryFileName)
}

// LoadInventory parses an inventory file, ignoring blank lines and lines
// without a key=value separator.
func LoadInventory(path string) ([]InventoryEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runtimes: read inventory %s: %w", path, err)
	}

	var entries []InventoryEntry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, identity, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		identity = strings.TrimSpace(identity)
		if name == "" || identity == "" {
			continue
		}
		entries = append(entries, InventoryEntry{FileName: name, Identity: identity})
	}
	return entries, nil
}
