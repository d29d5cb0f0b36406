package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteTemplate writes a starter pin file unless one already exists.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config template write failed (%s): %w", path, err)
	}
	return os.WriteFile(path, []byte(lockTemplate), 0o600)
}

const lockTemplate = `[packages]
"SDK.Core.Headers" = "1.0.0"
"SDK.Core.Libs" = "1.0.0"
"SDK.Tools.Projector" = "1.0.0"
"SDK.Runtime.Bundles" = "1.0.0"
`
