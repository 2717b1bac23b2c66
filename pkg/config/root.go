package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// EnvConfigDir overrides the configuration root directory.
const EnvConfigDir = "ANONYMIZER_CONFIG_DIR"

// DefaultRoot returns the configuration root: the EnvConfigDir environment
// variable when set, otherwise text-anonymizer under the user's XDG config
// directory.
func DefaultRoot() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, "text-anonymizer")
}

// EnsureRoot resolves the configuration root and creates the directory if
// it is missing.
func EnsureRoot() (string, error) {
	root := DefaultRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("creating configuration root %s: %w", root, err)
	}
	return root, nil
}
