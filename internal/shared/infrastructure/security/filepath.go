// Package security guards file paths that come from configuration.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var forbidden = []string{";", "&", "|", "$", "`", "<", ">", "\n", "\r", "\x00"}

// CleanConfigPath resolves a configured path to an absolute, symlink-free
// form. Paths carrying shell metacharacters are refused.
func CleanConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is empty")
	}
	for _, c := range forbidden {
		if strings.Contains(path, c) {
			return "", fmt.Errorf("path %q contains forbidden character %q", path, c)
		}
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return resolved, nil
}

// ReadConfigFile reads a regular file at a configured path.
func ReadConfigFile(path string) ([]byte, error) {
	clean, err := CleanConfigPath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", clean)
	}
	// #nosec G304 - path is cleaned above
	return os.ReadFile(clean)
}
