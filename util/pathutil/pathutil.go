// Package pathutil expands and normalizes user-supplied paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Expand resolves a leading ~ and $VAR references and returns an absolute
// path.
func Expand(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	return filepath.Abs(os.ExpandEnv(path))
}

// NormalizeForLookup returns an absolute, symlink-resolved path suitable as
// a map key. On case-insensitive platforms it is lowercased. Paths that do
// not exist keep their absolute form.
func NormalizeForLookup(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	canonical, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		canonical = absPath
	}

	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return strings.ToLower(canonical), nil
	}
	return canonical, nil
}
