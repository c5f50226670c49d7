package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateDatabasePath validates that a database path is safe to open.
// Absolute paths are allowed (DB_PATH usually is one); relative paths must
// not climb out of the working directory.
func ValidateDatabasePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains NUL byte")
	}

	cleanPath := filepath.Clean(path)

	if !filepath.IsAbs(cleanPath) && strings.HasPrefix(cleanPath, "..") {
		return fmt.Errorf("path escapes working directory: %s", path)
	}

	return nil
}
