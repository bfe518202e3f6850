package mosaic

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConvertToAbsolute returns an absolute path, resolving relative paths against baseDir.
func ConvertToAbsolute(path, baseDir string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(filepath.Join(baseDir, path))
	if err != nil {
		return "", fmt.Errorf("can't make %q absolute relative to %q: %v", path, baseDir, err)
	}
	return abs, nil
}

// EnsureDir creates a directory, including parents, if it does not already exist.
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		Debugf("Creating directory %s ...\n", dir)
		return os.MkdirAll(dir, 0755)
	} else if err != nil {
		return err
	}
	return nil
}
