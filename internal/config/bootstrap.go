package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// EnsureUserConfig returns <dataDir>/config.yml, creating it first from
// defaultPath, or from Default() when defaultPath is empty or missing.
func EnsureUserConfig(dataDir string, defaultPath string) (string, error) {
	userPath := filepath.Join(dataDir, "config.yml")

	_, err := os.Stat(userPath)
	if err == nil {
		return userPath, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", eris.Wrapf(err, "config: stat %s", userPath)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "config: create %s", dataDir)
	}

	src, err := os.Open(defaultPath)
	if defaultPath == "" || errors.Is(err, os.ErrNotExist) {
		d := Default()
		d.App.DataDir = dataDir
		return userPath, SaveAtomic(userPath, d)
	}
	if err != nil {
		return "", eris.Wrapf(err, "config: open %s", defaultPath)
	}
	defer src.Close()

	dst, err := os.Create(userPath)
	if err != nil {
		return "", eris.Wrapf(err, "config: create %s", userPath)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", eris.Wrap(err, "config: copy default config")
	}
	return userPath, nil
}
