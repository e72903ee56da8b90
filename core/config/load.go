package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// ErrExists is returned by Initialize when it would overwrite a file.
var ErrExists = errors.New("configuration already exists")

// DefaultPath returns $MYSHELL_CONFIG if set, otherwise ~/.myshell.yaml.
func DefaultPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigurationName
	}
	return filepath.Join(home, ConfigurationName)
}

// Load loads the configuration at path from fsys. Fields missing from the
// file keep their defaults and a missing file is the default configuration.
func Load(fsys afero.Fs, path string) (*Configuration, error) {
	out := Default(fsys)

	configContents, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return out, nil
	case err != nil:
		return nil, err
	}

	if err := yaml.UnmarshalStrict(configContents, out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Initialize writes the default configuration to path.
func Initialize(fsys afero.Fs, path string, logger *log.Logger) error {
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	logger.Printf("Writing default configuration to %q", path)
	return afero.WriteFile(fsys, path, defaultConfigData, 0600)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
