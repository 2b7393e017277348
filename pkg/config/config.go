// Package config reads the optional .ragup.yaml override file placed in
// the project root. Flags provide every default; the file only exists
// to swap out the stock backend/UI/tunnel command lines or add env.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = ".ragup.yaml"

type File struct {
	Backend Child `yaml:"backend,omitempty"`
	UI      Child `yaml:"ui,omitempty"`
	Tunnel  Child `yaml:"tunnel,omitempty"`
}

type Child struct {
	// Command replaces the stock argv for this child. When set, the
	// stock entrypoint existence checks are skipped for it.
	Command []string          `yaml:"command,omitempty"`
	Dir     string            `yaml:"dir,omitempty"` // relative to project root unless absolute
	Env     map[string]string `yaml:"env,omitempty"`
}

func DefaultPath(projectRoot string) string {
	return filepath.Join(projectRoot, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}
