// Package config loads the key-value configuration the timestamp probe's
// artifact-path template substitution consumes (spec.md §6.3). It mirrors
// yamake's Builder._initConfig three-candidate search order (explicit path,
// project-local file, per-user file), decoding YAML instead of the source's
// format since the declaration front-end (internal/declfile) already
// standardizes on gopkg.in/yaml.v3.
package config

import (
	"os"
	"path/filepath"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// KV is the configuration mapping (LAYERS, DLC, MODS, and user-defined
// keys) consumed by artifact-path template substitution.
type KV map[string]string

const (
	projectConfigName = "ybld-config.yaml"
	userConfigSubpath = "ybld/config.yaml"
)

// Load reads configuration from the first of: explicitPath (if non-empty),
// ./ybld-config.yaml in the current directory, or
// $XDG_CONFIG_HOME/ybld/config.yaml (via os.UserConfigDir). It is not an
// error for none of these to exist; Load then returns an empty KV.
func Load(explicitPath string) (KV, error) {
	candidates := []string{explicitPath, projectConfigName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, userConfigSubpath))
	}

	for _, path := range candidates {
		if path == "" {
			continue
		}
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, xerrors.Errorf("reading config %s: %w", path, err)
		}
		var kv KV
		if err := yaml.Unmarshal(b, &kv); err != nil {
			return nil, xerrors.Errorf("parsing config %s: %w", path, err)
		}
		if kv == nil {
			kv = KV{}
		}
		return kv, nil
	}
	return KV{}, nil
}
