package authz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadHierarchy reads a role hierarchy configuration from a YAML reference
// file. The file overrides the built-in catalogue entirely.
func LoadHierarchy(path string) (HierarchyConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return HierarchyConfig{}, fmt.Errorf("authz: read %s: %w", path, err)
	}
	var cfg HierarchyConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return HierarchyConfig{}, fmt.Errorf("authz: parse %s: %w", path, err)
	}
	if len(cfg.Inherits) == 0 {
		return HierarchyConfig{}, fmt.Errorf("%w: %s declares no roles", ErrInvariant, path)
	}
	return cfg, nil
}
