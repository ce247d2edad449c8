// Package config loads optional project-level defaults for the chiru CLI
// from a .chiru.yaml file, searched for upward from the current directory.
// CLI flags always win over file values: ApplyFlagOverrides overlays every
// flag the user set explicitly on top of what Load returned.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const fileName = ".chiru.yaml"

// Config holds the subset of chiru's behavior a project can default via
// .chiru.yaml, mirroring the flags exposed on the root command.
type Config struct {
	Format  string `yaml:"format"`
	NoColor bool   `yaml:"no_color"`
	Watch   bool   `yaml:"watch"`
	Strict  bool   `yaml:"strict"`
}

// Default returns the baseline configuration used when no .chiru.yaml is
// found anywhere above the working directory.
func Default() *Config {
	return &Config{
		Format:  "text",
		NoColor: false,
		Watch:   false,
		Strict:  false,
	}
}

// Load searches upward from dir for a .chiru.yaml file and applies it over
// the defaults. A missing file at every level is not an error: Load simply
// returns the defaults, matching how the teacher's config loader treats a
// missing file as the empty configuration rather than a failure.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path, err := findUpward(dir, fileName)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chiru: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("chiru: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// findUpward walks from dir to the filesystem root looking for name,
// returning "" (not an error) if it is never found.
func findUpward(dir, name string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("chiru: failed to resolve %s: %w", dir, err)
	}

	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("chiru: failed to stat %s: %w", candidate, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ApplyFlagOverrides overlays explicitly-set CLI flag values onto cfg.
// Only flags the caller marks as set (changed) override the file/default
// value, so an unset flag never silently reverts a project's .chiru.yaml.
func (c *Config) ApplyFlagOverrides(format string, formatSet bool, noColor, noColorSet, watch, watchSet, strict, strictSet bool) {
	if formatSet {
		c.Format = format
	}
	if noColorSet {
		c.NoColor = noColor
	}
	if watchSet {
		c.Watch = watch
	}
	if strictSet {
		c.Strict = strict
	}
}
