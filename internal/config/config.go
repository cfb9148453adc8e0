// Package config holds the inference caps and the dextype.yaml options file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level dextype.yaml configuration.
type Config struct {
	// Classpath is the class hierarchy source: a .yaml file or a .db store.
	// Relative paths are resolved against the config file's directory.
	Classpath string `yaml:"classpath,omitempty"`

	// Workers is the number of methods inferred in parallel.
	// Defaults to the number of CPUs.
	Workers int `yaml:"workers,omitempty"`

	// Debug enables debug notes in reports.
	Debug bool `yaml:"debug,omitempty"`

	// Limits overrides the inference caps.
	Limits Limits `yaml:"limits,omitempty"`

	// Resolvers enables a subset of resolvers. Order is always the
	// built-in one; empty means all.
	Resolvers []string `yaml:"resolvers,omitempty"`
}

// Limits are the caps that bound worst-case running time.
type Limits struct {
	FinalizeRounds   int `yaml:"finalize_rounds,omitempty"`
	SearchVars       int `yaml:"search_vars,omitempty"`
	SearchCandidates int `yaml:"search_candidates,omitempty"`
	SearchIterations int `yaml:"search_iterations,omitempty"`
	UpdateDepth      int `yaml:"update_depth,omitempty"`
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a dextype.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses dextype.yaml content from bytes.
// The path argument is used for error messages and to resolve the classpath.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if cfg.Classpath != "" && !filepath.IsAbs(cfg.Classpath) {
		cfg.Classpath = filepath.Join(filepath.Dir(path), cfg.Classpath)
	}
	return &cfg, nil
}

// FindConfig searches for dextype.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file, or an empty string if none is found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ResolverEnabled reports whether the named resolver should run.
func (c *Config) ResolverEnabled(name string) bool {
	if len(c.Resolvers) == 0 {
		return true
	}
	for _, r := range c.Resolvers {
		if r == name {
			return true
		}
	}
	return false
}

func (c *Config) validate(path string) error {
	if c.Workers < 0 {
		return fmt.Errorf("%s: workers must not be negative", path)
	}
	limits := []struct {
		name  string
		value int
	}{
		{"finalize_rounds", c.Limits.FinalizeRounds},
		{"search_vars", c.Limits.SearchVars},
		{"search_candidates", c.Limits.SearchCandidates},
		{"search_iterations", c.Limits.SearchIterations},
		{"update_depth", c.Limits.UpdateDepth},
	}
	for _, l := range limits {
		if l.value < 0 {
			return fmt.Errorf("%s: limits.%s must not be negative", path, l.name)
		}
	}
	seen := make(map[string]bool)
	for i, r := range c.Resolvers {
		if !isResolver(r) {
			return fmt.Errorf("%s: resolvers[%d]: unknown resolver %q", path, i, r)
		}
		if seen[r] {
			return fmt.Errorf("%s: resolvers[%d]: duplicate resolver %q", path, i, r)
		}
		seen[r] = true
	}
	return nil
}

func isResolver(name string) bool {
	for _, r := range Resolvers {
		if r == name {
			return true
		}
	}
	return false
}

func (c *Config) setDefaults() {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Limits.FinalizeRounds == 0 {
		c.Limits.FinalizeRounds = FinalizeRoundsLimit
	}
	if c.Limits.SearchVars == 0 {
		c.Limits.SearchVars = SearchVarsLimit
	}
	if c.Limits.SearchCandidates == 0 {
		c.Limits.SearchCandidates = SearchCandidatesLimit
	}
	if c.Limits.SearchIterations == 0 {
		c.Limits.SearchIterations = SearchIterationsLimit
	}
	if c.Limits.UpdateDepth == 0 {
		c.Limits.UpdateDepth = UpdateDepthLimit
	}
}
