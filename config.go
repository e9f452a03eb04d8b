package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config is the xrefgen configuration, read from xrefgen.yaml and
// overridden by command-line flags.
type Config struct {
	// Modules are indexed alongside the primary module, in one type universe.
	Modules []Module `yaml:"modules"`
	// Skip holds doublestar globs matched against module-relative file names.
	Skip []string `yaml:"skip"`
	// Tests loads test packages too. Test files still need to pass Skip.
	Tests bool `yaml:"tests"`

	IndexFunctionLocals bool `yaml:"index_function_locals"`
	CheckInvariants     bool `yaml:"check_invariants"`
	// Workers bounds the packages indexed at once; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// Output is the database written by the index command.
	Output     string `yaml:"output"`
	Sources    bool   `yaml:"sources"`
	ValidateDB bool   `yaml:"validate"`

	Server ServerConfig `yaml:"server"`
}

// ServerConfig configures the query server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Skip:    []string{"**/*_test.go", "**/*.pb.go"},
		Output:  "xref.db",
		Sources: true,
		Server:  ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	for _, p := range c.Skip {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("skip: invalid pattern %q", p)
		}
	}
	names := make(map[string]bool, len(c.Modules))
	for i, m := range c.Modules {
		switch {
		case m.Dir == "":
			return fmt.Errorf("modules[%d]: dir is required", i)
		case m.Path == "":
			return fmt.Errorf("modules[%d]: path is required", i)
		case m.Name == "":
			return fmt.Errorf("modules[%d]: name is required", i)
		case names[m.Name]:
			return fmt.Errorf("modules[%d]: duplicate name %q", i, m.Name)
		}
		names[m.Name] = true
	}
	return nil
}

// ShouldSkip reports whether a module-relative file matches a skip glob.
func (c *Config) ShouldSkip(relFile string) bool {
	for _, p := range c.Skip {
		if ok, _ := doublestar.Match(p, relFile); ok {
			return true
		}
	}
	return false
}
