package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
		},
		{
			name:    "negative workers",
			modify:  func(c *Config) { c.Workers = -1 },
			wantErr: "workers",
		},
		{
			name:    "bad glob",
			modify:  func(c *Config) { c.Skip = []string{"gen/[a-"} },
			wantErr: "invalid pattern",
		},
		{
			name: "module without name",
			modify: func(c *Config) {
				c.Modules = []Module{{Dir: "../lib", Path: "example.com/lib"}}
			},
			wantErr: "name is required",
		},
		{
			name: "duplicate module name",
			modify: func(c *Config) {
				c.Modules = []Module{
					{Dir: "../a", Path: "example.com/a", Name: "lib"},
					{Dir: "../b", Path: "example.com/b", Name: "lib"},
				}
			},
			wantErr: "duplicate name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xrefgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modules:
  - dir: ../client
    path: example.com/client
    name: client
skip:
  - "internal/gen/**"
index_function_locals: true
workers: 4
output: out.db
server:
  addr: ":9090"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []Module{{Dir: "../client", Path: "example.com/client", Name: "client"}}, cfg.Modules)
	assert.True(t, cfg.IndexFunctionLocals)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "out.db", cfg.Output)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Sources, "unset keys keep their defaults")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_ShouldSkip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Skip = append(cfg.Skip, "internal/gen/**")

	for file, want := range map[string]bool{
		"main.go":                   false,
		"main_test.go":              true,
		"pkg/api/api_test.go":       true,
		"pkg/api/api.pb.go":         true,
		"internal/gen/types.go":     true,
		"internal/general/types.go": false,
	} {
		assert.Equal(t, want, cfg.ShouldSkip(file), file)
	}
}

func TestParseModules(t *testing.T) {
	mods, err := parseModules("../a:example.com/a:a, ../b:example.com/b:b")
	require.NoError(t, err)
	assert.Equal(t, []Module{
		{Dir: "../a", Path: "example.com/a", Name: "a"},
		{Dir: "../b", Path: "example.com/b", Name: "b"},
	}, mods)

	_, err = parseModules("../a:example.com/a")
	assert.Error(t, err)
}
