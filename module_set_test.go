package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModuleSet() *ModuleSet {
	return NewModuleSet(
		Module{Dir: "/src/app", Path: "example.com/app"},
		[]Module{
			{Dir: "/src/app/tools", Path: "example.com/app/tools", Name: "tools"},
			{Dir: "/src/client", Path: "example.com/client", Name: "client"},
		},
	)
}

func TestModuleSet_RelPkg(t *testing.T) {
	ms := testModuleSet()
	for in, want := range map[string]string{
		"example.com/app":              "main",
		"example.com/app/internal/db":  "internal/db",
		"example.com/app/tools":        "tools",
		"example.com/app/tools/lint":   "tools/lint",
		"example.com/client/api":       "client/api",
		"golang.org/x/tools/go/ast":    "golang.org/x/tools/go/ast",
		"example.com/application/web":  "example.com/application/web",
	} {
		assert.Equal(t, want, ms.RelPkg(in), in)
	}
}

func TestModuleSet_RelFile(t *testing.T) {
	ms := testModuleSet()
	assert.Equal(t, "internal/db/db.go", ms.RelFile("/src/app/internal/db/db.go"))
	assert.Equal(t, "tools/lint/main.go", ms.RelFile("/src/app/tools/lint/main.go"))
	assert.Equal(t, "client/api.go", ms.RelFile("/src/client/api.go"))
	assert.Equal(t, "", ms.RelFile("/usr/lib/go/src/fmt/print.go"))
}

func TestModuleSet_Contains(t *testing.T) {
	ms := testModuleSet()
	assert.True(t, ms.Contains("example.com/app"))
	assert.True(t, ms.Contains("example.com/client/api"))
	assert.False(t, ms.Contains("example.com/application"))
	assert.Equal(t, []string{"example.com/app/...", "example.com/app/tools/...", "example.com/client/..."}, ms.LoadPatterns())
}

func TestCreateTempGoWork(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("go.mod", "module example.com/app\n")
	write("tools/go.mod", "module example.com/app/tools\n")
	write("vendor/x/go.mod", "module example.com/x\n")
	write(".hidden/go.mod", "module example.com/hidden\n")

	ms := NewModuleSet(Module{Dir: root, Path: "example.com/app"}, nil)
	path, err := CreateTempGoWork(ms)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	work := string(data)
	assert.True(t, strings.HasPrefix(work, "go 1.25\n"))
	assert.Contains(t, work, "\t"+root+"\n")
	assert.Contains(t, work, "\t"+filepath.Join(root, "tools")+"\n")
	assert.NotContains(t, work, "vendor")
	assert.NotContains(t, work, ".hidden")
	assert.Equal(t, "example.com/app/tools", readModulePath(filepath.Join(root, "tools")))
}

func TestReplaceEnv(t *testing.T) {
	env := replaceEnv([]string{"HOME=/root", "GOWORK=off", "PATH=/bin"}, "GOWORK", "/tmp/x.work")
	assert.Equal(t, []string{"HOME=/root", "PATH=/bin", "GOWORK=/tmp/x.work"}, env)
}
