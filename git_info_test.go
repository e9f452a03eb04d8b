package main

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietProgress() *Progress {
	return NewProgress(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGitRevision(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=x", "GIT_AUTHOR_EMAIL=x@example.com",
			"GIT_COMMITTER_NAME=x", "GIT_COMMITTER_EMAIL=x@example.com")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	_, ok := gitRevision(dir)
	assert.False(t, ok, "not a repository yet")

	file := filepath.Join(dir, "go.mod")
	require.NoError(t, os.WriteFile(file, []byte("module example.com/app\n"), 0o644))
	run("init", "-q")
	run("add", "go.mod")
	run("commit", "-q", "-m", "init")

	rev, ok := gitRevision(dir)
	require.True(t, ok)
	assert.Len(t, rev.Commit, 40)
	assert.False(t, rev.Dirty)

	require.NoError(t, os.WriteFile(file, []byte("module example.com/app2\n"), 0o644))
	rev, ok = gitRevision(dir)
	require.True(t, ok)
	assert.True(t, rev.Dirty)
	assert.Equal(t, rev.Commit+"+dirty", rev.String())

	ms := NewModuleSet(Module{Dir: dir, Path: "example.com/app"}, []Module{{Dir: t.TempDir(), Path: "example.com/lib", Name: "lib"}})
	meta := RunGitRevisions(ms, quietProgress())
	assert.Equal(t, map[string]string{"git_commit": rev.String()}, meta)
}
