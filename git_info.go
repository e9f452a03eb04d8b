package main

import (
	"os/exec"
	"strings"
)

// GitRevision identifies the checked-out state of a module.
type GitRevision struct {
	Commit string // full SHA of HEAD
	Dirty  bool   // uncommitted changes to tracked files
}

// String returns the commit, suffixed with "+dirty" when the tree has
// uncommitted changes.
func (r GitRevision) String() string {
	if r.Dirty {
		return r.Commit + "+dirty"
	}
	return r.Commit
}

// gitRevision reads the revision of the repository containing dir. It
// reports false when dir is not inside a git work tree or git is missing.
func gitRevision(dir string) (GitRevision, bool) {
	commit, err := git(dir, "rev-parse", "HEAD")
	if err != nil || commit == "" {
		return GitRevision{}, false
	}
	status, err := git(dir, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return GitRevision{Commit: commit}, true
	}
	return GitRevision{Commit: commit, Dirty: status != ""}, true
}

func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// RunGitRevisions returns the meta entries naming the revision of every
// module of ms that lives in a git work tree: "git_commit" for the primary
// module and "git_commit.<name>" for the others.
func RunGitRevisions(ms *ModuleSet, prog *Progress) map[string]string {
	meta := make(map[string]string)
	for _, m := range ms.Modules() {
		rev, ok := gitRevision(m.Dir)
		if !ok {
			prog.Verbose("No git revision for %s", m.Dir)
			continue
		}
		key := "git_commit"
		if m.Name != "" {
			key += "." + m.Name
		}
		meta[key] = rev.String()
	}
	return meta
}
