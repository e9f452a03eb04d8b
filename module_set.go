package main

import (
	"path/filepath"
	"strings"
)

// Module is one Go module whose packages are indexed.
type Module struct {
	Dir  string `yaml:"dir"`  // absolute path to the module root
	Path string `yaml:"path"` // module path, e.g. "github.com/acme/tool"
	Name string `yaml:"name"` // ID prefix; empty for the primary module
}

// ModuleSet resolves import paths and file names against the modules of a
// run. It implements goindex.Paths.
type ModuleSet struct {
	modules []Module
}

// NewModuleSet builds a set whose first module is primary.
func NewModuleSet(primary Module, extras []Module) *ModuleSet {
	ms := &ModuleSet{modules: make([]Module, 0, 1+len(extras))}
	ms.modules = append(ms.modules, primary)
	ms.modules = append(ms.modules, extras...)
	return ms
}

// Contains reports whether pkgPath belongs to a module of the set.
func (ms *ModuleSet) Contains(pkgPath string) bool {
	for _, m := range ms.modules {
		if pkgPath == m.Path || strings.HasPrefix(pkgPath, m.Path+"/") {
			return true
		}
	}
	return false
}

// RelPkg strips the module path from an import path and prepends the
// module's name. The root package of the primary module is "main". Nested
// modules win over the modules containing them. Paths outside the set are
// returned unchanged.
func (ms *ModuleSet) RelPkg(pkgPath string) string {
	best, bestLen := pkgPath, -1
	for _, m := range ms.modules {
		if len(m.Path) <= bestLen {
			continue
		}
		if pkgPath == m.Path {
			best, bestLen = m.Name, len(m.Path)
			if best == "" {
				best = "main"
			}
		} else if rel, ok := strings.CutPrefix(pkgPath, m.Path+"/"); ok {
			best, bestLen = join(m.Name, rel), len(m.Path)
		}
	}
	return best
}

// RelFile converts an absolute file name to a module-relative one prefixed
// by the module's name. It returns "" for files outside every module.
func (ms *ModuleSet) RelFile(absPath string) string {
	var best string
	bestLen := -1
	for _, m := range ms.modules {
		rel, err := filepath.Rel(m.Dir, absPath)
		if err != nil || strings.HasPrefix(rel, "..") || len(m.Dir) <= bestLen {
			continue
		}
		best, bestLen = join(m.Name, filepath.ToSlash(rel)), len(m.Dir)
	}
	return best
}

func join(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}

// PrimaryDir returns the directory of the primary module.
func (ms *ModuleSet) PrimaryDir() string {
	return ms.modules[0].Dir
}

// Modules returns the modules of the set, primary first.
func (ms *ModuleSet) Modules() []Module {
	return ms.modules
}

// LoadPatterns returns one "path/..." pattern per module.
func (ms *ModuleSet) LoadPatterns() []string {
	patterns := make([]string, len(ms.modules))
	for i, m := range ms.modules {
		patterns[i] = m.Path + "/..."
	}
	return patterns
}

// Names lists the module names for log output.
func (ms *ModuleSet) Names() string {
	names := make([]string, len(ms.modules))
	for i, m := range ms.modules {
		names[i] = m.Name
		if m.Name == "" {
			names[i] = m.Path + " (primary)"
		}
	}
	return strings.Join(names, ", ")
}
