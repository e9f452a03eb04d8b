package main

import (
	"bufio"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

// LoadResult holds the type-checked packages of a run.
type LoadResult struct {
	Packages []*packages.Package
	Fset     *token.FileSet
}

// readModulePath returns the module path declared in dir/go.mod, or "".
func readModulePath(dir string) string {
	f, err := os.Open(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`)
		}
	}
	return ""
}

// CreateTempGoWork writes a go.work file using every module of ms and the
// modules nested inside them, so all packages share one type universe. A
// nested module whose path is already in use is left out. The caller removes
// the returned file.
func CreateTempGoWork(ms *ModuleSet) (string, error) {
	var buf strings.Builder
	buf.WriteString("go 1.25\n\nuse (\n")

	seenDirs := make(map[string]bool)
	seenPaths := make(map[string]bool)
	use := func(dir, modPath string) {
		buf.WriteString("\t" + dir + "\n")
		seenDirs[dir] = true
		if modPath != "" {
			seenPaths[modPath] = true
		}
	}

	for _, m := range ms.Modules() {
		use(m.Dir, m.Path)
	}
	for _, m := range ms.Modules() {
		for _, d := range findSubModules(m.Dir) {
			modPath := readModulePath(d)
			if seenDirs[d] || (modPath != "" && seenPaths[modPath]) {
				continue
			}
			use(d, modPath)
		}
	}
	buf.WriteString(")\n")

	f, err := os.CreateTemp("", "xrefgen-*.work")
	if err != nil {
		return "", fmt.Errorf("create temp go.work: %w", err)
	}
	if _, err := f.WriteString(buf.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write go.work: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// findSubModules returns the directories below dir holding a go.mod.
// Vendor and hidden directories are not searched.
func findSubModules(dir string) []string {
	var dirs []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			base := d.Name()
			if path != dir && (base == "vendor" || strings.HasPrefix(base, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "go.mod" && filepath.Dir(path) != dir {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	return dirs
}

// LoadPackages loads and type-checks the packages of every module of ms
// through the workspace file goworkPath. Packages of other modules are
// dropped; packages with type errors are kept.
func LoadPackages(ms *ModuleSet, goworkPath string, tests bool, prog *Progress) (*LoadResult, error) {
	prog.Log("Loading packages via workspace (%d modules)...", len(ms.Modules()))

	fset := token.NewFileSet()
	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedDeps |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo |
			packages.NeedTypesSizes,
		Dir:   ms.PrimaryDir(),
		Fset:  fset,
		Tests: tests,
		Env:   replaceEnv(os.Environ(), "GOWORK", goworkPath),
	}

	initial, err := packages.Load(cfg, ms.LoadPatterns()...)
	if err != nil {
		return nil, fmt.Errorf("packages.Load: %w", err)
	}

	filtered := make([]*packages.Package, 0, len(initial))
	var errCount int
	for _, pkg := range initial {
		if !ms.Contains(pkg.PkgPath) {
			continue
		}
		if len(pkg.Errors) > 0 {
			errCount++
			prog.Verbose("  warning: %s has %d errors: %v", pkg.PkgPath, len(pkg.Errors), pkg.Errors[0])
		}
		filtered = append(filtered, pkg)
	}

	prog.Log("Loaded %d packages", len(filtered))
	if errCount > 0 {
		prog.Log("  %d packages had type-check errors (continuing)", errCount)
	}
	return &LoadResult{Packages: filtered, Fset: fset}, nil
}

// replaceEnv returns a copy of environ with key set to val, dropping any
// earlier entry for key.
func replaceEnv(environ []string, key, val string) []string {
	prefix := key + "="
	result := make([]string, 0, len(environ)+1)
	for _, e := range environ {
		if !strings.HasPrefix(e, prefix) {
			result = append(result, e)
		}
	}
	return append(result, prefix+val)
}
