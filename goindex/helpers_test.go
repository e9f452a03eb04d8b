package goindex

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"xrefgen/index"
	"xrefgen/xref"
)

// identity maps package paths and file names to themselves.
type identity struct{}

func (identity) RelPkg(p string) string  { return p }
func (identity) RelFile(f string) string { return f }

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

// source is one single-file package to type-check.
type source struct {
	path, file, src string
}

// check parses and type-checks srcs in order. Each package may import the
// ones before it.
func check(t *testing.T, fset *token.FileSet, srcs ...source) []*packages.Package {
	t.Helper()
	done := make(map[string]*types.Package)
	var pkgs []*packages.Package
	for _, s := range srcs {
		f, err := parser.ParseFile(fset, s.file, s.src, parser.SkipObjectResolution)
		require.NoError(t, err)
		info := &types.Info{
			Types:      make(map[ast.Expr]types.TypeAndValue),
			Defs:       make(map[*ast.Ident]types.Object),
			Uses:       make(map[*ast.Ident]types.Object),
			Implicits:  make(map[ast.Node]types.Object),
			Selections: make(map[*ast.SelectorExpr]*types.Selection),
			Instances:  make(map[*ast.Ident]types.Instance),
		}
		conf := types.Config{Importer: importerFunc(func(path string) (*types.Package, error) {
			p, ok := done[path]
			require.True(t, ok, "unknown import %q", path)
			return p, nil
		})}
		tpkg, err := conf.Check(s.path, fset, []*ast.File{f}, info)
		require.NoError(t, err)
		done[s.path] = tpkg
		pkgs = append(pkgs, &packages.Package{
			ID:              s.path,
			Name:            tpkg.Name(),
			PkgPath:         s.path,
			Types:           tpkg,
			TypesInfo:       info,
			Syntax:          []*ast.File{f},
			CompiledGoFiles: []string{s.file},
			Fset:            fset,
		})
	}
	return pkgs
}

// run indexes src as package p into a fresh XRef.
func run(t *testing.T, locals bool, srcs ...source) *xref.XRef {
	t.Helper()
	fset := token.NewFileSet()
	pkgs := check(t, fset, srcs...)
	x := xref.New()
	d := NewDriver(Config{
		Paths:               identity{},
		Fset:                fset,
		IndexFunctionLocals: locals,
		CheckInvariants:     true,
		Workers:             2,
	}, x)
	_, err := d.Run(context.Background(), pkgs)
	require.NoError(t, err)
	return x
}

func pkgP(src string) source { return source{path: "p", file: "a.go", src: src} }

// occs returns the occurrences of the entity with the given ID.
func occs(x *xref.XRef, id string) []xref.Occurrence {
	var out []xref.Occurrence
	for _, o := range x.Occurrences {
		if o.Entity == id {
			out = append(out, o)
		}
	}
	return out
}

// onLine returns the occurrences of id on line, in column order.
func onLine(x *xref.XRef, id string, line int) []xref.Occurrence {
	var out []xref.Occurrence
	for _, o := range occs(x, id) {
		if o.Line == line {
			out = append(out, o)
		}
	}
	return out
}

// recorder is an index.Host that keeps the occurrences in report order.
type recorder struct {
	occs []index.Occurrence
}

func (r *recorder) HandleReference(occ index.Occurrence) bool {
	r.occs = append(r.occs, occ)
	return true
}
func (r *recorder) IndexTypeRef(*index.TypeRef, *index.Entity, *index.Entity)     {}
func (r *recorder) IndexQualifier(*index.Qualifier, *index.Entity, *index.Entity) {}
func (r *recorder) IndexTopLevelDecl(*index.Decl)                                 {}
func (r *recorder) IndexDeclGroup([]*index.Decl, *index.Entity, *index.Entity)    {}
func (r *recorder) IsFunctionLocalDecl(d *index.Decl) bool                        { return isLocalEntity(d.Entity) }

func (r *recorder) names() []string {
	out := make([]string, len(r.occs))
	for i, o := range r.occs {
		out[i] = o.Entity.Name
	}
	return out
}

// lowerFunc lowers the body of the function called name in src (package p)
// and indexes it into a recorder.
func lowerFunc(t *testing.T, src, name string) *recorder {
	t.Helper()
	fset := token.NewFileSet()
	pkg := check(t, fset, pkgP(src))[0]
	ents := newEntities(identity{}, fset)
	ents.register(pkg.Types)
	for _, decl := range pkg.Syntax[0].Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name.Name != name {
			continue
		}
		fn := ents.get(pkg.TypesInfo.Defs[fd.Name], nil)
		l := &lowerer{info: pkg.TypesInfo, ents: ents, fn: fn}
		if fd.Recv != nil && len(fd.Recv.List[0].Names) > 0 {
			l.recv = pkg.TypesInfo.Defs[fd.Recv.List[0].Names[0]]
		}
		r := &recorder{}
		index.New(r, index.Options{IndexFunctionLocals: true, CheckInvariants: true}).
			IndexBody(l.block(fd.Body), fn, fn)
		return r
	}
	t.Fatalf("no function %s", name)
	return nil
}
