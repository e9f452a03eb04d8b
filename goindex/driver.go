package goindex

import (
	"context"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"

	"xrefgen/index"
	"xrefgen/xref"
)

// Config controls a Driver.
type Config struct {
	Paths Paths
	Fset  *token.FileSet

	// IndexFunctionLocals records references to locals, parameters and
	// closure captures as well.
	IndexFunctionLocals bool
	CheckInvariants     bool

	// Workers bounds the packages indexed at once; 0 means GOMAXPROCS.
	Workers int
	// Skip reports whether a module-relative file is left out.
	Skip func(relFile string) bool
	// ReadSources stores the content of every indexed file.
	ReadSources bool

	Logger *slog.Logger
}

// Summary counts what a run indexed.
type Summary struct {
	Packages  int
	Files     int
	Bodies    int
	Overrides int
}

// Driver indexes the bodies of loaded packages into an XRef.
type Driver struct {
	cfg  Config
	x    *xref.XRef
	ents *entities
	log  *slog.Logger
}

// NewDriver returns a driver recording into x.
func NewDriver(cfg Config, x *xref.XRef) *Driver {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Driver{
		cfg:  cfg,
		x:    x,
		ents: newEntities(cfg.Paths, cfg.Fset),
		log:  log,
	}
}

type counters struct {
	packages, files, bodies atomic.Int64
}

// Run indexes every function body and package-level initializer of pkgs,
// then records the override graph and computes function stats. Packages are
// indexed concurrently; ctx is checked between bodies.
func (d *Driver) Run(ctx context.Context, pkgs []*packages.Package) (Summary, error) {
	for _, pkg := range pkgs {
		d.ents.register(pkg.Types)
	}

	workers := d.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var c counters
	for _, pkg := range pkgs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return d.indexPackage(gctx, pkg, &c)
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Packages: int(c.packages.Load()),
		Files:    int(c.files.Load()),
		Bodies:   int(c.bodies.Load()),
	}
	sum.Overrides = d.recordOverrides(pkgs)
	d.x.ComputeStats()
	d.x.Sort()
	d.log.Debug("indexed packages", "packages", sum.Packages, "files", sum.Files, "bodies", sum.Bodies, "overrides", sum.Overrides)
	return sum, nil
}

func (d *Driver) indexPackage(ctx context.Context, pkg *packages.Package, c *counters) error {
	if pkg.Types == nil || pkg.TypesInfo == nil {
		d.log.Debug("skipping package without type information", "package", pkg.PkgPath)
		return nil
	}
	relPkg := d.cfg.Paths.RelPkg(pkg.PkgPath)
	pkgEnt := d.ents.pkg(pkg.Types)
	d.x.AddEntity(d.ents.record(pkgEnt))

	h := &host{
		ctx:    ctx,
		x:      d.x,
		ents:   d.ents,
		fset:   d.cfg.Fset,
		info:   pkg.TypesInfo,
		pkg:    relPkg,
		locals: d.cfg.IndexFunctionLocals,
	}
	ix := index.New(h, index.Options{
		IndexFunctionLocals: d.cfg.IndexFunctionLocals,
		CheckInvariants:     d.cfg.CheckInvariants,
	})

	for i, file := range pkg.Syntax {
		if i >= len(pkg.CompiledGoFiles) {
			continue
		}
		path := pkg.CompiledGoFiles[i]
		relFile := d.cfg.Paths.RelFile(path)
		if relFile == "" || (d.cfg.Skip != nil && d.cfg.Skip(relFile)) {
			continue
		}
		if d.cfg.ReadSources {
			if content, err := os.ReadFile(path); err == nil {
				d.x.AddSource(relFile, relPkg, string(content))
			} else {
				d.log.Debug("reading source", "file", path, "err", err)
			}
		}
		c.files.Add(1)

		for _, decl := range file.Decls {
			if err := ctx.Err(); err != nil {
				return err
			}
			var n int
			var err error
			switch decl := decl.(type) {
			case *ast.FuncDecl:
				n, err = d.indexFunc(ix, h, pkg.TypesInfo, decl)
			case *ast.GenDecl:
				n, err = d.indexGenDecl(ix, h, pkg.TypesInfo, pkgEnt, decl)
			}
			c.bodies.Add(int64(n))
			if err != nil {
				return fmt.Errorf("index %s: %w", relFile, err)
			}
		}
	}
	c.packages.Add(1)
	packagesIndexed.Inc()
	return nil
}

// indexBody indexes one lowered body and accounts for it.
func (d *Driver) indexBody(ix *index.Indexer, h *host, kind string, body index.Node, parent, dc *index.Entity) error {
	start := time.Now()
	ok := ix.IndexBody(body, parent, dc)
	bodyDuration.Observe(time.Since(start).Seconds())
	bodiesIndexed.WithLabelValues(kind).Inc()
	if !ok {
		bodiesStopped.Inc()
		return h.ctx.Err()
	}
	return nil
}

// indexFunc records a function or method declaration and indexes its body
// with the function itself as context.
func (d *Driver) indexFunc(ix *index.Indexer, h *host, info *types.Info, fd *ast.FuncDecl) (int, error) {
	obj, ok := info.Defs[fd.Name].(*types.Func)
	if !ok {
		return 0, nil
	}
	fn := d.ents.get(obj, nil)
	h.addEntity(fn)
	d.x.SetStats(funcStats(d.cfg.Fset, fn.ID, fd))

	l := &lowerer{info: info, ents: d.ents, fn: fn}
	if fd.Recv != nil {
		for _, f := range fd.Recv.List {
			if len(f.Names) > 0 {
				l.recv = info.Defs[f.Names[0]]
			}
			h.IndexTypeRef(l.typeRef(f.Type), fn, fn)
		}
	}
	h.IndexTypeRef(l.typeRef(fd.Type), fn, fn)

	if fd.Body == nil {
		return 0, nil
	}
	kind := "function"
	if fd.Recv != nil {
		kind = "method"
	}
	return 1, d.indexBody(ix, h, kind, l.block(fd.Body), fn, fn)
}

// indexGenDecl records package-level declarations. Initializers of variables
// and constants are indexed with the package as context, so calls in them
// relate to no caller. Type declarations contribute their type references.
func (d *Driver) indexGenDecl(ix *index.Indexer, h *host, info *types.Info, pkgEnt *index.Entity, gd *ast.GenDecl) (int, error) {
	var bodies int
	for _, spec := range gd.Specs {
		switch sp := spec.(type) {
		case *ast.ValueSpec:
			var first *index.Entity
			for _, name := range sp.Names {
				if name.Name == "_" {
					continue
				}
				if e := d.ents.get(info.Defs[name], nil); e != nil {
					h.addEntity(e)
					if first == nil {
						first = e
					}
				}
			}
			l := &lowerer{info: info, ents: d.ents, fn: first}
			body := &index.Compound{What: gd.Tok.String(), From: sp.Pos()}
			if t := l.typeRef(sp.Type); t != nil {
				body.List = append(body.List, t)
			}
			body.List = append(body.List, l.values(sp.Values)...)
			if len(body.List) == 0 {
				continue
			}
			bodies++
			if err := d.indexBody(ix, h, gd.Tok.String(), body, first, pkgEnt); err != nil {
				return bodies, err
			}

		case *ast.TypeSpec:
			e := d.ents.get(info.Defs[sp.Name], nil)
			if e == nil {
				continue
			}
			h.addEntity(e)
			l := &lowerer{info: info, ents: d.ents, fn: e}
			d.recordMembers(h, info, sp)
			h.IndexTypeRef(l.typeRef(sp.Type), e, pkgEnt)
		}
	}
	return bodies, nil
}

// recordMembers records the fields and interface methods declared by a type
// spec, so members are known even when nothing references them.
func (d *Driver) recordMembers(h *host, info *types.Info, sp *ast.TypeSpec) {
	var fields *ast.FieldList
	switch t := sp.Type.(type) {
	case *ast.StructType:
		fields = t.Fields
	case *ast.InterfaceType:
		fields = t.Methods
	default:
		return
	}
	for _, f := range fields.List {
		for _, name := range f.Names {
			h.addEntity(d.ents.get(info.Defs[name], nil))
		}
	}
}
