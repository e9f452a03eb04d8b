package goindex

import (
	"go/token"
	"go/types"
	"sync"

	"xrefgen/index"
	"xrefgen/xref"
)

// Paths maps import paths and file names to the module-relative forms used
// in IDs.
type Paths interface {
	RelPkg(pkgPath string) string
	RelFile(absPath string) string
}

// entities hands out one *index.Entity per declared object. The table is
// shared by all packages of a run.
type entities struct {
	paths Paths
	fset  *token.FileSet

	mu     sync.Mutex
	byObj  map[types.Object]*index.Entity
	byPkg  map[*types.Package]*index.Entity
	owners map[*types.Var]string // field → name of the struct type declaring it
}

func newEntities(paths Paths, fset *token.FileSet) *entities {
	return &entities{
		paths:  paths,
		fset:   fset,
		byObj:  make(map[types.Object]*index.Entity),
		byPkg:  make(map[*types.Package]*index.Entity),
		owners: make(map[*types.Var]string),
	}
}

// register records the owners of the fields of pkg's named struct types, so
// their IDs can use the type name.
func (es *entities) register(pkg *types.Package) {
	if pkg == nil {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		st, ok := tn.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}
		for f := range st.Fields() {
			es.owners[f] = tn.Name()
		}
	}
}

// pkg returns the entity of package p.
func (es *entities) pkg(p *types.Package) *index.Entity {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.pkgLocked(p)
}

func (es *entities) pkgLocked(p *types.Package) *index.Entity {
	if p == nil {
		return nil
	}
	if e, ok := es.byPkg[p]; ok {
		return e
	}
	e := &index.Entity{
		ID:     PkgID(es.paths.RelPkg(p.Path())),
		Name:   p.Name(),
		Kind:   index.EntityPackage,
		Object: p,
	}
	es.byPkg[p] = e
	return e
}

// get returns the entity of obj, creating it on first use. fn becomes the
// context of function-local objects. Universe objects, labels and nil have
// no entity.
func (es *entities) get(obj types.Object, fn *index.Entity) *index.Entity {
	switch o := obj.(type) {
	case nil, *types.Builtin, *types.Nil, *types.Label:
		return nil
	case *types.PkgName:
		return es.pkg(o.Imported())
	case *types.Func:
		obj = o.Origin()
	case *types.Var:
		obj = o.Origin()
	}
	if obj.Pkg() == nil {
		return nil
	}

	es.mu.Lock()
	defer es.mu.Unlock()
	if e, ok := es.byObj[obj]; ok {
		return e
	}
	e := &index.Entity{
		ID:      es.id(obj),
		Name:    obj.Name(),
		Kind:    kindOf(obj),
		Virtual: isInterfaceMethod(obj),
		Object:  obj,
	}
	if isLocal(obj) {
		e.Context = fn
	} else {
		e.Context = es.pkgLocked(obj.Pkg())
	}
	es.byObj[obj] = e
	return e
}

func (es *entities) id(obj types.Object) string {
	pkg := es.paths.RelPkg(obj.Pkg().Path())
	switch o := obj.(type) {
	case *types.Func:
		if sig, ok := o.Type().(*types.Signature); ok && sig.Recv() != nil {
			tn := recvType(sig)
			if tn != nil && tn.Pkg() != nil && tn.Parent() == tn.Pkg().Scope() {
				return GlobalID(pkg, tn.Name(), o.Name())
			}
			// Methods of unnamed or function-local types.
			name := o.Name()
			if tn != nil {
				name = tn.Name() + "." + name
			}
			pos := es.fset.Position(o.Pos())
			return LocalID(pkg, name, es.file(pos.Filename), pos.Line, pos.Column)
		}
		if o.Name() != "init" {
			return GlobalID(pkg, "", o.Name())
		}
	case *types.Var:
		if owner, ok := es.owners[o]; ok {
			return GlobalID(pkg, owner, o.Name())
		}
	}
	if !isLocal(obj) && obj.Parent() == obj.Pkg().Scope() {
		return GlobalID(pkg, "", obj.Name())
	}
	pos := es.fset.Position(obj.Pos())
	return LocalID(pkg, obj.Name(), es.file(pos.Filename), pos.Line, pos.Column)
}

// file returns the module-relative name of a file, or its base name when it
// lies outside every module.
func (es *entities) file(name string) string {
	if rel := es.paths.RelFile(name); rel != "" {
		return rel
	}
	return BaseName(name)
}

// record converts e into its database row.
func (es *entities) record(e *index.Entity) xref.Entity {
	r := xref.Entity{
		ID:      e.ID,
		Key:     Key(e.ID),
		Name:    e.Name,
		Kind:    e.Kind.String(),
		Virtual: e.Virtual,
	}
	switch o := e.Object.(type) {
	case *types.Package:
		r.Package = es.paths.RelPkg(o.Path())
	case types.Object:
		if o.Pkg() != nil {
			r.Package = es.paths.RelPkg(o.Pkg().Path())
		}
		r.Exported = o.Exported()
		r.Local = isLocal(o)
		if p := es.fset.Position(o.Pos()); p.IsValid() {
			r.File = es.paths.RelFile(p.Filename)
			r.Line, r.Col = p.Line, p.Column
		}
	}
	return r
}

func kindOf(obj types.Object) index.EntityKind {
	switch o := obj.(type) {
	case *types.Func:
		if sig, ok := o.Type().(*types.Signature); ok && sig.Recv() != nil {
			return index.EntityMethod
		}
		return index.EntityFunction
	case *types.Var:
		if o.IsField() {
			return index.EntityField
		}
		switch o.Kind() {
		case types.ParamVar, types.RecvVar, types.ResultVar:
			return index.EntityParam
		}
		return index.EntityVariable
	case *types.Const:
		return index.EntityConstant
	case *types.TypeName:
		if _, ok := o.Type().(*types.TypeParam); ok {
			return index.EntityType
		}
		if types.IsInterface(o.Type()) {
			return index.EntityInterface
		}
		return index.EntityType
	}
	return index.EntityUnknown
}

// isLocal reports whether obj is declared inside a function. Fields and
// methods belong to their type and are never local.
func isLocal(obj types.Object) bool {
	switch o := obj.(type) {
	case *types.Var:
		if o.IsField() {
			return false
		}
	case *types.Func, *types.PkgName:
		return false
	}
	if obj.Pkg() == nil || obj.Parent() == nil {
		return false
	}
	return obj.Parent() != obj.Pkg().Scope()
}

func isLocalEntity(e *index.Entity) bool {
	if e == nil {
		return false
	}
	obj, ok := e.Object.(types.Object)
	return ok && isLocal(obj)
}

// isInterfaceMethod reports whether obj is a method of an interface, and
// thus dispatched on the dynamic type of its receiver.
func isInterfaceMethod(obj types.Object) bool {
	f, ok := obj.(*types.Func)
	if !ok {
		return false
	}
	sig, ok := f.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return false
	}
	return types.IsInterface(sig.Recv().Type())
}

// recvType returns the named type a method is declared on, or nil for
// methods of unnamed interfaces.
func recvType(sig *types.Signature) *types.TypeName {
	if n, ok := deref(sig.Recv().Type()).(*types.Named); ok {
		return n.Origin().Obj()
	}
	return nil
}

// deref strips aliases and one level of pointer from t.
func deref(t types.Type) types.Type {
	t = types.Unalias(t)
	if p, ok := t.(*types.Pointer); ok {
		return types.Unalias(p.Elem())
	}
	return t
}
