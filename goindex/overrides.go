package goindex

import (
	"go/types"

	"golang.org/x/tools/go/packages"

	"xrefgen/index"
	"xrefgen/xref"
)

// recordOverrides connects every method of a concrete named type of pkgs to
// the interface methods it satisfies, for the non-empty interfaces declared
// in pkgs. It returns the number of pairs recorded.
func (d *Driver) recordOverrides(pkgs []*packages.Package) int {
	var concretes, ifaces []*types.TypeName
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			obj, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || obj.IsAlias() {
				continue
			}
			named, ok := obj.Type().(*types.Named)
			if !ok || named.TypeParams().Len() > 0 {
				continue // generic types only satisfy interfaces once instantiated
			}
			if iface, ok := named.Underlying().(*types.Interface); ok {
				if iface.NumMethods() > 0 {
					ifaces = append(ifaces, obj)
				}
				continue
			}
			concretes = append(concretes, obj)
		}
	}

	var count int
	for _, c := range concretes {
		// Build method set for both T and *T.
		msets := []*types.MethodSet{
			types.NewMethodSet(c.Type()),
			types.NewMethodSet(types.NewPointer(c.Type())),
		}
		for _, i := range ifaces {
			iface := i.Type().Underlying().(*types.Interface)
			if !types.Implements(c.Type(), iface) && !types.Implements(types.NewPointer(c.Type()), iface) {
				continue
			}
			count += d.recordSatisfied(c, i, iface, msets)
		}
	}
	return count
}

// recordSatisfied records the methods declared on c that implement iface.
// Promoted methods are left to the embedded type that declares them.
func (d *Driver) recordSatisfied(c, i *types.TypeName, iface *types.Interface, msets []*types.MethodSet) int {
	var count int
	for k := 0; k < iface.NumMethods(); k++ {
		m := iface.Method(k)
		for _, mset := range msets {
			sel := mset.Lookup(m.Pkg(), m.Name())
			if sel == nil {
				continue
			}
			if len(sel.Index()) == 1 {
				method := d.ents.get(sel.Obj(), nil)
				overridden := d.ents.get(m, nil)
				typ, ifc := d.ents.get(c, nil), d.ents.get(i, nil)
				for _, e := range []*index.Entity{method, overridden, typ, ifc} {
					if e != nil && !d.x.HasEntity(e.ID) {
						d.x.AddEntity(d.ents.record(e))
					}
				}
				if method != nil && overridden != nil {
					if d.x.AddOverride(xref.Override{
						Method:     method.ID,
						Overridden: overridden.ID,
						Type:       typ.ID,
						Interface:  ifc.ID,
					}) {
						count++
					}
				}
			}
			break // T's method set is contained in *T's
		}
	}
	return count
}
