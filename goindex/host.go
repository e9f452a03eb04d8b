package goindex

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"

	"xrefgen/index"
	"xrefgen/xref"
)

// host receives the occurrences of one package's bodies and records them in
// the run's XRef. References to function-local entities are dropped unless
// locals are indexed. The traversal stops once ctx is done.
type host struct {
	ctx    context.Context
	x      *xref.XRef
	ents   *entities
	fset   *token.FileSet
	info   *types.Info
	pkg    string // relative package path
	locals bool
}

var _ index.Host = (*host)(nil)

func (h *host) HandleReference(occ index.Occurrence) bool {
	if h.locals || !isLocalEntity(occ.Entity) {
		h.add(occ.Entity, occ.Pos, occ.Parent, occ.Context, occ.Roles, occ.Relations, nodeKind(occ.Node))
	}
	return h.ctx.Err() == nil
}

// IndexTypeRef records the named types, package qualifiers and constants
// written in t. Names declared by the type syntax itself, such as fields and
// parameters, are skipped.
func (h *host) IndexTypeRef(t *index.TypeRef, parent, dc *index.Entity) {
	expr, ok := t.Syntax.(ast.Expr)
	if !ok {
		if t.Type != nil {
			h.add(t.Type, t.TypePos, parent, dc, 0, nil, "type_ref")
		}
		return
	}
	ast.Inspect(expr, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		var kind string
		switch h.info.Uses[id].(type) {
		case *types.TypeName:
			kind = "type_ref"
		case *types.PkgName:
			kind = "qualifier"
		case *types.Const:
			kind = "ref"
		default:
			return true
		}
		e := h.ents.get(h.info.Uses[id], parent)
		if e != nil && (h.locals || !isLocalEntity(e)) {
			h.add(e, id.Pos(), parent, dc, 0, nil, kind)
		}
		return true
	})
}

func (h *host) IndexQualifier(q *index.Qualifier, parent, dc *index.Entity) {
	if q.Scope == nil {
		return
	}
	h.add(q.Scope, q.ScopePos, parent, dc, 0, nil, "qualifier")
}

// IndexTopLevelDecl records a declaration that is visible outside the body
// it appears in.
func (h *host) IndexTopLevelDecl(d *index.Decl) {
	h.addEntity(d.Entity)
}

// IndexDeclGroup records each local declaration of a group together with an
// occurrence at its name.
func (h *host) IndexDeclGroup(decls []*index.Decl, parent, dc *index.Entity) {
	for _, d := range decls {
		if d == nil || d.Entity == nil {
			continue
		}
		h.add(d.Entity, d.NamePos, parent, dc, 0, nil, "decl")
	}
}

func (h *host) IsFunctionLocalDecl(d *index.Decl) bool {
	return isLocalEntity(d.Entity)
}

func (h *host) addEntity(e *index.Entity) {
	if e == nil || h.x.HasEntity(e.ID) {
		return
	}
	h.x.AddEntity(h.ents.record(e))
}

func (h *host) add(e *index.Entity, pos token.Pos, parent, dc *index.Entity, roles index.Role, rels []index.Relation, kind string) {
	h.addEntity(e)
	p := h.fset.Position(pos)
	o := xref.Occurrence{
		Entity:  e.ID,
		File:    h.ents.file(p.Filename),
		Line:    p.Line,
		Col:     p.Column,
		Package: h.pkg,
		Parent:  idOf(parent),
		Context: idOf(dc),
		Roles:   roles,
		Kind:    kind,
	}
	for _, r := range rels {
		if r.Target == nil {
			continue
		}
		h.addEntity(r.Target)
		o.Relations = append(o.Relations, xref.Relation{Kind: r.Kind.String(), Target: r.Target.ID})
	}
	if !h.x.AddOccurrence(o) {
		return
	}
	occurrencesRecorded.WithLabelValues(kind).Inc()
	for _, name := range roles.Names() {
		rolesRecorded.WithLabelValues(name).Inc()
	}
}

func idOf(e *index.Entity) string {
	if e == nil {
		return ""
	}
	return e.ID
}

// nodeKind names the syntactic form an occurrence was found in.
func nodeKind(n index.Node) string {
	switch n.(type) {
	case *index.Member:
		return "member"
	case *index.Closure:
		return "capture"
	case *index.DesignatedInit:
		return "designator"
	}
	return "ref"
}
