package index

import (
	"go/token"
	"testing"
)

// recorder is a Host that keeps everything it is given.
type recorder struct {
	occs     []Occurrence
	types    []*TypeRef
	quals    []*Qualifier
	topDecls []*Decl
	groups   [][]*Decl
	locals   map[*Decl]bool

	stopAt int // stop after this many occurrences; 0 never stops
}

func (r *recorder) HandleReference(occ Occurrence) bool {
	r.occs = append(r.occs, occ)
	return r.stopAt == 0 || len(r.occs) < r.stopAt
}

func (r *recorder) IndexTypeRef(t *TypeRef, parent, dc *Entity) { r.types = append(r.types, t) }

func (r *recorder) IndexQualifier(q *Qualifier, parent, dc *Entity) {
	r.quals = append(r.quals, q)
}

func (r *recorder) IndexTopLevelDecl(d *Decl) { r.topDecls = append(r.topDecls, d) }

func (r *recorder) IndexDeclGroup(decls []*Decl, parent, dc *Entity) {
	r.groups = append(r.groups, decls)
}

func (r *recorder) IsFunctionLocalDecl(d *Decl) bool { return r.locals[d] }

// byName returns the occurrences of the entity called name.
func (r *recorder) byName(name string) []Occurrence {
	var out []Occurrence
	for _, o := range r.occs {
		if o.Entity.Name == name {
			out = append(out, o)
		}
	}
	return out
}

// names returns the entity names of the recorded occurrences in order.
func (r *recorder) names() []string {
	out := make([]string, len(r.occs))
	for i, o := range r.occs {
		out[i] = o.Entity.Name
	}
	return out
}

var (
	pkgEnt = &Entity{ID: "p", Name: "p", Kind: EntityPackage}
	fnEnt  = &Entity{ID: "p::run", Name: "run", Kind: EntityFunction, Context: pkgEnt}
)

func variable(name string) *Entity {
	return &Entity{ID: "p::" + name, Name: name, Kind: EntityVariable, Context: fnEnt}
}

func ref(e *Entity, pos int) *DeclRef {
	return &DeclRef{NamePos: token.Pos(pos), Decl: e}
}

func loadOf(x Node) *Cast {
	return &Cast{Implicit: true, Kind: CastLoad, X: x}
}

func run(t *testing.T, body Node, opts Options) *recorder {
	t.Helper()
	r := &recorder{}
	New(r, opts).IndexBody(body, fnEnt, fnEnt)
	return r
}
