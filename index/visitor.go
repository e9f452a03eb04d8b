package index

import (
	"fmt"
	"go/token"
)

// Host receives what the indexer finds in a body and answers the
// declaration-level questions the indexer cannot decide itself.
type Host interface {
	// HandleReference is called once per occurrence, in source order.
	// Returning false stops the traversal.
	HandleReference(occ Occurrence) bool

	// IndexTypeRef and IndexQualifier receive written types and scope
	// qualifiers whole; the indexer does not look inside them.
	IndexTypeRef(t *TypeRef, parent, dc *Entity)
	IndexQualifier(q *Qualifier, parent, dc *Entity)

	// IndexTopLevelDecl indexes a declaration that is not function-local.
	IndexTopLevelDecl(d *Decl)
	// IndexDeclGroup indexes a whole local declaration group.
	IndexDeclGroup(decls []*Decl, parent, dc *Entity)
	IsFunctionLocalDecl(d *Decl) bool
}

// Options is the indexing policy for a traversal. It is fixed when the
// Indexer is created.
type Options struct {
	// IndexFunctionLocals enables references to and declarations of
	// function-local symbols, closure captures included.
	IndexFunctionLocals bool
	// CheckInvariants re-validates the ancestor path at every node and
	// panics when it is inconsistent.
	CheckInvariants bool
}

// Indexer classifies the occurrences in bodies and reports them to a Host.
// An Indexer holds no per-body state; one may index several bodies, from
// several goroutines, as long as the Host allows it.
type Indexer struct {
	host Host
	opts Options
}

// New returns an Indexer reporting to host.
func New(host Host, opts Options) *Indexer {
	return &Indexer{host: host, opts: opts}
}

// Options returns the policy the indexer was created with.
func (ix *Indexer) Options() Options { return ix.opts }

// IndexBody traverses body, whose enclosing declaration is parent and whose
// declaration context is dc. A nil dc defaults to parent's lexical context.
// It returns false if the host stopped the traversal. A nil body is a no-op.
func (ix *Indexer) IndexBody(body Node, parent, dc *Entity) bool {
	if isNil(body) {
		return true
	}
	if dc == nil && parent != nil {
		dc = parent.Context
	}
	w := &walker{host: ix.host, opts: ix.opts, parent: parent, dc: dc}
	return w.walk(nil, body)
}

// walker is the state of one body traversal.
type walker struct {
	host   Host
	opts   Options
	parent *Entity
	dc     *Entity
}

// walk visits n, whose ancestors are up, and then its children. It returns
// false once the host has asked to stop.
func (w *walker) walk(up *Path, n Node) bool {
	if isNil(n) {
		return true
	}
	switch n := n.(type) {
	case *TypeRef:
		w.host.IndexTypeRef(n, w.parent, w.dc)
		return true
	case *Qualifier:
		w.host.IndexQualifier(n, w.parent, w.dc)
		return true
	case *OperatorCall:
		if !n.OpPos.IsValid() {
			return true // implicit
		}
	}

	p := up.Push(n)
	if w.opts.CheckInvariants {
		checkPath(p, up, n)
	}
	return w.walkNode(p)
}

// walkNode reports the occurrence of the node on top of p and walks its
// children, keeping reports in source order: a name that is written after
// some of the node's children is reported after them.
func (w *walker) walkNode(p *Path) bool {
	switch n := p.node.(type) {
	case *DeclRef, *Member, *IvarRef, *PropertyRef:
		return w.walkChildren(p) && w.visit(p)
	case *Message:
		return w.walk(p, n.Receiver) && w.visit(p) && w.walkList(p, n.Args)
	case *DesignatedInit:
		return w.walkDesignators(p, n) && w.visit(p) && w.walk(p, n.Init)
	}
	return w.visit(p) && w.walkChildren(p)
}

// visit reports the occurrence produced by the node on top of p, if any.
func (w *walker) visit(p *Path) bool {
	switch n := p.node.(type) {
	case *DeclRef:
		if n.Decl == nil {
			return true
		}
		roles, rels := Classify(p, w.dc)
		return w.report(n.Decl, n.NamePos, roles, rels, n)

	case *Member:
		if n.Member == nil {
			return true
		}
		loc := n.MemberPos
		if !loc.IsValid() {
			loc = n.Pos()
		}
		roles, rels := Classify(p, w.dc)
		return w.report(n.Member, loc, roles, rels, n)

	case *IvarRef:
		if n.Ivar == nil {
			return true
		}
		roles, rels := Classify(p, w.dc)
		return w.report(n.Ivar, n.NamePos, roles, rels, n)

	case *PropertyRef:
		if n.Implicit || n.Property == nil {
			return true
		}
		return w.report(n.Property, n.NamePos, 0, nil, n)

	case *ProtocolRef:
		if n.Protocol == nil {
			return true
		}
		return w.report(n.Protocol, n.NamePos, 0, nil, n)

	case *DesignatedInit:
		return w.reportDesignator(n)

	case *Message:
		return w.reportMessage(n)

	case *Construct:
		if n.Ctor == nil {
			return true
		}
		roles, rels := addCallRole(0, nil, w.dc)
		return w.report(n.Ctor, n.Loc, roles, rels, n)

	case *Boxed:
		return w.reportImplicitCall(n.Method, n.Start, n)

	case *CollectionLit:
		return w.reportImplicitCall(n.Method, n.Start, n)

	case *DeclStmt:
		w.indexDecls(n.Decls)

	case *Assign:
		if len(n.Decls) > 0 {
			w.indexDecls(n.Decls)
		}
	}
	return true
}

// walkChildren walks the children of the node on top of p in source order.
// Message and DesignatedInit interleave their report with their children
// and are handled by walkNode.
func (w *walker) walkChildren(p *Path) bool {
	switch n := p.node.(type) {
	case *Member:
		return w.walk(p, n.Base) && w.walkQualifier(p, n.Qualifier)
	case *DeclRef:
		return w.walkQualifier(p, n.Qualifier)
	case *IvarRef:
		return w.walk(p, n.Base)
	case *PropertyRef:
		return w.walk(p, n.Base)
	case *Boxed:
		return w.walk(p, n.X)
	case *CollectionLit:
		return w.walkList(p, n.Elems)
	case *Construct:
		return w.walkType(p, n.Type) && w.walkList(p, n.Args)
	case *Call:
		if !w.walk(p, n.Fun) {
			return false
		}
		for _, t := range n.TypeArgs {
			if !w.walkType(p, t) {
				return false
			}
		}
		return w.walkList(p, n.Args)
	case *OperatorCall:
		return w.walkOperatorCall(p, n)
	case *Paren:
		return w.walk(p, n.X)
	case *Cast:
		return w.walkType(p, n.Type) && w.walk(p, n.X)
	case *Unary:
		return w.walk(p, n.X)
	case *Binary:
		return w.walk(p, n.X) && w.walk(p, n.Y)
	case *Assign:
		return w.walkList(p, n.Lhs) && w.walkList(p, n.Rhs)
	case *Block:
		return w.walkList(p, n.List)
	case *Compound:
		return w.walkList(p, n.List)
	case *DeclStmt:
		return w.walkType(p, n.Type) && w.walkList(p, n.Values)
	case *InitList:
		return w.walkInitList(p, n)
	case *Closure:
		return w.walkClosure(p, n)
	}
	return true
}

func (w *walker) walkList(p *Path, list []Node) bool {
	for _, n := range list {
		if !w.walk(p, n) {
			return false
		}
	}
	return true
}

func (w *walker) walkType(p *Path, t *TypeRef) bool {
	if t == nil {
		return true
	}
	return w.walk(p, t)
}

func (w *walker) walkQualifier(p *Path, q *Qualifier) bool {
	if q == nil {
		return true
	}
	return w.walk(p, q)
}

// walkOperatorCall walks the operator function and its operands in source
// order: a prefix operator precedes its operand, an infix or postfix one
// follows the first operand.
func (w *walker) walkOperatorCall(p *Path, n *OperatorCall) bool {
	if len(n.Args) == 0 || isNil(n.Args[0]) || n.OpPos < n.Args[0].Pos() {
		return w.walk(p, n.Fun) && w.walkList(p, n.Args)
	}
	return w.walk(p, n.Args[0]) && w.walk(p, n.Fun) && w.walkList(p, n.Args[1:])
}

func (w *walker) report(e *Entity, loc token.Pos, roles Role, rels []Relation, n Node) bool {
	return w.host.HandleReference(Occurrence{
		Entity:    e,
		Pos:       loc,
		Parent:    w.parent,
		Context:   w.dc,
		Roles:     roles,
		Relations: rels,
		Node:      n,
	})
}

// checkPath panics if p is not up extended by n.
func checkPath(p, up *Path, n Node) {
	if p.Node() != n || p.Up() != up || p.Len() != up.Len()+1 {
		panic(fmt.Sprintf("index: ancestor path out of balance at %T (depth %d, parent depth %d)", n, p.Len(), up.Len()))
	}
}
