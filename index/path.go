package index

// Path is the chain of nodes from the body root down to the node being
// visited. It is persistent: Push returns a new path and never modifies the
// receiver, so whatever a child does with its path cannot unbalance the
// path of its parent.
type Path struct {
	node  Node
	up    *Path
	depth int
}

// Push returns the path extended by n.
func (p *Path) Push(n Node) *Path {
	return &Path{node: n, up: p, depth: p.Len() + 1}
}

// Node returns the node on top of the path, or nil for the empty path.
func (p *Path) Node() Node {
	if p == nil {
		return nil
	}
	return p.node
}

// Up returns the path without its top node. The root's Up is nil.
func (p *Path) Up() *Path {
	if p == nil {
		return nil
	}
	return p.up
}

// Len returns the number of nodes on the path.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return p.depth
}

// Parent returns the semantically meaningful parent of the top node: its
// nearest ancestor that is not a wrapper.
func (p *Path) Parent() Node {
	anc, _ := semanticParent(p)
	return anc.Node()
}

// Nodes returns the nodes of the path from the root to the top.
func (p *Path) Nodes() []Node {
	nodes := make([]Node, p.Len())
	for q := p; q != nil; q = q.up {
		nodes[q.depth-1] = q.node
	}
	return nodes
}

// isWrapper reports whether n only wraps its operand without changing which
// entity is being used: parentheses and implicit casts.
func isWrapper(n Node) bool {
	switch n := n.(type) {
	case *Paren:
		return true
	case *Cast:
		return n.Implicit
	}
	return false
}

// Unwrap strips parentheses and implicit casts from n.
func Unwrap(n Node) Node {
	for {
		switch w := n.(type) {
		case *Paren:
			n = w.X
		case *Cast:
			if !w.Implicit {
				return n
			}
			n = w.X
		default:
			return n
		}
	}
}

// semanticParent walks up from the top of p past wrapper nodes. It returns
// the first ancestor that is not a wrapper (or the outermost wrapper when the
// path is all wrappers) and the Read role if any skipped wrapper loads a
// value from storage. It returns nil when the top of p has no ancestor.
func semanticParent(p *Path) (*Path, Role) {
	anc := p.Up()
	if anc == nil {
		return nil, 0
	}
	var roles Role
	for isWrapper(anc.node) {
		if c, ok := anc.node.(*Cast); ok && c.Kind == CastLoad {
			roles |= RoleRead
		}
		if anc.up == nil {
			break
		}
		anc = anc.up
	}
	return anc, roles
}
