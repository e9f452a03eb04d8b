package index

import "go/token"

// lastField returns the innermost field designator of d, or nil when d only
// designates array elements.
func lastField(d *DesignatedInit) *Designator {
	for i := len(d.Designators) - 1; i >= 0; i-- {
		if d.Designators[i].IsField() {
			return &d.Designators[i]
		}
	}
	return nil
}

// reportDesignator reports the field named by a designated initializer. The
// designator only names the field, so the reference has no roles.
func (w *walker) reportDesignator(d *DesignatedInit) bool {
	f := lastField(d)
	if f == nil {
		return true
	}
	return w.report(f.Field, f.FieldPos, 0, nil, d)
}

// walkDesignators walks the index expressions of d's array designators.
func (w *walker) walkDesignators(p *Path, d *DesignatedInit) bool {
	for _, des := range d.Designators {
		if !w.walk(p, des.Index) {
			return false
		}
	}
	return true
}

// walkInitList walks an aggregate initializer. Values are taken from the
// semantic form only. The written form is consulted for its designators,
// which the semantic form no longer has; nested written lists are left to
// the semantic lists that own them. When only the written form exists it is
// walked like any other node.
func (w *walker) walkInitList(p *Path, n *InitList) bool {
	t := n.Type
	if t == nil && n.Alt != nil {
		t = n.Alt.Type
	}
	if !w.walkType(p, t) {
		return false
	}

	sem, syn := n.SemanticForm(), n.SyntacticForm()
	if sem == nil {
		if syn == nil {
			return true
		}
		return w.walkList(p, syn.Inits)
	}
	if syn != nil && syn != sem {
		for _, init := range syn.Inits {
			d, ok := init.(*DesignatedInit)
			if !ok || d == nil {
				continue
			}
			if !w.walkDesignators(p.Push(d), d) || !w.reportDesignator(d) {
				return false
			}
		}
	}
	return w.walkList(p, sem.Inits)
}

// walkClosure reports the closure's captures, then walks its signature and
// body. Only captures of named locals are references, and only when
// function-local symbols are indexed.
func (w *walker) walkClosure(p *Path, n *Closure) bool {
	if w.opts.IndexFunctionLocals {
		for _, c := range n.Captures {
			if c.Kind != CaptureVar || c.Var == nil {
				continue
			}
			loc := c.Loc
			if !loc.IsValid() {
				loc = n.FuncPos
			}
			if !w.report(c.Var, loc, 0, nil, n) {
				return false
			}
		}
	}
	return w.walkType(p, n.Type) && w.walk(p, n.Body)
}

// reportMessage reports the method a message send calls.
func (w *walker) reportMessage(m *Message) bool {
	if m.Method == nil {
		return true
	}
	roles, rels := addCallRole(0, nil, w.dc)
	if m.Implicit {
		roles |= RoleImplicit
	}
	if isDynamicSend(m) {
		roles |= RoleDynamic
		if m.ReceiverType != nil {
			rels = append(rels, Relation{Kind: RelReceivedBy, Target: m.ReceiverType})
		}
	}
	loc := m.SelectorPos
	if !loc.IsValid() {
		loc = m.Start
	}
	return w.report(m.Method, loc, roles, rels, m)
}

// reportImplicitCall reports the method a literal calls behind the scenes.
func (w *walker) reportImplicitCall(method *Entity, start token.Pos, n Node) bool {
	if method == nil {
		return true
	}
	roles, rels := addCallRole(RoleImplicit, nil, w.dc)
	return w.report(method, start, roles, rels, n)
}
