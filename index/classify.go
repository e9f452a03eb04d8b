package index

// Classify computes the roles of the occurrence on top of path, along with
// the relations those roles imply. dc is the enclosing declaration context.
//
// Only the nearest ancestor that is not a wrapper is consulted. Plain reads
// carry no role of their own; Read is only added for a skipped cast that
// loads from storage, or by the read-modify-write forms below.
func Classify(path *Path, dc *Entity) (Role, []Relation) {
	e := path.Node()
	anc, roles := semanticParent(path)
	if anc == nil {
		return 0, nil
	}
	var rels []Relation

	switch p := anc.node.(type) {
	case *Assign:
		if isOperandOf(e, p.Lhs) {
			roles |= assignRoles(p.Op)
		}

	case *Binary:
		if Unwrap(p.X) == e {
			roles |= assignRoles(p.Op)
		}

	case *Unary:
		switch {
		case p.Op.IsIncDec():
			roles |= RoleRead | RoleWrite
		case p.Op == OpAddrOf:
			roles |= RoleAddressOf
		}

	case *Call:
		if Unwrap(p.Fun) == e {
			roles, rels = addCallRole(roles, rels, dc)
			roles, rels = addDynamicCallee(e, roles, rels)
		}

	case *OperatorCall:
		switch {
		case Unwrap(p.Fun) == e:
			roles, rels = addCallRole(roles, rels, dc)
			roles, rels = addDynamicCallee(e, roles, rels)
		case len(p.Args) > 0 && Unwrap(p.Args[0]) == e:
			roles |= operatorRoles(p.Op)
		}
	}

	return roles, rels
}

// assignRoles returns the roles of the left operand of an assignment
// operator, or 0 when op does not assign.
func assignRoles(op Operator) Role {
	switch {
	case op.IsAssign():
		return RoleWrite
	case op.IsCompoundAssign():
		return RoleRead | RoleWrite
	}
	return 0
}

// operatorRoles returns the roles of the first operand of an overloaded
// operator call.
func operatorRoles(op Operator) Role {
	switch {
	case op == OpAssign:
		return RoleWrite
	case op.IsCompoundAssign(), op.IsIncDec():
		return RoleRead | RoleWrite
	case op == OpAddrOf:
		return RoleAddressOf
	}
	return 0
}

func isOperandOf(e Node, operands []Node) bool {
	for _, op := range operands {
		if Unwrap(op) == e {
			return true
		}
	}
	return false
}
