package index

// addCallRole marks an occurrence as a call and, when the enclosing context
// is callable, relates it to that context.
func addCallRole(roles Role, rels []Relation, dc *Entity) (Role, []Relation) {
	roles |= RoleCall
	if dc.IsCallable() {
		rels = append(rels, Relation{Kind: RelCalledBy, Target: dc})
	}
	return roles, rels
}

// addDynamicCallee adds Dynamic and ReceivedBy when callee is a member access
// to a virtual method written without a scope qualifier.
func addDynamicCallee(callee Node, roles Role, rels []Relation) (Role, []Relation) {
	m, ok := callee.(*Member)
	if !ok || m.Member == nil || !m.Member.Virtual || m.Qualifier != nil {
		return roles, rels
	}
	roles |= RoleDynamic
	if m.BaseType != nil {
		rels = append(rels, Relation{Kind: RelReceivedBy, Target: m.BaseType})
	}
	return roles, rels
}

// isDynamicSend reports whether a message is dispatched on the run-time
// class of its receiver. Sends to classes and super are static, and so is a
// send to the fresh result of an allocation.
func isDynamicSend(m *Message) bool {
	if m.ReceiverKind != ReceiverInstance {
		return false
	}
	if rec, ok := unwrapAll(m.Receiver).(*Message); ok && rec.Alloc {
		return false
	}
	return true
}

// unwrapAll strips parentheses and all casts, explicit ones included.
func unwrapAll(n Node) Node {
	for {
		switch w := n.(type) {
		case *Paren:
			n = w.X
		case *Cast:
			n = w.X
		default:
			return n
		}
	}
}
