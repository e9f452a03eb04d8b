package index

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_AssignTargetIsWriteOnly(t *testing.T) {
	x := variable("x")
	// x = x + 1
	body := &Block{List: []Node{
		&Assign{Op: OpAssign, TokPos: 3, Lhs: []Node{ref(x, 1)}, Rhs: []Node{
			&Binary{Op: OpAdd, OpPos: 7, X: ref(x, 5), Y: &Compound{What: "lit", From: 9}},
		}},
	}}

	r := run(t, body, Options{})
	require.Len(t, r.occs, 2)
	assert.Equal(t, token.Pos(1), r.occs[0].Pos)
	assert.Equal(t, RoleWrite, r.occs[0].Roles)
	assert.Empty(t, r.occs[0].Relations)
	assert.Equal(t, token.Pos(5), r.occs[1].Pos)
	assert.Equal(t, Role(0), r.occs[1].Roles)
}

func TestClassify_WrappersAreSkipped(t *testing.T) {
	x := variable("x")
	lhs := &Paren{Lparen: 1, X: &Cast{Implicit: true, Kind: CastValue, X: &Paren{Lparen: 2, X: ref(x, 3)}}}
	body := &Assign{Op: OpAssign, TokPos: 5, Lhs: []Node{lhs}, Rhs: []Node{&Compound{From: 7}}}

	r := run(t, body, Options{})
	require.Len(t, r.occs, 1)
	assert.Equal(t, RoleWrite, r.occs[0].Roles)
}

func TestClassify_LoadCastAddsRead(t *testing.T) {
	x, y := variable("x"), variable("y")
	body := &Assign{Op: OpAssign, TokPos: 3, Lhs: []Node{ref(y, 1)}, Rhs: []Node{loadOf(ref(x, 5))}}

	r := run(t, body, Options{})
	require.Len(t, r.occs, 2)
	assert.Equal(t, RoleWrite, r.byName("y")[0].Roles)
	assert.Equal(t, RoleRead, r.byName("x")[0].Roles)
}

func TestClassify_ExplicitCastIsNotTransparent(t *testing.T) {
	x := variable("x")
	lhs := &Cast{Kind: CastConvert, Start: 1, X: ref(x, 2)}
	body := &Assign{Op: OpAssign, TokPos: 4, Lhs: []Node{lhs}}

	r := run(t, body, Options{})
	require.Len(t, r.occs, 1)
	assert.Equal(t, Role(0), r.occs[0].Roles)
}

func TestClassify_CompoundAssign(t *testing.T) {
	x, y := variable("x"), variable("y")
	body := &Assign{Op: OpAddAssign, TokPos: 3, Lhs: []Node{ref(x, 1)}, Rhs: []Node{ref(y, 6)}}

	r := run(t, body, Options{})
	require.Len(t, r.occs, 2)
	assert.Equal(t, RoleRead|RoleWrite, r.occs[0].Roles)
	assert.Equal(t, Role(0), r.occs[1].Roles)
}

func TestClassify_BinaryAssignment(t *testing.T) {
	x, y := variable("x"), variable("y")
	body := &Binary{Op: OpAssign, OpPos: 3, X: ref(x, 1), Y: ref(y, 5)}

	r := run(t, body, Options{})
	require.Len(t, r.occs, 2)
	assert.Equal(t, RoleWrite, r.occs[0].Roles)
	assert.Equal(t, Role(0), r.occs[1].Roles)
}

func TestClassify_IncDec(t *testing.T) {
	for _, op := range []Operator{OpPreInc, OpPreDec, OpPostInc, OpPostDec} {
		x := variable("x")
		r := run(t, &Unary{Op: op, OpPos: 2, X: &Paren{Lparen: 1, X: ref(x, 1)}}, Options{})
		require.Len(t, r.occs, 1, "op %d", op)
		assert.True(t, r.occs[0].Roles.Has(RoleRead|RoleWrite), "op %d", op)
	}
}

func TestClassify_AddressOf(t *testing.T) {
	x := variable("x")
	r := run(t, &Unary{Op: OpAddrOf, OpPos: 1, X: ref(x, 2)}, Options{})
	require.Len(t, r.occs, 1)
	assert.Equal(t, RoleAddressOf, r.occs[0].Roles)

	r = run(t, &Unary{Op: OpNeg, OpPos: 1, X: ref(x, 2)}, Options{})
	require.Len(t, r.occs, 1)
	assert.Equal(t, Role(0), r.occs[0].Roles)
}

func TestClassify_CalleeGetsCallRole(t *testing.T) {
	f := &Entity{ID: "p::helper", Name: "helper", Kind: EntityFunction}
	x := variable("x")
	body := &Call{Fun: ref(f, 1), Lparen: 7, Args: []Node{ref(x, 8)}}

	r := run(t, body, Options{})
	require.Len(t, r.occs, 2)
	assert.Equal(t, RoleCall, r.occs[0].Roles)
	assert.Equal(t, []Relation{{Kind: RelCalledBy, Target: fnEnt}}, r.occs[0].Relations)
	assert.Equal(t, Role(0), r.occs[1].Roles)
}

func TestClassify_CallOutsideFunctionHasNoCalledBy(t *testing.T) {
	f := &Entity{ID: "p::helper", Name: "helper", Kind: EntityFunction}
	body := &Call{Fun: ref(f, 1), Lparen: 7}

	r := &recorder{}
	New(r, Options{}).IndexBody(body, pkgEnt, pkgEnt)
	require.Len(t, r.occs, 1)
	assert.Equal(t, RoleCall, r.occs[0].Roles)
	assert.Empty(t, r.occs[0].Relations)
}

func TestClassify_VirtualCall(t *testing.T) {
	iface := &Entity{ID: "p::Reader", Name: "Reader", Kind: EntityInterface}
	read := &Entity{ID: "p::Reader.Read", Name: "Read", Kind: EntityMethod, Virtual: true}
	rd := variable("r")
	call := func(q *Qualifier, baseType *Entity) Node {
		return &Call{Lparen: 7, Fun: &Member{
			Base: ref(rd, 1), Member: read, MemberPos: 3, Qualifier: q, BaseType: baseType,
		}}
	}

	t.Run("dynamic", func(t *testing.T) {
		r := run(t, call(nil, iface), Options{})
		assert.Equal(t, []string{"r", "Read"}, r.names())
		occ := r.byName("Read")[0]
		assert.Equal(t, RoleCall|RoleDynamic, occ.Roles)
		assert.Equal(t, []Relation{
			{Kind: RelCalledBy, Target: fnEnt},
			{Kind: RelReceivedBy, Target: iface},
		}, occ.Relations)
		assert.Equal(t, Role(0), r.byName("r")[0].Roles)
	})

	t.Run("qualified", func(t *testing.T) {
		r := run(t, call(&Qualifier{ScopePos: 2, Scope: iface}, iface), Options{})
		occ := r.byName("Read")[0]
		assert.Equal(t, RoleCall, occ.Roles)
		assert.Equal(t, []Relation{{Kind: RelCalledBy, Target: fnEnt}}, occ.Relations)
		assert.Len(t, r.quals, 1)
	})

	t.Run("unknown receiver type", func(t *testing.T) {
		r := run(t, call(nil, nil), Options{})
		occ := r.byName("Read")[0]
		assert.Equal(t, RoleCall|RoleDynamic, occ.Roles)
		assert.Equal(t, []Relation{{Kind: RelCalledBy, Target: fnEnt}}, occ.Relations)
	})

	t.Run("not virtual", func(t *testing.T) {
		m := &Entity{ID: "p::T.Close", Name: "Close", Kind: EntityMethod}
		body := &Call{Lparen: 7, Fun: &Paren{Lparen: 1, X: &Member{Base: ref(rd, 2), Member: m, MemberPos: 4, BaseType: iface}}}
		r := run(t, body, Options{})
		occ := r.byName("Close")[0]
		assert.Equal(t, RoleCall, occ.Roles)
	})

	t.Run("not called", func(t *testing.T) {
		m := &Member{Base: ref(rd, 1), Member: read, MemberPos: 3, BaseType: iface}
		r := run(t, &Assign{Op: OpDefine, TokPos: 10, Rhs: []Node{m}}, Options{})
		assert.Equal(t, Role(0), r.byName("Read")[0].Roles)
	})
}

func TestClassify_OperatorCall(t *testing.T) {
	a, b := variable("a"), variable("b")
	opFn := func(name string) *Entity {
		return &Entity{ID: "p::T." + name, Name: name, Kind: EntityMethod}
	}

	t.Run("assign", func(t *testing.T) {
		body := &OperatorCall{Op: OpAssign, OpPos: 3, Fun: ref(opFn("operator="), 3), Args: []Node{ref(a, 1), ref(b, 5)}}
		r := run(t, body, Options{})
		assert.Equal(t, []string{"a", "operator=", "b"}, r.names())
		assert.Equal(t, RoleWrite, r.occs[0].Roles)
		assert.Equal(t, RoleCall, r.occs[1].Roles)
		assert.Equal(t, []Relation{{Kind: RelCalledBy, Target: fnEnt}}, r.occs[1].Relations)
		assert.Equal(t, Role(0), r.occs[2].Roles)
	})

	t.Run("prefix address-of", func(t *testing.T) {
		body := &OperatorCall{Op: OpAddrOf, OpPos: 1, Fun: ref(opFn("operator&"), 1), Args: []Node{ref(a, 2)}}
		r := run(t, body, Options{})
		assert.Equal(t, []string{"operator&", "a"}, r.names())
		assert.Equal(t, RoleAddressOf, r.occs[1].Roles)
	})

	t.Run("read-modify-write", func(t *testing.T) {
		for _, op := range []Operator{OpAddAssign, OpShlAssign, OpPostInc, OpPreDec} {
			body := &OperatorCall{Op: op, OpPos: 3, Fun: ref(opFn("op"), 3), Args: []Node{ref(a, 1)}}
			r := run(t, body, Options{})
			assert.Equal(t, RoleRead|RoleWrite, r.byName("a")[0].Roles, "op %d", op)
		}
	})

	t.Run("binary and", func(t *testing.T) {
		body := &OperatorCall{Op: OpAnd, OpPos: 3, Fun: ref(opFn("operator&"), 3), Args: []Node{ref(a, 1), ref(b, 5)}}
		r := run(t, body, Options{})
		assert.Equal(t, Role(0), r.byName("a")[0].Roles)
	})

	t.Run("implicit call is skipped", func(t *testing.T) {
		body := &Block{List: []Node{
			&OperatorCall{Op: OpAssign, Fun: ref(opFn("operator="), 0), Args: []Node{ref(a, 1), ref(b, 5)}},
		}}
		r := run(t, body, Options{})
		assert.Empty(t, r.occs)
	})
}

func TestClassify_NoAncestor(t *testing.T) {
	x := variable("x")
	p := (*Path)(nil).Push(ref(x, 1))
	roles, rels := Classify(p, fnEnt)
	assert.Equal(t, Role(0), roles)
	assert.Nil(t, rels)
}

func TestPath_ParentSkipsWrappers(t *testing.T) {
	x := variable("x")
	leaf := ref(x, 3)
	inner := &Cast{Implicit: true, Kind: CastLoad, X: leaf}
	paren := &Paren{Lparen: 1, X: inner}
	un := &Unary{Op: OpNeg, OpPos: 0, X: paren}

	p := (*Path)(nil).Push(un).Push(paren).Push(inner).Push(leaf)
	assert.Equal(t, 4, p.Len())
	assert.Same(t, un, p.Parent())
	assert.Equal(t, []Node{un, paren, inner, leaf}, p.Nodes())

	anc, roles := semanticParent(p)
	assert.Same(t, un, anc.Node())
	assert.Equal(t, RoleRead, roles)

	// a path made only of wrappers stops at its root
	q := (*Path)(nil).Push(paren).Push(inner).Push(leaf)
	assert.Same(t, paren, q.Parent())
	assert.Nil(t, (*Path)(nil).Push(leaf).Parent())
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "none", Role(0).String())
	assert.Equal(t, "read|write", (RoleRead | RoleWrite).String())
	assert.Equal(t, "call|dynamic|implicit", (RoleImplicit | RoleCall | RoleDynamic).String())

	r, ok := ParseRole("addr")
	assert.True(t, ok)
	assert.Equal(t, RoleAddressOf, r)
	_, ok = ParseRole("bogus")
	assert.False(t, ok)

	assert.Equal(t, "called_by", RelCalledBy.String())
	assert.Equal(t, "received_by", RelReceivedBy.String())
}
