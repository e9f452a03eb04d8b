package goindex

import (
	"go/ast"
	"go/token"
	"go/types"

	"xrefgen/index"
)

// lowerer builds the index tree of one declaration from its syntax and type
// information.
type lowerer struct {
	info *types.Info
	ents *entities
	fn   *index.Entity // enclosing declaration
	recv types.Object  // receiver of the enclosing method, if named
}

func (l *lowerer) entity(obj types.Object) *index.Entity {
	return l.ents.get(obj, l.fn)
}

func (l *lowerer) object(id *ast.Ident) types.Object {
	if obj := l.info.Uses[id]; obj != nil {
		return obj
	}
	return l.info.Defs[id]
}

var assignOps = map[token.Token]index.Operator{
	token.ASSIGN:         index.OpAssign,
	token.DEFINE:         index.OpDefine,
	token.ADD_ASSIGN:     index.OpAddAssign,
	token.SUB_ASSIGN:     index.OpSubAssign,
	token.MUL_ASSIGN:     index.OpMulAssign,
	token.QUO_ASSIGN:     index.OpQuoAssign,
	token.REM_ASSIGN:     index.OpRemAssign,
	token.AND_ASSIGN:     index.OpAndAssign,
	token.OR_ASSIGN:      index.OpOrAssign,
	token.XOR_ASSIGN:     index.OpXorAssign,
	token.SHL_ASSIGN:     index.OpShlAssign,
	token.SHR_ASSIGN:     index.OpShrAssign,
	token.AND_NOT_ASSIGN: index.OpAndNotAssign,
}

var unaryOps = map[token.Token]index.Operator{
	token.AND:   index.OpAddrOf,
	token.ADD:   index.OpPlus,
	token.SUB:   index.OpNeg,
	token.NOT:   index.OpNot,
	token.XOR:   index.OpComplement,
	token.ARROW: index.OpRecv,
}

var binaryOps = map[token.Token]index.Operator{
	token.ADD:     index.OpAdd,
	token.SUB:     index.OpSub,
	token.MUL:     index.OpMul,
	token.QUO:     index.OpQuo,
	token.REM:     index.OpRem,
	token.AND:     index.OpAnd,
	token.OR:      index.OpOr,
	token.XOR:     index.OpXor,
	token.SHL:     index.OpShl,
	token.SHR:     index.OpShr,
	token.AND_NOT: index.OpAndNot,
	token.LAND:    index.OpLAnd,
	token.LOR:     index.OpLOr,
	token.EQL:     index.OpEql,
	token.NEQ:     index.OpNeq,
	token.LSS:     index.OpLss,
	token.LEQ:     index.OpLeq,
	token.GTR:     index.OpGtr,
	token.GEQ:     index.OpGeq,
}

// nodes drops the absent entries of ns.
func nodes(ns ...index.Node) []index.Node {
	out := ns[:0]
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (l *lowerer) stmts(list []ast.Stmt) []index.Node {
	out := make([]index.Node, 0, len(list))
	for _, s := range list {
		if n := l.stmt(s); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// block returns nil for an absent block so that no typed nil reaches the
// tree.
func (l *lowerer) block(b *ast.BlockStmt) index.Node {
	if b == nil {
		return nil
	}
	return &index.Block{Lbrace: b.Lbrace, List: l.stmts(b.List)}
}

func (l *lowerer) stmt(s ast.Stmt) index.Node {
	switch s := s.(type) {
	case *ast.BlockStmt:
		return l.block(s)
	case *ast.ExprStmt:
		return l.expr(s.X)
	case *ast.AssignStmt:
		return l.assign(s.Tok, s.TokPos, s.Lhs, s.Rhs)
	case *ast.IncDecStmt:
		op := index.OpPostInc
		if s.Tok == token.DEC {
			op = index.OpPostDec
		}
		return &index.Unary{Op: op, OpPos: s.TokPos, X: l.expr(s.X)}
	case *ast.DeclStmt:
		return l.declStmt(s)
	case *ast.ReturnStmt:
		return &index.Compound{What: "return", From: s.Return, List: l.values(s.Results)}
	case *ast.IfStmt:
		return &index.Compound{What: "if", From: s.If, List: nodes(
			l.stmt(s.Init), l.value(s.Cond), l.block(s.Body), l.stmt(s.Else))}
	case *ast.ForStmt:
		return &index.Compound{What: "for", From: s.For, List: nodes(
			l.stmt(s.Init), l.value(s.Cond), l.stmt(s.Post), l.block(s.Body))}
	case *ast.RangeStmt:
		return l.rangeStmt(s)
	case *ast.SwitchStmt:
		return &index.Compound{What: "switch", From: s.Switch, List: nodes(
			l.stmt(s.Init), l.value(s.Tag), l.clauses(s.Body, false))}
	case *ast.TypeSwitchStmt:
		return &index.Compound{What: "type_switch", From: s.Switch, List: nodes(
			l.stmt(s.Init), l.typeGuard(s.Assign), l.clauses(s.Body, true))}
	case *ast.SelectStmt:
		return &index.Compound{What: "select", From: s.Select, List: nodes(l.clauses(s.Body, false))}
	case *ast.SendStmt:
		return &index.Compound{What: "send", From: s.Arrow, List: nodes(l.value(s.Chan), l.value(s.Value))}
	case *ast.GoStmt:
		return &index.Compound{What: "go", From: s.Go, List: nodes(l.expr(s.Call))}
	case *ast.DeferStmt:
		return &index.Compound{What: "defer", From: s.Defer, List: nodes(l.expr(s.Call))}
	case *ast.LabeledStmt:
		return l.stmt(s.Stmt)
	}
	// branch, empty and bad statements refer to nothing
	return nil
}

// assign lowers an assignment. The new names of a defining assignment become
// declarations; names it redeclares stay assignment targets.
func (l *lowerer) assign(tok token.Token, pos token.Pos, lhs, rhs []ast.Expr) *index.Assign {
	a := &index.Assign{Op: assignOps[tok], TokPos: pos}
	for _, e := range lhs {
		if tok == token.DEFINE {
			if id, ok := e.(*ast.Ident); ok && l.info.Defs[id] != nil {
				if d := l.decl(id, l.info.Defs[id]); d != nil {
					a.Decls = append(a.Decls, d)
				}
				continue
			}
		}
		if n := l.expr(e); n != nil {
			a.Lhs = append(a.Lhs, n)
		}
	}
	a.Rhs = l.values(rhs)
	return a
}

func (l *lowerer) decl(id *ast.Ident, obj types.Object) *index.Decl {
	if obj == nil || id.Name == "_" {
		return nil
	}
	e := l.entity(obj)
	if e == nil {
		return nil
	}
	return &index.Decl{Entity: e, NamePos: id.Pos(), Syntax: id}
}

// declStmt lowers a local var, const or type declaration. Written types are
// listed among the values in source order.
func (l *lowerer) declStmt(s *ast.DeclStmt) index.Node {
	gd, ok := s.Decl.(*ast.GenDecl)
	if !ok {
		return nil
	}
	ds := &index.DeclStmt{TokPos: gd.TokPos}
	for _, spec := range gd.Specs {
		switch sp := spec.(type) {
		case *ast.ValueSpec:
			for _, name := range sp.Names {
				if d := l.decl(name, l.info.Defs[name]); d != nil {
					ds.Decls = append(ds.Decls, d)
				}
			}
			if t := l.typeRef(sp.Type); t != nil {
				ds.Values = append(ds.Values, t)
			}
			ds.Values = append(ds.Values, l.values(sp.Values)...)
		case *ast.TypeSpec:
			if d := l.decl(sp.Name, l.info.Defs[sp.Name]); d != nil {
				ds.Decls = append(ds.Decls, d)
			}
			if t := l.typeRef(sp.Type); t != nil {
				ds.Values = append(ds.Values, t)
			}
		}
	}
	return ds
}

func (l *lowerer) rangeStmt(s *ast.RangeStmt) index.Node {
	c := &index.Compound{What: "range", From: s.For}
	var lhs []ast.Expr
	for _, e := range []ast.Expr{s.Key, s.Value} {
		if e != nil {
			lhs = append(lhs, e)
		}
	}
	if len(lhs) == 0 {
		c.List = nodes(l.value(s.X))
	} else {
		c.List = []index.Node{l.assign(s.Tok, s.TokPos, lhs, []ast.Expr{s.X})}
	}
	if b := l.block(s.Body); b != nil {
		c.List = append(c.List, b)
	}
	return c
}

// clauses lowers the body of a switch or select. In a type switch the case
// lists are types, and each clause declares the implicit guard variable.
func (l *lowerer) clauses(body *ast.BlockStmt, typeSwitch bool) index.Node {
	if body == nil {
		return nil
	}
	b := &index.Block{Lbrace: body.Lbrace}
	for _, s := range body.List {
		switch cc := s.(type) {
		case *ast.CaseClause:
			c := &index.Compound{What: "case", From: cc.Case}
			for _, e := range cc.List {
				var n index.Node
				if typeSwitch {
					n = l.typeOrValue(e)
				} else {
					n = l.value(e)
				}
				if n != nil {
					c.List = append(c.List, n)
				}
			}
			if obj := l.info.Implicits[cc]; obj != nil && obj.Name() != "_" {
				if e := l.entity(obj); e != nil {
					c.List = append(c.List, &index.DeclStmt{
						TokPos: cc.Colon,
						Decls:  []*index.Decl{{Entity: e, NamePos: obj.Pos(), Syntax: cc}},
					})
				}
			}
			c.List = append(c.List, l.stmts(cc.Body)...)
			b.List = append(b.List, c)
		case *ast.CommClause:
			c := &index.Compound{What: "comm", From: cc.Case, List: nodes(l.stmt(cc.Comm))}
			c.List = append(c.List, l.stmts(cc.Body)...)
			b.List = append(b.List, c)
		}
	}
	return b
}

// typeGuard lowers the x := y.(type) header of a type switch. The symbolic
// x declares nothing by itself; the clauses declare its per-case copies.
func (l *lowerer) typeGuard(s ast.Stmt) index.Node {
	var e ast.Expr
	switch s := s.(type) {
	case *ast.ExprStmt:
		e = s.X
	case *ast.AssignStmt:
		if len(s.Rhs) == 1 {
			e = s.Rhs[0]
		}
	}
	ta, ok := e.(*ast.TypeAssertExpr)
	if !ok {
		return nil
	}
	return &index.Compound{What: "type_guard", From: ta.Pos(), List: nodes(l.value(ta.X))}
}

func (l *lowerer) values(list []ast.Expr) []index.Node {
	out := make([]index.Node, 0, len(list))
	for _, e := range list {
		if n := l.value(e); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// value lowers e in a position where its value is used. Reading a variable
// is marked with a load cast.
func (l *lowerer) value(e ast.Expr) index.Node {
	n := l.expr(e)
	if n == nil || !l.isLoad(e) {
		return n
	}
	return &index.Cast{Implicit: true, Kind: index.CastLoad, Start: e.Pos(), X: n}
}

// isLoad reports whether evaluating e reads a variable: a named variable, a
// field, a pointer indirection or an element of an array, slice or map.
func (l *lowerer) isLoad(e ast.Expr) bool {
	tv, ok := l.info.Types[e]
	if !ok || tv.IsType() {
		return false
	}
	if tv.Addressable() {
		return true
	}
	if ix, ok := ast.Unparen(e).(*ast.IndexExpr); ok {
		_, isMap := l.under(ix.X).(*types.Map)
		return isMap
	}
	return false
}

func (l *lowerer) under(e ast.Expr) types.Type {
	t := l.info.TypeOf(e)
	if t == nil {
		return nil
	}
	return t.Underlying()
}

func (l *lowerer) isType(e ast.Expr) bool {
	tv, ok := l.info.Types[e]
	return ok && tv.IsType()
}

func (l *lowerer) typeOrValue(e ast.Expr) index.Node {
	if l.isType(e) {
		return l.typeRef(e)
	}
	return l.value(e)
}

// expr lowers e without marking a load of its value.
func (l *lowerer) expr(e ast.Expr) index.Node {
	if e == nil {
		return nil
	}
	if l.isType(e) {
		return l.typeRef(e)
	}
	switch e := e.(type) {
	case *ast.Ident:
		return l.ident(e)
	case *ast.ParenExpr:
		x := l.expr(e.X)
		if x == nil {
			return nil
		}
		return &index.Paren{Lparen: e.Lparen, X: x}
	case *ast.SelectorExpr:
		return l.selector(e)
	case *ast.StarExpr:
		return &index.Unary{Op: index.OpDeref, OpPos: e.Star, X: l.value(e.X)}
	case *ast.UnaryExpr:
		if e.Op == token.AND {
			return &index.Unary{Op: index.OpAddrOf, OpPos: e.OpPos, X: l.expr(e.X)}
		}
		return &index.Unary{Op: unaryOps[e.Op], OpPos: e.OpPos, X: l.value(e.X)}
	case *ast.BinaryExpr:
		return &index.Binary{Op: binaryOps[e.Op], OpPos: e.OpPos, X: l.value(e.X), Y: l.value(e.Y)}
	case *ast.CallExpr:
		return l.call(e)
	case *ast.IndexExpr:
		if l.isType(e.Index) {
			return l.instance(e.X, []ast.Expr{e.Index})
		}
		return &index.Binary{Op: index.OpSubscript, OpPos: e.Lbrack, X: l.indexBase(e.X), Y: l.value(e.Index)}
	case *ast.IndexListExpr:
		return l.instance(e.X, e.Indices)
	case *ast.SliceExpr:
		return &index.Compound{What: "slice", From: e.Pos(), List: nodes(
			l.indexBase(e.X), l.value(e.Low), l.value(e.High), l.value(e.Max))}
	case *ast.TypeAssertExpr:
		c := &index.Compound{What: "type_assert", From: e.Pos(), List: nodes(l.value(e.X))}
		if t := l.typeRef(e.Type); t != nil {
			c.List = append(c.List, t)
		}
		return c
	case *ast.CompositeLit:
		return l.composite(e)
	case *ast.FuncLit:
		return l.closure(e)
	case *ast.KeyValueExpr:
		return &index.Compound{What: "key_value", From: e.Pos(), List: nodes(l.value(e.Key), l.value(e.Value))}
	case *ast.ArrayType, *ast.MapType, *ast.ChanType, *ast.FuncType, *ast.StructType, *ast.InterfaceType:
		return l.typeRef(e)
	}
	// literals and bad expressions
	return nil
}

// ident lowers a name used in an expression.
func (l *lowerer) ident(id *ast.Ident) index.Node {
	switch obj := l.object(id).(type) {
	case nil, *types.Builtin, *types.Nil, *types.Label:
		return nil
	case *types.PkgName:
		return &index.Qualifier{ScopePos: id.Pos(), Scope: l.entity(obj), Syntax: id}
	case *types.TypeName:
		return l.typeRef(id)
	default:
		e := l.entity(obj)
		if e == nil {
			return nil
		}
		return &index.DeclRef{NamePos: id.Pos(), Decl: e}
	}
}

// indexBase lowers the operand of an index or slice expression. Indexing an
// array selects part of the array variable; every other operand is read.
func (l *lowerer) indexBase(x ast.Expr) index.Node {
	if _, isArray := l.under(x).(*types.Array); isArray {
		return l.expr(x)
	}
	return l.value(x)
}

// selector lowers x.f. Package-qualified names become qualified references,
// method expressions are qualified by their receiver type, and field and
// method selections become member accesses. Promotion through embedded
// fields is spelled out as implicit member accesses with no name position.
func (l *lowerer) selector(e *ast.SelectorExpr) index.Node {
	if id, ok := e.X.(*ast.Ident); ok {
		if pn, ok := l.info.Uses[id].(*types.PkgName); ok {
			q := &index.Qualifier{ScopePos: id.Pos(), Scope: l.entity(pn), Syntax: id}
			target := l.entity(l.info.Uses[e.Sel])
			if target == nil {
				return q
			}
			return &index.DeclRef{NamePos: e.Sel.Pos(), Decl: target, Qualifier: q}
		}
	}

	sel, ok := l.info.Selections[e]
	if !ok {
		return l.ident(e.Sel)
	}
	if sel.Kind() == types.MethodExpr {
		return &index.DeclRef{
			NamePos:   e.Sel.Pos(),
			Decl:      l.entity(sel.Obj()),
			Qualifier: &index.Qualifier{ScopePos: e.X.Pos(), Scope: l.typeEntity(sel.Recv()), Syntax: e.X},
		}
	}

	// a pointer or interface operand is read to reach the member
	var base index.Node
	switch l.under(e.X).(type) {
	case *types.Pointer, *types.Interface:
		base = l.value(e.X)
	default:
		base = l.expr(e.X)
	}
	path, owner := embeddedPath(sel)
	for _, f := range path {
		base = &index.Member{Base: base, Member: l.entity(f)}
	}
	m := &index.Member{Base: base, Member: l.entity(sel.Obj()), MemberPos: e.Sel.Pos()}
	if sel.Kind() == types.MethodVal {
		m.BaseType = l.typeEntity(owner)
	}
	return m
}

// embeddedPath returns the embedded fields a selection goes through
// implicitly, and the type the selected member is found in.
func embeddedPath(sel *types.Selection) ([]*types.Var, types.Type) {
	t := sel.Recv()
	idx := sel.Index()
	var path []*types.Var
	for _, i := range idx[:len(idx)-1] {
		st, ok := deref(t).Underlying().(*types.Struct)
		if !ok || i >= st.NumFields() {
			break
		}
		f := st.Field(i)
		path = append(path, f)
		t = f.Type()
	}
	return path, t
}

// typeEntity returns the entity of the named type or type parameter t
// denotes, looking through one pointer.
func (l *lowerer) typeEntity(t types.Type) *index.Entity {
	switch t := deref(t).(type) {
	case *types.Named:
		return l.entity(t.Obj())
	case *types.TypeParam:
		return l.entity(t.Obj())
	}
	return nil
}

// call lowers a call expression. Conversions become explicit casts and calls
// of builtins plain compounds; the callee of any other call is lowered as a
// value, so calling a function variable also reads it.
func (l *lowerer) call(e *ast.CallExpr) index.Node {
	if l.isType(e.Fun) {
		c := &index.Cast{Kind: index.CastConvert, Type: l.typeRef(e.Fun), Start: e.Fun.Pos()}
		if len(e.Args) == 1 {
			c.X = l.value(e.Args[0])
		}
		return c
	}
	if id, ok := ast.Unparen(e.Fun).(*ast.Ident); ok {
		if b, ok := l.info.Uses[id].(*types.Builtin); ok {
			list := make([]index.Node, 0, len(e.Args))
			for _, a := range e.Args {
				if n := l.typeOrValue(a); n != nil {
					list = append(list, n)
				}
			}
			return &index.Compound{What: b.Name(), From: e.Pos(), List: list}
		}
	}

	c := &index.Call{Lparen: e.Lparen, Args: l.values(e.Args)}
	fun := ast.Unparen(e.Fun)
	switch f := fun.(type) {
	case *ast.IndexExpr:
		if l.isType(f.Index) {
			c.Fun, c.TypeArgs = l.value(f.X), l.typeRefs([]ast.Expr{f.Index})
			return c
		}
	case *ast.IndexListExpr:
		c.Fun, c.TypeArgs = l.value(f.X), l.typeRefs(f.Indices)
		return c
	}
	c.Fun = l.value(e.Fun)
	return c
}

// instance lowers an instantiated generic function used as a value.
func (l *lowerer) instance(x ast.Expr, targs []ast.Expr) index.Node {
	c := &index.Compound{What: "instance", From: x.Pos(), List: nodes(l.value(x))}
	for _, t := range l.typeRefs(targs) {
		c.List = append(c.List, t)
	}
	return c
}

func (l *lowerer) typeRefs(list []ast.Expr) []*index.TypeRef {
	out := make([]*index.TypeRef, 0, len(list))
	for _, e := range list {
		if t := l.typeRef(e); t != nil {
			out = append(out, t)
		}
	}
	return out
}

func (l *lowerer) typeRef(e ast.Expr) *index.TypeRef {
	if e == nil {
		return nil
	}
	t := &index.TypeRef{TypePos: e.Pos(), Syntax: e}
	if tv, ok := l.info.Types[e]; ok {
		t.Type = l.typeEntity(tv.Type)
	}
	return t
}

// composite lowers a composite literal. A keyed struct literal gets both
// forms: the written one, whose keys become field designators, and the
// semantic one holding the values in field order. Keyed array and slice
// literals only have the written form; their keys are index designators.
func (l *lowerer) composite(e *ast.CompositeLit) index.Node {
	tref := l.typeRef(e.Type)
	typ := l.info.TypeOf(e)
	if typ == nil {
		return &index.InitList{Lbrace: e.Lbrace, Type: tref, Inits: l.values(e.Elts)}
	}
	switch u := deref(typ).Underlying().(type) {
	case *types.Struct:
		if isKeyed(e.Elts) {
			return l.structLit(e, u, tref)
		}
	case *types.Map:
		list := &index.InitList{Lbrace: e.Lbrace, Type: tref}
		for _, elt := range e.Elts {
			if n := l.expr(elt); n != nil {
				list.Inits = append(list.Inits, n)
			}
		}
		return list
	case *types.Array, *types.Slice:
		if isKeyed(e.Elts) {
			return l.indexedLit(e, tref)
		}
	}
	return &index.InitList{Lbrace: e.Lbrace, Type: tref, Inits: l.values(e.Elts)}
}

func isKeyed(elts []ast.Expr) bool {
	for _, elt := range elts {
		if _, ok := elt.(*ast.KeyValueExpr); ok {
			return true
		}
	}
	return false
}

func (l *lowerer) structLit(e *ast.CompositeLit, st *types.Struct, tref *index.TypeRef) *index.InitList {
	syn := &index.InitList{Lbrace: e.Lbrace, Type: tref, Written: true}
	byField := make(map[*types.Var]index.Node)
	for _, elt := range e.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		key, ok := kv.Key.(*ast.Ident)
		if !ok {
			continue
		}
		val := l.value(kv.Value)
		f, _ := l.info.Uses[key].(*types.Var)
		d := &index.DesignatedInit{Start: kv.Pos(), Init: val}
		if f != nil {
			d.Designators = []index.Designator{{Field: l.entity(f), FieldPos: key.Pos()}}
			if val != nil {
				byField[f] = val
			}
		}
		syn.Inits = append(syn.Inits, d)
	}

	sem := &index.InitList{Lbrace: e.Lbrace, Type: tref}
	for f := range st.Fields() {
		if v, ok := byField[f]; ok {
			sem.Inits = append(sem.Inits, v)
		}
	}
	sem.Alt, syn.Alt = syn, sem
	return sem
}

func (l *lowerer) indexedLit(e *ast.CompositeLit, tref *index.TypeRef) *index.InitList {
	syn := &index.InitList{Lbrace: e.Lbrace, Type: tref, Written: true}
	for _, elt := range e.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			if n := l.value(elt); n != nil {
				syn.Inits = append(syn.Inits, n)
			}
			continue
		}
		syn.Inits = append(syn.Inits, &index.DesignatedInit{
			Start:       kv.Pos(),
			Designators: []index.Designator{{Index: l.value(kv.Key)}},
			Init:        l.value(kv.Value),
		})
	}
	return syn
}

func (l *lowerer) closure(e *ast.FuncLit) index.Node {
	return &index.Closure{
		FuncPos:  e.Type.Func,
		Captures: l.captures(e),
		Type:     l.typeRef(e.Type),
		Body:     l.block(e.Body),
	}
}
