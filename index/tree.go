package index

import "go/token"

// Node is a node of a body tree. Trees are built by a frontend from its own
// syntax and type information; the set of concrete node types is closed.
type Node interface {
	Pos() token.Pos
	node()
}

// Operator is the operator of a Unary, Binary, Assign or OperatorCall node.
type Operator int

const (
	OpNone Operator = iota

	// assignment family
	OpAssign
	OpDefine
	OpAddAssign
	OpSubAssign
	OpMulAssign
	OpQuoAssign
	OpRemAssign
	OpAndAssign
	OpOrAssign
	OpXorAssign
	OpShlAssign
	OpShrAssign
	OpAndNotAssign

	// unary
	OpPreInc
	OpPreDec
	OpPostInc
	OpPostDec
	OpAddrOf
	OpDeref
	OpPlus
	OpNeg
	OpNot
	OpComplement
	OpRecv

	// binary
	OpAdd
	OpSub
	OpMul
	OpQuo
	OpRem
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpAndNot
	OpLAnd
	OpLOr
	OpEql
	OpNeq
	OpLss
	OpLeq
	OpGtr
	OpGeq
	OpSubscript
	OpCall
	OpArrow
	OpComma
)

// IsAssign reports whether o is plain assignment or definition.
func (o Operator) IsAssign() bool { return o == OpAssign || o == OpDefine }

// IsCompoundAssign reports whether o reads and then writes its left operand.
func (o Operator) IsCompoundAssign() bool { return o >= OpAddAssign && o <= OpAndNotAssign }

// IsIncDec reports whether o is a pre/post increment or decrement.
func (o Operator) IsIncDec() bool { return o >= OpPreInc && o <= OpPostDec }

// DeclRef refers to a variable, parameter, constant or function by name.
type DeclRef struct {
	NamePos   token.Pos
	Decl      *Entity
	Qualifier *Qualifier // scope qualifier written before the name, if any
}

// Member is a member access: a field or method selected from Base.
type Member struct {
	Base      Node // nil for an implicit receiver
	Member    *Entity
	MemberPos token.Pos // may be NoPos for synthesized accesses
	Qualifier *Qualifier
	BaseType  *Entity // static type of Base, nil if unresolved
}

// IvarRef is an instance-variable reference.
type IvarRef struct {
	Base    Node
	Ivar    *Entity
	NamePos token.Pos
}

// PropertyRef is a property access. Implicit accesses resolve to accessor
// methods and are reported through the accompanying Message instead.
type PropertyRef struct {
	Base     Node
	Property *Entity
	NamePos  token.Pos
	Implicit bool
}

// ProtocolRef names a protocol in expression position.
type ProtocolRef struct {
	Protocol *Entity
	NamePos  token.Pos
}

// ReceiverKind tells what a Message is sent to.
type ReceiverKind int

const (
	ReceiverInstance ReceiverKind = iota
	ReceiverClass
	ReceiverSuperInstance
	ReceiverSuperClass
)

// Message is a message send: a call dispatched on the receiver at run time.
type Message struct {
	Receiver     Node // nil unless ReceiverKind is ReceiverInstance
	ReceiverKind ReceiverKind
	ReceiverType *Entity // static receiver interface, nil if unknown
	Method       *Entity
	SelectorPos  token.Pos
	Alloc        bool // method belongs to the allocation family
	Implicit     bool // synthesized by the compiler
	Start        token.Pos
	Args         []Node
}

// Boxed is a literal that boxes a value through an implicit method call.
type Boxed struct {
	Method *Entity // boxing method, nil if none
	Start  token.Pos
	X      Node
}

// CollectionLit is an array or dictionary literal built by an implicit
// with-objects style method call.
type CollectionLit struct {
	Method *Entity
	Start  token.Pos
	Elems  []Node
}

// Construct is an object construction that calls Ctor.
type Construct struct {
	Ctor *Entity
	Loc  token.Pos
	Type *TypeRef
	Args []Node
}

// Call is a call expression.
type Call struct {
	Fun      Node
	Lparen   token.Pos
	TypeArgs []*TypeRef
	Args     []Node
}

// OperatorCall is a call of an overloaded operator. Fun refers to the
// operator function; Args holds the operands. An OperatorCall without an
// operator position is implicit and is not traversed.
type OperatorCall struct {
	Op    Operator
	OpPos token.Pos
	Fun   Node
	Args  []Node
}

// Paren is a parenthesized expression.
type Paren struct {
	Lparen token.Pos
	X      Node
}

// CastKind describes what a Cast does to its operand's value.
type CastKind int

const (
	CastValue CastKind = iota // value-preserving
	CastLoad                  // loads the value stored in an lvalue
	CastConvert               // changes representation
)

// Cast converts X. Implicit casts are inserted by the type checker and are
// transparent to role classification.
type Cast struct {
	Implicit bool
	Kind     CastKind
	Type     *TypeRef // written target type of an explicit cast
	Start    token.Pos
	X        Node
}

// Unary is a prefix or postfix operator applied to X.
type Unary struct {
	Op    Operator
	OpPos token.Pos
	X     Node
}

// Binary is a binary operator expression.
type Binary struct {
	Op    Operator
	OpPos token.Pos
	X, Y  Node
}

// Assign is an assignment statement: plain, compound or defining. Decls holds
// the names newly declared by a defining assignment; they are not part of
// Lhs.
type Assign struct {
	Op     Operator
	TokPos token.Pos
	Lhs    []Node
	Rhs    []Node
	Decls  []*Decl
}

// Block is a braced statement list.
type Block struct {
	Lbrace token.Pos
	List   []Node
}

// Compound is any other statement or expression. Its children are listed in
// source order and carry no role-relevant meaning of their own.
type Compound struct {
	What string
	From token.Pos
	List []Node
}

// TypeRef is a written type. It is handed to Host.IndexTypeRef whole and is
// never traversed.
type TypeRef struct {
	TypePos token.Pos
	Type    *Entity // nil for unnamed types
	Syntax  any     // frontend syntax for the type
}

// Qualifier is a written scope qualifier such as a package or type name in
// front of a member. It is handed to Host.IndexQualifier whole.
type Qualifier struct {
	ScopePos token.Pos
	Scope    *Entity
	Syntax   any
}

// Decl is one declaration of a declaration group.
type Decl struct {
	Entity  *Entity
	NamePos token.Pos
	Syntax  any
}

// DeclStmt is a declaration statement inside a body.
type DeclStmt struct {
	TokPos token.Pos
	Decls  []*Decl
	Type   *TypeRef
	Values []Node
}

// Designator is one component of a designated initializer: either a field
// (.field) or an index ([expr]).
type Designator struct {
	Field    *Entity
	FieldPos token.Pos
	Index    Node
}

// IsField reports whether d designates a field.
func (d Designator) IsField() bool { return d.Field != nil }

// DesignatedInit is an initializer element with designators.
type DesignatedInit struct {
	Start       token.Pos
	Designators []Designator
	Init        Node
}

// InitList is an aggregate initializer. A list may have two representations:
// the list as written (Written is set) and the resolved semantic list, one
// entry per initialized member. Alt links one representation to the other.
type InitList struct {
	Lbrace  token.Pos
	Type    *TypeRef
	Inits   []Node
	Written bool
	Alt     *InitList
}

// SemanticForm returns the resolved representation, or nil.
func (l *InitList) SemanticForm() *InitList {
	if !l.Written {
		return l
	}
	return l.Alt
}

// SyntacticForm returns the as-written representation, or nil.
func (l *InitList) SyntacticForm() *InitList {
	if l.Written {
		return l
	}
	return l.Alt
}

// CaptureKind tells what a closure capture refers to.
type CaptureKind int

const (
	CaptureVar CaptureKind = iota
	CaptureThis
	CaptureVLAType
)

// Capture is one variable captured by a closure.
type Capture struct {
	Kind CaptureKind
	Var  *Entity
	Loc  token.Pos
}

// Closure is a function literal together with what it captures.
type Closure struct {
	FuncPos  token.Pos
	Captures []Capture
	Type     *TypeRef
	Body     Node
}

func (n *DeclRef) Pos() token.Pos { return n.NamePos }
func (n *Member) Pos() token.Pos {
	if !isNil(n.Base) && n.Base.Pos().IsValid() {
		return n.Base.Pos()
	}
	return n.MemberPos
}
func (n *IvarRef) Pos() token.Pos {
	if !isNil(n.Base) && n.Base.Pos().IsValid() {
		return n.Base.Pos()
	}
	return n.NamePos
}
func (n *PropertyRef) Pos() token.Pos {
	if !isNil(n.Base) && n.Base.Pos().IsValid() {
		return n.Base.Pos()
	}
	return n.NamePos
}
func (n *ProtocolRef) Pos() token.Pos    { return n.NamePos }
func (n *Message) Pos() token.Pos        { return n.Start }
func (n *Boxed) Pos() token.Pos          { return n.Start }
func (n *CollectionLit) Pos() token.Pos  { return n.Start }
func (n *Construct) Pos() token.Pos      { return n.Loc }
func (n *Call) Pos() token.Pos           { return firstPos(n.Lparen, []Node{n.Fun}) }
func (n *OperatorCall) Pos() token.Pos   { return firstPos(n.OpPos, n.Args) }
func (n *Paren) Pos() token.Pos          { return n.Lparen }
func (n *Cast) Pos() token.Pos           { return firstPos(n.Start, []Node{n.X}) }
func (n *Unary) Pos() token.Pos          { return firstPos(n.OpPos, []Node{n.X}) }
func (n *Binary) Pos() token.Pos         { return firstPos(n.OpPos, []Node{n.X}) }
func (n *Assign) Pos() token.Pos         { return firstPos(n.TokPos, n.Lhs) }
func (n *Block) Pos() token.Pos          { return n.Lbrace }
func (n *Compound) Pos() token.Pos       { return n.From }
func (n *TypeRef) Pos() token.Pos        { return n.TypePos }
func (n *Qualifier) Pos() token.Pos      { return n.ScopePos }
func (n *DeclStmt) Pos() token.Pos       { return n.TokPos }
func (n *DesignatedInit) Pos() token.Pos { return n.Start }
func (n *InitList) Pos() token.Pos       { return n.Lbrace }
func (n *Closure) Pos() token.Pos        { return n.FuncPos }

// firstPos returns the earliest valid position among p and the positions of
// nodes.
func firstPos(p token.Pos, nodes []Node) token.Pos {
	for _, n := range nodes {
		if isNil(n) {
			continue
		}
		if np := n.Pos(); np.IsValid() && (!p.IsValid() || np < p) {
			p = np
		}
	}
	return p
}

func (*DeclRef) node()        {}
func (*Member) node()         {}
func (*IvarRef) node()        {}
func (*PropertyRef) node()    {}
func (*ProtocolRef) node()    {}
func (*Message) node()        {}
func (*Boxed) node()          {}
func (*CollectionLit) node()  {}
func (*Construct) node()      {}
func (*Call) node()           {}
func (*OperatorCall) node()   {}
func (*Paren) node()          {}
func (*Cast) node()           {}
func (*Unary) node()          {}
func (*Binary) node()         {}
func (*Assign) node()         {}
func (*Block) node()          {}
func (*Compound) node()       {}
func (*TypeRef) node()        {}
func (*Qualifier) node()      {}
func (*DeclStmt) node()       {}
func (*DesignatedInit) node() {}
func (*InitList) node()       {}
func (*Closure) node()        {}

// isNil reports whether n is nil or a typed nil pointer.
func isNil(n Node) bool {
	switch n := n.(type) {
	case nil:
		return true
	case *DeclRef:
		return n == nil
	case *Member:
		return n == nil
	case *IvarRef:
		return n == nil
	case *PropertyRef:
		return n == nil
	case *ProtocolRef:
		return n == nil
	case *Message:
		return n == nil
	case *Boxed:
		return n == nil
	case *CollectionLit:
		return n == nil
	case *Construct:
		return n == nil
	case *Call:
		return n == nil
	case *OperatorCall:
		return n == nil
	case *Paren:
		return n == nil
	case *Cast:
		return n == nil
	case *Unary:
		return n == nil
	case *Binary:
		return n == nil
	case *Assign:
		return n == nil
	case *Block:
		return n == nil
	case *Compound:
		return n == nil
	case *TypeRef:
		return n == nil
	case *Qualifier:
		return n == nil
	case *DeclStmt:
		return n == nil
	case *DesignatedInit:
		return n == nil
	case *InitList:
		return n == nil
	case *Closure:
		return n == nil
	}
	return false
}
