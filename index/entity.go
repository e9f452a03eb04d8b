package index

// EntityKind classifies what an Entity names.
type EntityKind int

const (
	EntityUnknown EntityKind = iota
	EntityPackage
	EntityFunction
	EntityMethod
	EntityConstructor
	EntityVariable
	EntityParam
	EntityField
	EntityConstant
	EntityType
	EntityInterface
	EntityProperty
	EntityIvar
	EntityProtocol
)

var entityKindNames = [...]string{
	EntityUnknown:     "unknown",
	EntityPackage:     "package",
	EntityFunction:    "function",
	EntityMethod:      "method",
	EntityConstructor: "constructor",
	EntityVariable:    "variable",
	EntityParam:       "param",
	EntityField:       "field",
	EntityConstant:    "constant",
	EntityType:        "type",
	EntityInterface:   "interface",
	EntityProperty:    "property",
	EntityIvar:        "ivar",
	EntityProtocol:    "protocol",
}

func (k EntityKind) String() string {
	if k < 0 || int(k) >= len(entityKindNames) {
		return "unknown"
	}
	return entityKindNames[k]
}

// Entity is a named declaration that occurrences refer to. Entities are owned
// by the frontend that built the tree; the indexer only reads them.
type Entity struct {
	ID   string // stable cross-reference key
	Name string
	Kind EntityKind
	// Virtual is set on methods whose calls through a member access are
	// dispatched on the dynamic type of the receiver.
	Virtual bool
	// Context is the lexical declaration context. IndexBody falls back to it
	// when no explicit context is given.
	Context *Entity
	// Object is the frontend's handle for the declaration (e.g. types.Object).
	Object any
}

// IsCallable reports whether e can be the target of a CalledBy relation.
func (e *Entity) IsCallable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case EntityFunction, EntityMethod, EntityConstructor:
		return true
	}
	return false
}

func (e *Entity) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.ID != "" {
		return e.ID
	}
	return e.Name
}
