package index

import (
	"go/token"
	"strings"
)

// Role is a set of flags describing how an occurrence uses its entity.
type Role uint16

const (
	RoleRead Role = 1 << iota
	RoleWrite
	RoleCall
	RoleAddressOf
	RoleDynamic
	RoleImplicit
)

var roleNames = []struct {
	role Role
	name string
}{
	{RoleRead, "read"},
	{RoleWrite, "write"},
	{RoleCall, "call"},
	{RoleAddressOf, "addr"},
	{RoleDynamic, "dynamic"},
	{RoleImplicit, "implicit"},
}

// Has reports whether every role in o is present in r.
func (r Role) Has(o Role) bool { return r&o == o }

// Names returns the role names in a fixed order.
func (r Role) Names() []string {
	var names []string
	for _, rn := range roleNames {
		if r&rn.role != 0 {
			names = append(names, rn.name)
		}
	}
	return names
}

func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	return strings.Join(r.Names(), "|")
}

// ParseRole maps a role name as produced by Names back to its flag.
func ParseRole(name string) (Role, bool) {
	for _, rn := range roleNames {
		if rn.name == name {
			return rn.role, true
		}
	}
	return 0, false
}

// RelationKind identifies how an occurrence relates to another entity.
type RelationKind int

const (
	RelCalledBy RelationKind = iota + 1
	RelReceivedBy
)

func (k RelationKind) String() string {
	switch k {
	case RelCalledBy:
		return "called_by"
	case RelReceivedBy:
		return "received_by"
	}
	return "unknown"
}

// Relation links an occurrence to another entity.
type Relation struct {
	Kind   RelationKind
	Target *Entity
}

// Occurrence is one classified use of an entity inside a body.
type Occurrence struct {
	Entity    *Entity
	Pos       token.Pos
	Parent    *Entity // enclosing declaration
	Context   *Entity // enclosing declaration context
	Roles     Role
	Relations []Relation
	Node      Node // node that produced the occurrence
}
