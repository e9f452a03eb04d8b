package xref

import (
	"cmp"
	"slices"
	"sync"

	"xrefgen/index"
)

// Entity is a declaration that occurrences refer to.
type Entity struct {
	ID        string
	Key       int64 // hash of ID, for compact joins
	Name      string
	Kind      string
	Package   string // relative import path
	File      string // relative to the module root, "" outside it
	Line, Col int
	Exported  bool
	Virtual   bool
	Local     bool // declared inside a function
}

// Relation links an occurrence to a second entity.
type Relation struct {
	Kind   string
	Target string
}

// Occurrence is one classified reference to an entity.
type Occurrence struct {
	Entity    string
	File      string
	Line, Col int
	Package   string
	Parent    string // enclosing declaration
	Context   string // declaration context
	Roles     index.Role
	Kind      string // ref, member, type_ref, qualifier, capture, designator, decl
	Relations []Relation
}

// Override records that Method satisfies the interface method Overridden.
type Override struct {
	Method     string
	Overridden string
	Type       string
	Interface  string
}

// FunctionStats holds per-function counts. Complexity, LOC and NumParams come
// from the function's syntax; the rest is derived from occurrences by
// ComputeStats.
type FunctionStats struct {
	FunctionID   string
	Complexity   int
	LOC          int
	NumParams    int
	FanIn        int
	FanOut       int
	Refs         int
	Reads        int
	Writes       int
	Calls        int
	DynamicCalls int
	Recursive    bool
}

type occKey struct {
	Entity, File string
	Line, Col    int
	Kind         string
}

type overrideKey struct {
	Method, Overridden string
}

// XRef accumulates the cross-reference data of a run before it is flushed to
// SQLite. All methods are safe for concurrent use.
type XRef struct {
	mu sync.Mutex

	Entities    []Entity
	Occurrences []Occurrence
	Overrides   []Override
	Sources     map[string]Source        // file → source
	Stats       map[string]*FunctionStats // function_id → stats

	entitySeen   map[string]int
	occSeen      map[occKey]struct{}
	overrideSeen map[overrideKey]struct{}
}

// Source is the content of one indexed file.
type Source struct {
	Content string
	Package string
}

// New creates an empty XRef ready for population.
func New() *XRef {
	return &XRef{
		Sources:      make(map[string]Source),
		Stats:        make(map[string]*FunctionStats),
		entitySeen:   make(map[string]int),
		occSeen:      make(map[occKey]struct{}),
		overrideSeen: make(map[overrideKey]struct{}),
	}
}

// AddEntity appends an entity, deduplicating by ID (first wins). It reports
// whether e was new.
func (x *XRef) AddEntity(e Entity) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, dup := x.entitySeen[e.ID]; dup {
		return false
	}
	x.entitySeen[e.ID] = len(x.Entities)
	x.Entities = append(x.Entities, e)
	return true
}

// HasEntity reports whether an entity with the given ID was added.
func (x *XRef) HasEntity(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.entitySeen[id]
	return ok
}

// Entity returns the entity with the given ID.
func (x *XRef) Entity(id string) (Entity, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	i, ok := x.entitySeen[id]
	if !ok {
		return Entity{}, false
	}
	return x.Entities[i], true
}

// AddOccurrence appends o unless an occurrence of the same entity and kind
// was already recorded at the same position. It reports whether o was new.
func (x *XRef) AddOccurrence(o Occurrence) bool {
	k := occKey{o.Entity, o.File, o.Line, o.Col, o.Kind}
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, dup := x.occSeen[k]; dup {
		return false
	}
	x.occSeen[k] = struct{}{}
	x.Occurrences = append(x.Occurrences, o)
	return true
}

// AddOverride appends o if the same method pair is not already present.
func (x *XRef) AddOverride(o Override) bool {
	k := overrideKey{o.Method, o.Overridden}
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, dup := x.overrideSeen[k]; dup {
		return false
	}
	x.overrideSeen[k] = struct{}{}
	x.Overrides = append(x.Overrides, o)
	return true
}

// AddSource records the content of an indexed file.
func (x *XRef) AddSource(file, pkg, content string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.Sources[file] = Source{Content: content, Package: pkg}
}

// SetStats stores the syntactic stats of a function, keeping any counts
// already derived for it.
func (x *XRef) SetStats(s FunctionStats) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if cur, ok := x.Stats[s.FunctionID]; ok {
		cur.Complexity, cur.LOC, cur.NumParams = s.Complexity, s.LOC, s.NumParams
		return
	}
	x.Stats[s.FunctionID] = &s
}

// Sort puts entities in ID order and occurrences in position order. Packages
// indexed concurrently append in any order; sorting makes the written
// database independent of scheduling. Occurrences at the same position keep
// the order they were reported in.
func (x *XRef) Sort() {
	x.mu.Lock()
	defer x.mu.Unlock()
	slices.SortFunc(x.Entities, func(a, b Entity) int { return cmp.Compare(a.ID, b.ID) })
	for i, e := range x.Entities {
		x.entitySeen[e.ID] = i
	}
	slices.SortStableFunc(x.Occurrences, func(a, b Occurrence) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Col, b.Col),
		)
	})
	slices.SortFunc(x.Overrides, func(a, b Override) int {
		return cmp.Or(cmp.Compare(a.Method, b.Method), cmp.Compare(a.Overridden, b.Overridden))
	})
}
