package xref

import "xrefgen/index"

var calledBy = index.RelCalledBy.String()

// ComputeStats derives fan-in, fan-out and reference counts from the
// recorded occurrences. Fan-in and fan-out count distinct functions. Call
// targets without syntactic stats, such as functions of other modules, get
// an entry of their own so their fan-in is kept.
func (x *XRef) ComputeStats() {
	x.mu.Lock()
	defer x.mu.Unlock()

	callers := make(map[string]map[string]struct{}) // callee → callers
	callees := make(map[string]map[string]struct{}) // caller → callees

	for _, o := range x.Occurrences {
		if o.Roles.Has(index.RoleCall) {
			for _, r := range o.Relations {
				if r.Kind != calledBy {
					continue
				}
				addTo(callers, o.Entity, r.Target)
				addTo(callees, r.Target, o.Entity)
			}
		}
		if !x.isFunction(o.Parent) {
			continue
		}
		s := x.statsFor(o.Parent)
		s.Refs++
		if o.Roles.Has(index.RoleRead) {
			s.Reads++
		}
		if o.Roles.Has(index.RoleWrite) {
			s.Writes++
		}
		if o.Roles.Has(index.RoleCall) {
			s.Calls++
		}
		if o.Roles.Has(index.RoleDynamic) {
			s.DynamicCalls++
		}
	}

	for fn, cs := range callees {
		s := x.statsFor(fn)
		s.FanOut = len(cs)
		if _, self := cs[fn]; self {
			s.Recursive = true
		}
	}
	for fn, cs := range callers {
		x.statsFor(fn).FanIn = len(cs)
	}
}

func (x *XRef) isFunction(id string) bool {
	i, ok := x.entitySeen[id]
	if !ok {
		return false
	}
	switch x.Entities[i].Kind {
	case index.EntityFunction.String(), index.EntityMethod.String():
		return true
	}
	return false
}

func (x *XRef) statsFor(id string) *FunctionStats {
	s, ok := x.Stats[id]
	if !ok {
		s = &FunctionStats{FunctionID: id}
		x.Stats[id] = s
	}
	return s
}

func addTo(m map[string]map[string]struct{}, k, v string) {
	set, ok := m[k]
	if !ok {
		set = make(map[string]struct{})
		m[k] = set
	}
	set[v] = struct{}{}
}
