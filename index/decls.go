package index

// indexDecls hands a local declaration group to the host. With
// function-local indexing the group goes whole to IndexDeclGroup; otherwise
// only its non-local members reach IndexTopLevelDecl and locals are dropped.
// Initializers are walked by the caller either way.
func (w *walker) indexDecls(decls []*Decl) {
	if w.opts.IndexFunctionLocals {
		w.host.IndexDeclGroup(decls, w.parent, w.dc)
		return
	}
	for _, d := range decls {
		if d == nil {
			continue
		}
		if !w.host.IsFunctionLocalDecl(d) {
			w.host.IndexTopLevelDecl(d)
		}
	}
}
