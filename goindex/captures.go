package goindex

import (
	"go/ast"
	"go/types"

	"xrefgen/index"
)

// captures lists the variables lit uses from the functions enclosing it, in
// order of first use. Package-level variables are not captured. A use of the
// method receiver is a CaptureThis, which names no variable.
func (l *lowerer) captures(lit *ast.FuncLit) []index.Capture {
	var caps []index.Capture
	seen := make(map[*types.Var]bool)
	ast.Inspect(lit.Body, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		v, ok := l.info.Uses[id].(*types.Var)
		if !ok || seen[v] || !isLocal(v) {
			return true
		}
		if v.Pos() >= lit.Pos() && v.Pos() < lit.End() {
			return true // declared inside the literal
		}
		seen[v] = true
		if l.recv != nil && types.Object(v) == l.recv {
			caps = append(caps, index.Capture{Kind: index.CaptureThis, Loc: lit.Type.Func})
			return true
		}
		caps = append(caps, index.Capture{Kind: index.CaptureVar, Var: l.entity(v), Loc: lit.Type.Func})
		return true
	})
	return caps
}
