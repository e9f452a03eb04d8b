package goindex

import (
	"go/ast"
	"go/token"

	"xrefgen/xref"
)

// funcStats computes the syntactic stats of a function declaration:
// cyclomatic complexity, lines of code and parameter count. The remaining
// counts are derived from occurrences by xref.ComputeStats.
func funcStats(fset *token.FileSet, id string, fd *ast.FuncDecl) xref.FunctionStats {
	// Cyclomatic complexity: count decision points + 1
	complexity := 1
	if fd.Body != nil {
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.CaseClause, *ast.CommClause:
				complexity++
			case *ast.BinaryExpr:
				if n.Op == token.LAND || n.Op == token.LOR {
					complexity++
				}
			}
			return true
		})
	}

	start, end := fset.Position(fd.Pos()), fset.Position(fd.End())
	return xref.FunctionStats{
		FunctionID: id,
		Complexity: complexity,
		LOC:        end.Line - start.Line + 1,
		NumParams:  countParams(fd.Type),
	}
}

// countParams returns the total number of parameters in a function signature.
func countParams(ft *ast.FuncType) int {
	if ft == nil || ft.Params == nil {
		return 0
	}
	n := 0
	for _, field := range ft.Params.List {
		if len(field.Names) == 0 {
			n++ // unnamed parameter
		} else {
			n += len(field.Names)
		}
	}
	return n
}
