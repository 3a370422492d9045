// Package kclosure implements the closure transform: substituting the
// free variables of a block against the current scope, yielding a
// self-contained Block value.
//
// Grounded on original_source/crates/komrad-agent/src/closure.rs,
// whose recursive Closure trait impls map directly onto a Go
// recursive function per AST node kind. The transform is pure: inputs
// are never mutated. Rewritten nodes are freshly allocated; leaves that
// need no substitution, and handler statements, are shared with the
// input.
package kclosure

import (
	"komrad/pkg/kast"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// Transform substitutes every Variable(n) in block for which scope has
// a binding with the literal Value(scope.Get(n)), descending into
// sub-blocks, call arguments, call targets, and binary operands.
// Unbound variables are preserved as Variable(n).
func Transform(block *kast.Block, scope *kscope.Scope) *kast.Block {
	stmts := make([]*kast.Statement, len(block.Statements))
	for i, s := range block.Statements {
		stmts[i] = transformStatement(s, scope)
	}
	return kast.NewBlock(stmts...)
}

// Value applies Transform and wraps the result as a kvalue.Value — a
// fresh AST wrapped as a Block value.
func Value(block *kast.Block, scope *kscope.Scope) kvalue.Value {
	return kvalue.BlockV(Transform(block, scope))
}

func transformStatement(s *kast.Statement, scope *kscope.Scope) *kast.Statement {
	switch s.Kind {
	case kast.StmtNoOp, kast.StmtComment, kast.StmtHandler:
		// Handlers are captured by reference, not re-closed: their
		// pattern/block pair is shared and immutable.
		return s
	case kast.StmtExpr:
		return kast.ExprStmt(transformExpr(s.Expr, scope))
	case kast.StmtAssignment:
		return kast.Assign(s.Name, transformExpr(s.Expr, scope))
	case kast.StmtField:
		var def *kast.Expr
		if s.Default != nil {
			def = transformExpr(s.Default, scope)
		}
		return kast.Field(s.Name, s.TypeExpr, def)
	case kast.StmtExpander:
		return kast.Expander(transformExpr(s.Expr, scope))
	default:
		return s
	}
}

func transformExpr(e *kast.Expr, scope *kscope.Scope) *kast.Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case kast.ExprVariable:
		if v, ok := scope.Get(e.Name); ok {
			return kast.ValueExpr(v)
		}
		return e
	case kast.ExprValue:
		return e
	case kast.ExprBinary:
		return kast.Binary(e.Op, transformExpr(e.Left, scope), transformExpr(e.Right, scope))
	case kast.ExprCall:
		args := make([]*kast.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = transformExpr(a, scope)
		}
		return &kast.Expr{
			Kind:     kast.ExprCall,
			CallKind: e.CallKind,
			Target:   transformExpr(e.Target, scope),
			Args:     args,
		}
	case kast.ExprBlockLit:
		return kast.BlockLit(Transform(e.BlockLit, scope))
	case kast.ExprListLit:
		items := make([]*kast.Expr, len(e.ListLit))
		for i, a := range e.ListLit {
			items[i] = transformExpr(a, scope)
		}
		return kast.ListLit(items...)
	default:
		return e
	}
}
