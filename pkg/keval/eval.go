// Package keval implements Komrad's expression evaluator and
// statement executor: reducing expressions to
// Values, realizing calls as sends, and driving a block
// statement-by-statement until it completes or an Error aborts it.
//
// Grounded on original_source/crates/komrad-agent/src/execute.rs,
// whose async Execute/ExecuteWithReply trait impls map onto Go
// methods taking a context.Context for cancellation instead of an
// implicit Tokio task boundary.
package keval

import (
	"context"

	"komrad/pkg/kast"
	"komrad/pkg/kchannel"
	"komrad/pkg/kclosure"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// Hooks lets the evaluator reach capabilities that would otherwise
// require importing pkg/kagent/pkg/kagents — packages that themselves
// depend on keval to run handler bodies. Wiring a function pointer
// here (set once by pkg/kruntime at process start) keeps the
// dependency graph acyclic while still letting "evaluate a List
// expression" spawn a real, addressable ListAgent.
type Hooks struct {
	// SpawnList spawns a ListAgent owning items and returns its
	// Channel as a Value.
	SpawnList func(ctx context.Context, items []kvalue.Value) kvalue.Value
}

// Evaluator reduces expressions to values and drives statement
// execution. It is stateless aside from its Hooks and safe to share
// across goroutines/agents.
type Evaluator struct {
	Hooks Hooks
}

func New(hooks Hooks) *Evaluator {
	return &Evaluator{Hooks: hooks}
}

// ExecBlock runs the statements of b in order against scope, returning
// the "last value". Execution stops early once an Error is produced.
func (ev *Evaluator) ExecBlock(ctx context.Context, b *kast.Block, scope *kscope.Scope) kvalue.Value {
	last := kvalue.Empty()
	for _, stmt := range b.Statements {
		switch stmt.Kind {
		case kast.StmtNoOp, kast.StmtComment:
			continue
		}
		last = ev.ExecStatement(ctx, stmt, scope)
		if last.IsError() {
			break
		}
	}
	return last
}

// ExecStatement executes a single statement.
func (ev *Evaluator) ExecStatement(ctx context.Context, stmt *kast.Statement, scope *kscope.Scope) kvalue.Value {
	switch stmt.Kind {
	case kast.StmtNoOp, kast.StmtComment:
		return kvalue.Empty()

	case kast.StmtExpr:
		return ev.evalAsTell(ctx, stmt.Expr, scope)

	case kast.StmtAssignment:
		var v kvalue.Value
		if stmt.Expr.Kind == kast.ExprCall {
			v = ev.evalAsAsk(ctx, stmt.Expr, scope)
		} else {
			v = ev.EvalExpr(ctx, stmt.Expr, scope)
		}
		scope.Set(stmt.Name, v)
		return v

	case kast.StmtField:
		return ev.execField(ctx, stmt, scope)

	case kast.StmtHandler:
		scope.AddHandler(stmt.Handler)
		return kvalue.Empty()

	case kast.StmtExpander:
		return ev.execExpander(ctx, stmt.Expr, scope)

	default:
		return kvalue.Empty()
	}
}

func (ev *Evaluator) execField(ctx context.Context, stmt *kast.Statement, scope *kscope.Scope) kvalue.Value {
	if existing, ok := scope.Get(stmt.Name); ok {
		return existing
	}
	var value kvalue.Value
	if stmt.Default != nil {
		value = ev.EvalExpr(ctx, stmt.Default, scope)
	} else {
		value = kvalue.Empty()
	}
	if stmt.TypeExpr != nil && !typeMatches(value, stmt.TypeExpr) {
		return kvalue.TypeMismatch("expected type %s, found %s", stmt.TypeExpr.Type, value.Kind)
	}
	scope.Set(stmt.Name, value)
	return value
}

func typeMatches(v kvalue.Value, t *kast.TypeExpr) bool {
	switch t.Kind {
	case kast.TEType, kast.TETypeHole:
		return v.Kind.IsSubtypeOf(t.Type)
	default:
		return true
	}
}

// execExpander implements the Expander statement: evaluate e, then
// dispatch on its runtime shape (Word re-lookup, Block execution,
// List-as-call, or Channel.items-then-call).
func (ev *Evaluator) execExpander(ctx context.Context, e *kast.Expr, scope *kscope.Scope) kvalue.Value {
	result := ev.EvalExpr(ctx, e, scope)
	return ev.expand(ctx, result, scope)
}

func (ev *Evaluator) expand(ctx context.Context, result kvalue.Value, scope *kscope.Scope) kvalue.Value {
	switch result.Kind {
	case kvalue.KindWord:
		if v, ok := scope.Get(result.Word); ok {
			return ev.expand(ctx, v, scope)
		}
		return kvalue.NameNotFound(result.Word)

	case kvalue.KindBlock:
		block, ok := result.Block.(*kast.Block)
		if !ok {
			return kvalue.TypeMismatch("expected a komrad block")
		}
		return ev.ExecBlock(ctx, block, scope)

	case kvalue.KindList:
		if len(result.List) == 0 || result.List[0].Kind != kvalue.KindChannel {
			return kvalue.TypeMismatch("expected a channel as the first list element")
		}
		return ev.callChannel(ctx, result.List[0], result.List[1:])

	case kvalue.KindChannel:
		items := ev.askWord(ctx, result, "items")
		if items.IsError() {
			return items
		}
		return ev.expand(ctx, items, scope)

	default:
		return kvalue.TypeMismatch("expected a word, block, list or channel, found %s", result.Kind)
	}
}

func (ev *Evaluator) askWord(ctx context.Context, target kvalue.Value, word string) kvalue.Value {
	return ev.ask(ctx, target, []kvalue.Value{kvalue.WordV(word)})
}

// EvalExpr reduces an expression to a Value. Calls
// encountered here are evaluated with their own CallKind (default
// tell, unless the AST explicitly marks them as ask); the "assignment
// forces ask" rule lives in ExecStatement, not here.
func (ev *Evaluator) EvalExpr(ctx context.Context, e *kast.Expr, scope *kscope.Scope) kvalue.Value {
	switch e.Kind {
	case kast.ExprValue:
		return e.Val

	case kast.ExprVariable:
		if v, ok := scope.Get(e.Name); ok {
			return v
		}
		return kvalue.WordV(e.Name)

	case kast.ExprBlockLit:
		return kclosure.Value(e.BlockLit, scope)

	case kast.ExprListLit:
		items := make([]kvalue.Value, len(e.ListLit))
		for i, item := range e.ListLit {
			items[i] = ev.EvalExpr(ctx, item, scope)
		}
		if ev.Hooks.SpawnList == nil {
			return kvalue.TypeMismatch("no list agent spawner configured")
		}
		return ev.Hooks.SpawnList(ctx, items)

	case kast.ExprBinary:
		return ev.evalBinary(ctx, e, scope)

	case kast.ExprCall:
		if e.CallKind == kast.CallAsk {
			return ev.evalAsAsk(ctx, e, scope)
		}
		return ev.evalAsTell(ctx, e, scope)

	default:
		return kvalue.Empty()
	}
}

func (ev *Evaluator) evalAsTell(ctx context.Context, e *kast.Expr, scope *kscope.Scope) kvalue.Value {
	if e.Kind != kast.ExprCall {
		return ev.EvalExpr(ctx, e, scope)
	}
	target, args := ev.evalCallParts(ctx, e, scope)
	if target.IsError() {
		return target
	}
	return ev.tell(ctx, target, args)
}

func (ev *Evaluator) evalAsAsk(ctx context.Context, e *kast.Expr, scope *kscope.Scope) kvalue.Value {
	if e.Kind != kast.ExprCall {
		return ev.EvalExpr(ctx, e, scope)
	}
	target, args := ev.evalCallParts(ctx, e, scope)
	if target.IsError() {
		return target
	}
	return ev.ask(ctx, target, args)
}

func (ev *Evaluator) evalCallParts(ctx context.Context, e *kast.Expr, scope *kscope.Scope) (kvalue.Value, []kvalue.Value) {
	args := make([]kvalue.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = ev.EvalExpr(ctx, a, scope)
	}
	target := ev.EvalExpr(ctx, e.Target, scope)
	return target, args
}

func (ev *Evaluator) tell(ctx context.Context, target kvalue.Value, args []kvalue.Value) kvalue.Value {
	if target.Kind != kvalue.KindChannel {
		return kvalue.ErrV(kvalue.RuntimeError{Kind: kvalue.ErrSendError})
	}
	ch, ok := target.Channel.(kchannel.Channel)
	if !ok {
		return kvalue.ErrV(kvalue.RuntimeError{Kind: kvalue.ErrSendError})
	}
	if err := ch.Send(ctx, kast.NewMessage(args, nil)); err != nil {
		return kvalue.Error(kvalue.ErrSendError)
	}
	return kvalue.Empty()
}

func (ev *Evaluator) callChannel(ctx context.Context, target kvalue.Value, args []kvalue.Value) kvalue.Value {
	return ev.ask(ctx, target, args)
}

// ask implements the ephemeral-reply-channel protocol: allocate a capacity-1 reply channel, send, await
// exactly one reply, return its first term.
func (ev *Evaluator) ask(ctx context.Context, target kvalue.Value, args []kvalue.Value) kvalue.Value {
	if target.Kind != kvalue.KindChannel {
		return kvalue.Error(kvalue.ErrSendError)
	}
	ch, ok := target.Channel.(kchannel.Channel)
	if !ok {
		return kvalue.Error(kvalue.ErrSendError)
	}
	replyChan, replyListener := kchannel.New(kchannel.ReplyCapacity)
	msg := kast.NewMessage(args, replyChan)
	if err := ch.Send(ctx, msg); err != nil {
		return kvalue.Error(kvalue.ErrSendError)
	}
	reply, ok := replyListener.Recv(ctx)
	if !ok {
		return kvalue.Error(kvalue.ErrReceiveError)
	}
	if len(reply.Terms) == 0 {
		return kvalue.Empty()
	}
	return reply.Terms[0]
}

// evalBinary implements Komrad's binary operators.
func (ev *Evaluator) evalBinary(ctx context.Context, e *kast.Expr, scope *kscope.Scope) kvalue.Value {
	left := ev.EvalExpr(ctx, e.Left, scope)
	if left.IsError() {
		return left
	}

	if e.Op == kast.OpAccess {
		return ev.evalAccess(ctx, e.Left, e.Right, scope, left)
	}

	right := ev.EvalExpr(ctx, e.Right, scope)
	if right.IsError() {
		return right
	}

	switch e.Op {
	case kast.OpAdd:
		return evalAdd(left, right)
	case kast.OpSub:
		return evalArith(left, right, func(a, b int64) int64 { return a - b }, func(a, b uint64) uint64 { return a - b }, func(a, b float64) float64 { return a - b })
	case kast.OpMul:
		return evalArith(left, right, func(a, b int64) int64 { return a * b }, func(a, b uint64) uint64 { return a * b }, func(a, b float64) float64 { return a * b })
	case kast.OpDiv:
		return evalDiv(left, right)
	case kast.OpMod:
		return evalMod(left, right)
	case kast.OpAnd:
		return evalLogical(left, right, func(a, b bool) bool { return a && b })
	case kast.OpOr:
		return evalLogical(left, right, func(a, b bool) bool { return a || b })
	case kast.OpEq:
		return kvalue.Bool(left.Equal(right))
	case kast.OpNeq:
		return kvalue.Bool(!left.Equal(right))
	default:
		return kvalue.TypeMismatch("unsupported binary operator %s", e.Op)
	}
}

// evalAccess implements Channel.Word and Word.Word member access:
// Channel.Word asks Word of the channel; Word.Word resolves the left
// word in scope (expecting a Channel) and recurses.
func (ev *Evaluator) evalAccess(ctx context.Context, leftExpr, rightExpr *kast.Expr, scope *kscope.Scope, left kvalue.Value) kvalue.Value {
	word, isWord := rightWordLiteral(rightExpr)
	if !isWord {
		return kvalue.TypeMismatch("access right-hand side must be a word")
	}

	switch left.Kind {
	case kvalue.KindChannel:
		return ev.askWord(ctx, left, word)
	case kvalue.KindWord:
		resolved, ok := scope.Get(left.Word)
		if !ok || resolved.Kind != kvalue.KindChannel {
			return kvalue.TypeMismatch("access left-hand side %q does not resolve to a channel", left.Word)
		}
		return ev.askWord(ctx, resolved, word)
	default:
		return kvalue.TypeMismatch("access on non-channel value %s", left.Kind)
	}
}

func rightWordLiteral(e *kast.Expr) (string, bool) {
	switch e.Kind {
	case kast.ExprVariable:
		return e.Name, true
	case kast.ExprValue:
		if e.Val.Kind == kvalue.KindWord {
			return e.Val.Word, true
		}
	}
	return "", false
}

func evalAdd(left, right kvalue.Value) kvalue.Value {
	switch {
	case left.Kind == kvalue.KindNumber && right.Kind == kvalue.KindNumber:
		return evalArith(left, right, func(a, b int64) int64 { return a + b }, func(a, b uint64) uint64 { return a + b }, func(a, b float64) float64 { return a + b })
	case left.Kind == kvalue.KindString && right.Kind == kvalue.KindString:
		return kvalue.Str(left.Str + right.Str)
	case left.Kind == kvalue.KindString && right.Kind == kvalue.KindNumber:
		return kvalue.Str(left.Str + right.Num.String())
	case left.Kind == kvalue.KindString && right.Kind == kvalue.KindChannel:
		return kvalue.Str(left.Str + right.Channel.UUID())
	case left.Kind == kvalue.KindString && right.Kind == kvalue.KindEmbedded:
		return kvalue.EmbeddedV(kvalue.Embedded{Tags: right.Embedded.Tags, Text: left.Str + right.Embedded.Text})
	case left.Kind == kvalue.KindEmbedded && right.Kind == kvalue.KindString:
		return kvalue.EmbeddedV(kvalue.Embedded{Tags: left.Embedded.Tags, Text: left.Embedded.Text + right.Str})
	default:
		return kvalue.TypeMismatch("unsupported + between %s and %s", left.Kind, right.Kind)
	}
}

func evalArith(left, right kvalue.Value, fi func(a, b int64) int64, fu func(a, b uint64) uint64, ff func(a, b float64) float64) kvalue.Value {
	if left.Kind != kvalue.KindNumber || right.Kind != kvalue.KindNumber || left.Num.Kind != right.Num.Kind {
		return kvalue.TypeMismatch("arithmetic requires matching numeric variants, found %s and %s", left.Kind, right.Kind)
	}
	switch left.Num.Kind {
	case kvalue.NumberInt:
		return kvalue.Num(kvalue.Int(fi(left.Num.Int, right.Num.Int)))
	case kvalue.NumberUInt:
		return kvalue.Num(kvalue.UInt(fu(left.Num.UInt, right.Num.UInt)))
	case kvalue.NumberFloat:
		return kvalue.Num(kvalue.Float(ff(left.Num.Float, right.Num.Float)))
	default:
		return kvalue.TypeMismatch("unknown numeric variant")
	}
}

func evalDiv(left, right kvalue.Value) kvalue.Value {
	if left.Kind != kvalue.KindNumber || right.Kind != kvalue.KindNumber || left.Num.Kind != right.Num.Kind {
		return kvalue.TypeMismatch("division requires matching numeric variants")
	}
	switch left.Num.Kind {
	case kvalue.NumberInt:
		if right.Num.Int == 0 {
			return kvalue.Error(kvalue.ErrDivisionByZero)
		}
		return kvalue.Num(kvalue.Int(left.Num.Int / right.Num.Int))
	case kvalue.NumberUInt:
		if right.Num.UInt == 0 {
			return kvalue.Error(kvalue.ErrDivisionByZero)
		}
		return kvalue.Num(kvalue.UInt(left.Num.UInt / right.Num.UInt))
	case kvalue.NumberFloat:
		if right.Num.Float == 0 {
			return kvalue.Error(kvalue.ErrDivisionByZero)
		}
		return kvalue.Num(kvalue.Float(left.Num.Float / right.Num.Float))
	default:
		return kvalue.TypeMismatch("unknown numeric variant")
	}
}

func evalMod(left, right kvalue.Value) kvalue.Value {
	if left.Kind != kvalue.KindNumber || right.Kind != kvalue.KindNumber || left.Num.Kind != right.Num.Kind {
		return kvalue.TypeMismatch("modulo requires matching numeric variants")
	}
	switch left.Num.Kind {
	case kvalue.NumberInt:
		if right.Num.Int == 0 {
			return kvalue.Error(kvalue.ErrDivisionByZero)
		}
		return kvalue.Num(kvalue.Int(left.Num.Int % right.Num.Int))
	case kvalue.NumberUInt:
		if right.Num.UInt == 0 {
			return kvalue.Error(kvalue.ErrDivisionByZero)
		}
		return kvalue.Num(kvalue.UInt(left.Num.UInt % right.Num.UInt))
	case kvalue.NumberFloat:
		if right.Num.Float == 0 {
			return kvalue.Error(kvalue.ErrDivisionByZero)
		}
		return kvalue.Num(kvalue.Float(left.Num.Float - right.Num.Float*float64(int64(left.Num.Float/right.Num.Float))))
	default:
		return kvalue.TypeMismatch("unknown numeric variant")
	}
}

func evalLogical(left, right kvalue.Value, f func(a, b bool) bool) kvalue.Value {
	if left.Kind != kvalue.KindBoolean || right.Kind != kvalue.KindBoolean {
		return kvalue.Empty()
	}
	return kvalue.Bool(f(left.Bool, right.Bool))
}
