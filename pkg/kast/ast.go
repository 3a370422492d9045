// Package kast defines Komrad's abstract syntax: expressions,
// statements, patterns and handlers. Programs are built directly as
// these Go values.
package kast

import (
	"fmt"
	"strings"

	"komrad/pkg/kvalue"
)

// BinaryOp enumerates Komrad's binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpEq
	OpNeq
	OpAccess // "."
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpAccess:
		return "."
	default:
		return "?"
	}
}

// CompareOp enumerates the comparison operators usable in a pattern's
// binary-predicate term, including the integer-only
// "divisible by" relation.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpNeq
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpDivisible
)

func (op CompareOp) String() string {
	switch op {
	case CmpEq:
		return "=="
	case CmpNeq:
		return "!="
	case CmpLt:
		return "<"
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	case CmpGe:
		return ">="
	case CmpDivisible:
		return "%%"
	default:
		return "?"
	}
}

// ExprKind tags an Expr's variant.
type ExprKind int

const (
	ExprValue ExprKind = iota
	ExprVariable
	ExprBinary
	ExprCall
	ExprBlockLit
	ExprListLit
)

// Expr is Komrad's expression AST.
type Expr struct {
	Kind ExprKind

	Val      kvalue.Value // ExprValue
	Name     string       // ExprVariable
	Op       BinaryOp     // ExprBinary
	Left     *Expr        // ExprBinary
	Right    *Expr        // ExprBinary
	Target   *Expr        // ExprCall
	Args     []*Expr      // ExprCall
	CallKind CallKind     // ExprCall
	BlockLit *Block       // ExprBlockLit
	ListLit  []*Expr      // ExprListLit
}

// CallKind distinguishes a fire-and-forget tell from a blocking ask.
type CallKind int

const (
	CallTell CallKind = iota
	CallAsk
)

func ValueExpr(v kvalue.Value) *Expr  { return &Expr{Kind: ExprValue, Val: v} }
func Variable(name string) *Expr      { return &Expr{Kind: ExprVariable, Name: name} }
func Binary(op BinaryOp, l, r *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Op: op, Left: l, Right: r}
}
func Call(kind CallKind, target *Expr, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, CallKind: kind, Target: target, Args: args}
}
func BlockLit(b *Block) *Expr   { return &Expr{Kind: ExprBlockLit, BlockLit: b} }
func ListLit(items ...*Expr) *Expr { return &Expr{Kind: ExprListLit, ListLit: items} }

// StmtKind tags a Statement's variant.
type StmtKind int

const (
	StmtNoOp StmtKind = iota
	StmtComment
	StmtExpr
	StmtAssignment
	StmtField
	StmtHandler
	StmtExpander
)

// Statement is one line of a Block.
type Statement struct {
	Kind StmtKind

	Comment    string   // StmtComment
	Expr       *Expr    // StmtExpr, StmtAssignment, StmtExpander
	Name       string   // StmtAssignment, StmtField
	TypeExpr   *TypeExpr // StmtField
	Default    *Expr    // StmtField, optional
	Handler    *Handler // StmtHandler
}

func NoOp() *Statement     { return &Statement{Kind: StmtNoOp} }
func Comment(s string) *Statement { return &Statement{Kind: StmtComment, Comment: s} }
func ExprStmt(e *Expr) *Statement { return &Statement{Kind: StmtExpr, Expr: e} }
func Assign(name string, e *Expr) *Statement {
	return &Statement{Kind: StmtAssignment, Name: name, Expr: e}
}
func Field(name string, t *TypeExpr, def *Expr) *Statement {
	return &Statement{Kind: StmtField, Name: name, TypeExpr: t, Default: def}
}
func HandlerStmt(h *Handler) *Statement { return &Statement{Kind: StmtHandler, Handler: h} }
func Expander(e *Expr) *Statement       { return &Statement{Kind: StmtExpander, Expr: e} }

// Block is an ordered sequence of statements, first-class
// as a kvalue.Value once it has passed through the closure transform
// (pkg/kclosure).
type Block struct {
	Statements []*Statement
}

func NewBlock(stmts ...*Statement) *Block { return &Block{Statements: stmts} }

// Sexpr renders a Block compactly for logs and error messages. It is
// not a full printer — just enough structure to make log lines
// legible, satisfying kvalue.BlockValue.
func (b *Block) Sexpr() string {
	if b == nil {
		return "(block)"
	}
	parts := make([]string, len(b.Statements))
	for i, s := range b.Statements {
		parts[i] = s.sexpr()
	}
	return "(block " + strings.Join(parts, " ") + ")"
}

func (s *Statement) sexpr() string {
	switch s.Kind {
	case StmtNoOp:
		return "(noop)"
	case StmtComment:
		return "(comment)"
	case StmtExpr:
		return s.Expr.sexpr()
	case StmtAssignment:
		return fmt.Sprintf("(= %s %s)", s.Name, s.Expr.sexpr())
	case StmtField:
		return fmt.Sprintf("(field %s)", s.Name)
	case StmtHandler:
		return "(handler)"
	case StmtExpander:
		return "(expand " + s.Expr.sexpr() + ")"
	default:
		return "?"
	}
}

func (e *Expr) sexpr() string {
	if e == nil {
		return "()"
	}
	switch e.Kind {
	case ExprValue:
		return e.Val.String()
	case ExprVariable:
		return e.Name
	case ExprBinary:
		return fmt.Sprintf("(%s %s %s)", e.Op, e.Left.sexpr(), e.Right.sexpr())
	case ExprCall:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.sexpr()
		}
		return fmt.Sprintf("(call %s %s)", e.Target.sexpr(), strings.Join(parts, " "))
	case ExprBlockLit:
		return e.BlockLit.Sexpr()
	case ExprListLit:
		parts := make([]string, len(e.ListLit))
		for i, a := range e.ListLit {
			parts[i] = a.sexpr()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return "?"
	}
}

// TypeExprKind tags a pattern term's variant.
type TypeExprKind int

const (
	TEEmpty TypeExprKind = iota
	TEWord
	TEValue
	TEType
	TEHole
	TETypeHole
	TEBlockHole
	TEBinary
)

// TypeExpr is one term of a Pattern.
type TypeExpr struct {
	Kind TypeExprKind

	Word  string       // TEWord
	Value kvalue.Value // TEValue, TEBinary (comparison operand)
	Type  kvalue.Kind  // TEType, TETypeHole
	Name  string       // TEHole, TETypeHole, TEBlockHole, TEBinary
	CmpOp CompareOp    // TEBinary
}

func TEmptyTerm() *TypeExpr { return &TypeExpr{Kind: TEEmpty} }
func TWord(w string) *TypeExpr { return &TypeExpr{Kind: TEWord, Word: w} }
func TValue(v kvalue.Value) *TypeExpr { return &TypeExpr{Kind: TEValue, Value: v} }
func TType(k kvalue.Kind) *TypeExpr   { return &TypeExpr{Kind: TEType, Type: k} }
func THole(name string) *TypeExpr     { return &TypeExpr{Kind: TEHole, Name: name} }
func TTypeHole(name string, k kvalue.Kind) *TypeExpr {
	return &TypeExpr{Kind: TETypeHole, Name: name, Type: k}
}
func TBlockHole(name string) *TypeExpr { return &TypeExpr{Kind: TEBlockHole, Name: name} }
func TBinary(name string, op CompareOp, v kvalue.Value) *TypeExpr {
	return &TypeExpr{Kind: TEBinary, Name: name, CmpOp: op, Value: v}
}

// Pattern is an ordered sequence of TypeExpr terms used for dispatch.
type Pattern struct {
	Terms []*TypeExpr
}

func NewPattern(terms ...*TypeExpr) *Pattern { return &Pattern{Terms: terms} }

// Handler is an immutable (Pattern, Block) pair.
type Handler struct {
	Pattern *Pattern
	Block   *Block
}

func NewHandler(p *Pattern, b *Block) *Handler { return &Handler{Pattern: p, Block: b} }

// Message is an ordered sequence of Value terms plus an optional reply
// channel. ReplyTo is a kvalue.ChannelRef to avoid an
// import cycle with pkg/kchannel; callers hand in a kchannel.Channel
// value, which is what receivers type-assert it back to.
type Message struct {
	Terms   []kvalue.Value
	ReplyTo kvalue.ChannelRef
}

func NewMessage(terms []kvalue.Value, replyTo kvalue.ChannelRef) Message {
	return Message{Terms: terms, ReplyTo: replyTo}
}

// FirstWord returns the conventional "command" of a message: its first
// term, if that term is a Word.
func (m Message) FirstWord() (string, bool) {
	if len(m.Terms) == 0 || m.Terms[0].Kind != kvalue.KindWord {
		return "", false
	}
	return m.Terms[0].Word, true
}

func (m Message) String() string {
	parts := make([]string, len(m.Terms))
	for i, t := range m.Terms {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
