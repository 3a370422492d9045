// Package kvalue defines Komrad's closed sum of runtime values.
//
// A Value is the only thing that ever crosses an agent boundary: it is
// what messages carry, what patterns match against, and what
// expressions reduce to. Value is a tagged struct rather than an
// interface so that equality and ordering stay simple field
// comparisons instead of type-switched dynamic dispatch.
package kvalue

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags which variant of the sum a Value currently holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindBytes
	KindWord
	KindList
	KindBlock
	KindChannel
	KindEmbedded
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "Empty"
	case KindBoolean:
		return "Boolean"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindWord:
		return "Word"
	case KindList:
		return "List"
	case KindBlock:
		return "Block"
	case KindChannel:
		return "Channel"
	case KindEmbedded:
		return "Embedded"
	case KindError:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsSubtypeOf implements the type-ascription/type-hole subtyping rule:
// every type is a subtype of itself, and Empty is a subtype of every
// type.
func (k Kind) IsSubtypeOf(other Kind) bool {
	if k == KindEmpty {
		return true
	}
	return k == other
}

// NumberKind selects which numeric representation a Number value holds.
type NumberKind int

const (
	NumberInt NumberKind = iota
	NumberUInt
	NumberFloat
)

// Number is Komrad's numeric value: a signed integer, unsigned integer,
// or double, each a distinct runtime variant.
type Number struct {
	Kind  NumberKind
	Int   int64
	UInt  uint64
	Float float64
}

func Int(v int64) Number   { return Number{Kind: NumberInt, Int: v} }
func UInt(v uint64) Number { return Number{Kind: NumberUInt, UInt: v} }
func Float(v float64) Number { return Number{Kind: NumberFloat, Float: v} }

func (n Number) String() string {
	switch n.Kind {
	case NumberInt:
		return fmt.Sprintf("%d", n.Int)
	case NumberUInt:
		return fmt.Sprintf("%d", n.UInt)
	case NumberFloat:
		return fmt.Sprintf("%g", n.Float)
	default:
		return "<bad-number>"
	}
}

// Equal implements structural equality within the *same* numeric
// variant only. Open Question (b) in SPEC_FULL.md: Int(n) and UInt(n)
// representing the same integer are NOT equal, matching the source.
func (n Number) Equal(o Number) bool {
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case NumberInt:
		return n.Int == o.Int
	case NumberUInt:
		return n.UInt == o.UInt
	case NumberFloat:
		return n.Float == o.Float
	}
	return false
}

// Compare returns -1/0/1 for ordering within the same numeric variant;
// ok is false for cross-variant comparisons.
func (n Number) Compare(o Number) (cmp int, ok bool) {
	if n.Kind != o.Kind {
		return 0, false
	}
	switch n.Kind {
	case NumberInt:
		if n.Int == o.Int {
			return 0, true
		}
		if n.Int < o.Int {
			return -1, true
		}
		return 1, true
	case NumberUInt:
		if n.UInt == o.UInt {
			return 0, true
		}
		if n.UInt < o.UInt {
			return -1, true
		}
		return 1, true
	case NumberFloat:
		if n.Float == o.Float {
			return 0, true
		}
		if n.Float < o.Float {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func sign(v int64) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// ErrorKind enumerates the observable runtime error kinds.
type ErrorKind int

const (
	ErrSendError ErrorKind = iota
	ErrReceiveError
	ErrSendControlError
	ErrReceiveControlError
	ErrDivisionByZero
	ErrTypeMismatch
	ErrNameNotFound
	ErrAssertionFailed
	ErrInvalidAgentDefinition
	ErrAgentNotFound
	ErrExternalServiceError
	ErrParseError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSendError:
		return "SendError"
	case ErrReceiveError:
		return "ReceiveError"
	case ErrSendControlError:
		return "SendControlError"
	case ErrReceiveControlError:
		return "ReceiveControlError"
	case ErrDivisionByZero:
		return "DivisionByZero"
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrNameNotFound:
		return "NameNotFound"
	case ErrAssertionFailed:
		return "AssertionFailed"
	case ErrInvalidAgentDefinition:
		return "InvalidAgentDefinition"
	case ErrAgentNotFound:
		return "AgentNotFound"
	case ErrExternalServiceError:
		return "ExternalServiceError"
	case ErrParseError:
		return "ParseError"
	default:
		return "UnknownError"
	}
}

// RuntimeError is the payload of Value{Kind: KindError}: a tagged
// failure, never a Go panic.
type RuntimeError struct {
	Kind    ErrorKind
	Message string // used by TypeMismatch, AssertionFailed
	Name    string // used by NameNotFound
	Inner   error  // used by ParseError
}

func (e RuntimeError) Error() string {
	switch e.Kind {
	case ErrTypeMismatch, ErrAssertionFailed:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}
		return e.Kind.String()
	case ErrNameNotFound:
		return fmt.Sprintf("%s: %s", e.Kind, e.Name)
	case ErrParseError:
		if e.Inner != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.Inner)
		}
		return e.Kind.String()
	default:
		return e.Kind.String()
	}
}

// ChannelRef is the minimal identity+handle surface kvalue needs from
// a channel, kept independent of pkg/kchannel to avoid an import
// cycle (kchannel.Channel satisfies this interface).
type ChannelRef interface {
	UUID() string
}

// Embedded is a tagged text block: an ordered sequence of identifier
// tags plus a raw text body.
type Embedded struct {
	Tags []string
	Text string
}

// Value is Komrad's closed value sum.
type Value struct {
	Kind Kind

	Bool     bool
	Num      Number
	Str      string
	Bytes    []byte
	Word     string
	List     []Value
	Block    BlockValue
	Channel  ChannelRef
	Embedded Embedded
	Err      RuntimeError
}

// BlockValue is the minimal surface kvalue needs from an AST block
// value, satisfied by *kast.Block (kept as an interface to avoid an
// import cycle: kast imports kvalue, so kvalue cannot import kast to
// name *kast.Block directly).
type BlockValue interface {
	Sexpr() string
}

func Empty() Value                { return Value{Kind: KindEmpty} }
func Bool(b bool) Value            { return Value{Kind: KindBoolean, Bool: b} }
func Num(n Number) Value           { return Value{Kind: KindNumber, Num: n} }
func Str(s string) Value           { return Value{Kind: KindString, Str: s} }
func Bin(b []byte) Value           { return Value{Kind: KindBytes, Bytes: append([]byte(nil), b...)} }
func WordV(w string) Value         { return Value{Kind: KindWord, Word: w} }
func ListV(items []Value) Value    { return Value{Kind: KindList, List: items} }
func BlockV(b BlockValue) Value    { return Value{Kind: KindBlock, Block: b} }
func ChanV(c ChannelRef) Value     { return Value{Kind: KindChannel, Channel: c} }
func EmbeddedV(e Embedded) Value   { return Value{Kind: KindEmbedded, Embedded: e} }
func ErrV(e RuntimeError) Value    { return Value{Kind: KindError, Err: e} }

func Error(kind ErrorKind) Value { return ErrV(RuntimeError{Kind: kind}) }

func TypeMismatch(format string, args ...interface{}) Value {
	return ErrV(RuntimeError{Kind: ErrTypeMismatch, Message: fmt.Sprintf(format, args...)})
}

func NameNotFound(name string) Value {
	return ErrV(RuntimeError{Kind: ErrNameNotFound, Name: name})
}

func (v Value) IsEmpty() bool   { return v.Kind == KindEmpty }
func (v Value) IsError() bool   { return v.Kind == KindError }
func (v Value) IsChannel() bool { return v.Kind == KindChannel }
func (v Value) IsBoolean() bool { return v.Kind == KindBoolean }
func (v Value) IsWord() bool    { return v.Kind == KindWord }
func (v Value) IsString() bool  { return v.Kind == KindString }
func (v Value) IsNumber() bool  { return v.Kind == KindNumber }
func (v Value) IsBlock() bool   { return v.Kind == KindBlock }
func (v Value) IsList() bool    { return v.Kind == KindList }

// Equal is Komrad's structural equality.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindEmpty:
		return true
	case KindBoolean:
		return v.Bool == o.Bool
	case KindNumber:
		return v.Num.Equal(o.Num)
	case KindString:
		return v.Str == o.Str
	case KindBytes:
		return string(v.Bytes) == string(o.Bytes)
	case KindWord:
		return v.Word == o.Word
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindChannel:
		if v.Channel == nil || o.Channel == nil {
			return v.Channel == o.Channel
		}
		return v.Channel.UUID() == o.Channel.UUID()
	case KindEmbedded:
		return strings.Join(v.Embedded.Tags, ".") == strings.Join(o.Embedded.Tags, ".") &&
			v.Embedded.Text == o.Embedded.Text
	case KindError:
		return v.Err.Kind == o.Err.Kind && v.Err.Message == o.Err.Message && v.Err.Name == o.Err.Name
	case KindBlock:
		// Blocks are reference-like first-class values; identity-free
		// structural comparison is not meaningful for them here.
		return false
	default:
		return false
	}
}

// Compare orders Numbers (within a numeric variant) and Strings, the
// only two ordered kinds.
func (v Value) Compare(o Value) (cmp int, ok bool) {
	if v.Kind != o.Kind {
		return 0, false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num.Compare(o.Num)
	case KindString:
		switch {
		case v.Str == o.Str:
			return 0, true
		case v.Str < o.Str:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindEmpty:
		return "()"
	case KindBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case KindNumber:
		return v.Num.String()
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case KindWord:
		return v.Word
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	case KindBlock:
		if v.Block != nil {
			return v.Block.Sexpr()
		}
		return "<block>"
	case KindChannel:
		if v.Channel != nil {
			return "Channel(" + v.Channel.UUID() + ")"
		}
		return "Channel(<nil>)"
	case KindEmbedded:
		return "«" + strings.Join(v.Embedded.Tags, ".") + ":" + v.Embedded.Text + "»"
	case KindError:
		return "Error(" + v.Err.Error() + ")"
	default:
		return "<invalid>"
	}
}

// SortKeys returns a sorted copy of a set of field names, for output
// that must be stable.
func SortKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
