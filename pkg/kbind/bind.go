// Package kbind implements Komrad's pattern binder: an attempt to
// unify an incoming message with a handler pattern, producing a
// derived scope on success.
//
// Grounded on original_source/crates/komrad-agent/src/try_bind.rs,
// translated term-for-term from the Rust match into a Go switch.
package kbind

import (
	"komrad/pkg/kast"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

// Bind attempts to unify pattern against msg in the lexical context of
// parent. On success it returns a scope cloned from parent with every
// hole bound; on failure it returns (nil, false). Holes are collected
// while the terms are checked and written only once every term has
// matched, so a failed attempt binds nothing. The returned scope
// shares parent's bindings map (kscope.Clone), so on success the bound
// holes and any later handler-body assignment to an already-bound
// name write through to parent directly.
func Bind(pattern *kast.Pattern, msg kast.Message, parent *kscope.Scope) (*kscope.Scope, bool) {
	if len(pattern.Terms) != len(msg.Terms) {
		return nil, false
	}

	scope := parent.Clone()
	bindings := make([]kscope.Binding, 0, len(pattern.Terms))

	for i, term := range pattern.Terms {
		value := msg.Terms[i]
		switch term.Kind {
		case kast.TEEmpty:
			if value.Kind != kvalue.KindEmpty {
				return nil, false
			}

		case kast.TEWord:
			if value.Kind != kvalue.KindWord || value.Word != term.Word {
				return nil, false
			}

		case kast.TEValue:
			if !value.Equal(term.Value) {
				return nil, false
			}

		case kast.TEType:
			if !value.Kind.IsSubtypeOf(term.Type) {
				return nil, false
			}

		case kast.TEHole:
			bindings = append(bindings, kscope.Binding{Name: term.Name, Value: value})

		case kast.TETypeHole:
			if !value.Kind.IsSubtypeOf(term.Type) {
				return nil, false
			}
			bindings = append(bindings, kscope.Binding{Name: term.Name, Value: value})

		case kast.TEBlockHole:
			if value.Kind != kvalue.KindBlock {
				return nil, false
			}
			bindings = append(bindings, kscope.Binding{Name: term.Name, Value: value})

		case kast.TEBinary:
			ok := evalPredicate(term.CmpOp, value, term.Value)
			if !ok {
				return nil, false
			}
			bindings = append(bindings, kscope.Binding{Name: term.Name, Value: value})

		default:
			return nil, false
		}
	}

	for _, b := range bindings {
		scope.Set(b.Name, b.Value)
	}
	return scope, true
}

// evalPredicate implements the binary-predicate pattern term: equality
// and ordering operators via kvalue.Value's own rules, plus the
// integer-only "divisible by" relation.
func evalPredicate(op kast.CompareOp, value, expected kvalue.Value) bool {
	switch op {
	case kast.CmpEq:
		return value.Equal(expected)
	case kast.CmpNeq:
		return !value.Equal(expected)
	case kast.CmpLt:
		cmp, ok := value.Compare(expected)
		return ok && cmp < 0
	case kast.CmpLe:
		cmp, ok := value.Compare(expected)
		return ok && cmp <= 0
	case kast.CmpGt:
		cmp, ok := value.Compare(expected)
		return ok && cmp > 0
	case kast.CmpGe:
		cmp, ok := value.Compare(expected)
		return ok && cmp >= 0
	case kast.CmpDivisible:
		return divisible(value, expected)
	default:
		return false
	}
}

// divisible is defined only for matching integer variants: Int%Int or UInt%UInt. Any other combination, including
// Float, fails the predicate rather than erroring — the pattern
// binder never raises Value::Error, it only fails to match.
func divisible(value, expected kvalue.Value) bool {
	if value.Kind != kvalue.KindNumber || expected.Kind != kvalue.KindNumber {
		return false
	}
	if value.Num.Kind != expected.Num.Kind {
		return false
	}
	switch value.Num.Kind {
	case kvalue.NumberInt:
		if expected.Num.Int == 0 {
			return false
		}
		return value.Num.Int%expected.Num.Int == 0
	case kvalue.NumberUInt:
		if expected.Num.UInt == 0 {
			return false
		}
		return value.Num.UInt%expected.Num.UInt == 0
	default:
		return false
	}
}
