package kbind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komrad/pkg/kast"
	"komrad/pkg/kscope"
	"komrad/pkg/kvalue"
)

func TestBindArityMismatchFails(t *testing.T) {
	pattern := kast.NewPattern(kast.TWord("get"))
	msg := kast.NewMessage([]kvalue.Value{kvalue.WordV("get"), kvalue.Num(kvalue.Int(1))}, nil)

	_, ok := Bind(pattern, msg, kscope.New())
	assert.False(t, ok)
}

func TestBindWordLiteralMustMatch(t *testing.T) {
	pattern := kast.NewPattern(kast.TWord("get"))

	_, ok := Bind(pattern, kast.NewMessage([]kvalue.Value{kvalue.WordV("set")}, nil), kscope.New())
	assert.False(t, ok)

	_, ok = Bind(pattern, kast.NewMessage([]kvalue.Value{kvalue.WordV("get")}, nil), kscope.New())
	assert.True(t, ok)
}

func TestBindHoleCapturesValueIntoDerivedScope(t *testing.T) {
	pattern := kast.NewPattern(kast.TWord("greet"), kast.THole("name"))
	msg := kast.NewMessage([]kvalue.Value{kvalue.WordV("greet"), kvalue.Str("Ada")}, nil)

	scope, ok := Bind(pattern, msg, kscope.New())
	require.True(t, ok)
	v, found := scope.Get("name")
	require.True(t, found)
	assert.Equal(t, kvalue.Str("Ada"), v)
}

func TestBindTypeHoleRejectsWrongKind(t *testing.T) {
	pattern := kast.NewPattern(kast.TTypeHole("n", kvalue.KindNumber))

	_, ok := Bind(pattern, kast.NewMessage([]kvalue.Value{kvalue.Str("not a number")}, nil), kscope.New())
	assert.False(t, ok)

	scope, ok := Bind(pattern, kast.NewMessage([]kvalue.Value{kvalue.Num(kvalue.Int(4))}, nil), kscope.New())
	require.True(t, ok)
	v, _ := scope.Get("n")
	assert.Equal(t, kvalue.Num(kvalue.Int(4)), v)
}

func TestBindFailureReturnsNilScope(t *testing.T) {
	pattern := kast.NewPattern(kast.THole("a"), kast.TWord("exact"))
	msg := kast.NewMessage([]kvalue.Value{kvalue.Num(kvalue.Int(1)), kvalue.WordV("wrong")}, nil)

	scope, ok := Bind(pattern, msg, kscope.New())
	assert.False(t, ok)
	assert.Nil(t, scope)
}

// TestBindFailureLeavesSharedBindingsUntouched checks that a hole
// matched by an earlier term is not written into parent when a later
// term rejects the match, even though the derived scope shares
// parent's bindings map (Clone).
func TestBindFailureLeavesSharedBindingsUntouched(t *testing.T) {
	pattern := kast.NewPattern(kast.THole("a"), kast.TWord("exact"))
	msg := kast.NewMessage([]kvalue.Value{kvalue.Num(kvalue.Int(1)), kvalue.WordV("wrong")}, nil)

	parent := kscope.New()
	_, ok := Bind(pattern, msg, parent)
	assert.False(t, ok)

	_, found := parent.Get("a")
	require.False(t, found)
	assert.False(t, parent.IsDirty())
}

func TestBindDivisiblePredicate(t *testing.T) {
	pattern := kast.NewPattern(kast.TBinary("n", kast.CmpDivisible, kvalue.Num(kvalue.Int(3))))

	_, ok := Bind(pattern, kast.NewMessage([]kvalue.Value{kvalue.Num(kvalue.Int(9))}, nil), kscope.New())
	assert.True(t, ok)

	_, ok = Bind(pattern, kast.NewMessage([]kvalue.Value{kvalue.Num(kvalue.Int(10))}, nil), kscope.New())
	assert.False(t, ok)
}

func TestDivisibleByZeroNeverMatches(t *testing.T) {
	assert.False(t, divisible(kvalue.Num(kvalue.Int(10)), kvalue.Num(kvalue.Int(0))))
}

func TestDivisibleCrossVariantNeverMatches(t *testing.T) {
	assert.False(t, divisible(kvalue.Num(kvalue.Int(10)), kvalue.Num(kvalue.UInt(5))))
}
