package kscope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"komrad/pkg/kast"
	"komrad/pkg/kvalue"
)

func TestGetWalksParentChain(t *testing.T) {
	root := New()
	root.Set("a", kvalue.Num(kvalue.Int(1)))
	child := WithParent(root)

	v, ok := child.Get("a")
	require.True(t, ok)
	assert.True(t, v.Equal(kvalue.Num(kvalue.Int(1))))
}

func TestSetIsLastWriterWinsLocally(t *testing.T) {
	s := New()
	s.Set("a", kvalue.Num(kvalue.Int(1)))
	s.Set("a", kvalue.Num(kvalue.Int(2)))

	v, ok := s.Get("a")
	require.True(t, ok)
	assert.True(t, v.Equal(kvalue.Num(kvalue.Int(2))))
}

func TestLocalBindingShadowsParent(t *testing.T) {
	root := New()
	root.Set("a", kvalue.Str("root"))
	child := WithParent(root)
	child.Set("a", kvalue.Str("child"))

	v, _ := child.Get("a")
	assert.Equal(t, "child", v.Str)

	rv, _ := root.Get("a")
	assert.Equal(t, "root", rv.Str, "writing to a child scope must never affect its parent")
}

func TestCloneSharesBindingsWithOriginal(t *testing.T) {
	root := New()
	root.Set("a", kvalue.Num(kvalue.Int(1)))
	clone := root.Clone()

	clone.Set("a", kvalue.Num(kvalue.Int(99)))

	orig, _ := root.Get("a")
	assert.True(t, orig.Equal(kvalue.Num(kvalue.Int(99))), "Clone shares its bindings map with the original, like the source's Arc-shared scope clone")
}

func TestCloneHandlerListIsIndependentOfOriginal(t *testing.T) {
	root := New()
	clone := root.Clone()

	clone.AddHandler(kast.NewHandler(kast.NewPattern(kast.TWord("only-on-clone")), kast.NewBlock()))

	assert.Len(t, clone.Handlers(), 1)
	assert.Len(t, root.Handlers(), 0, "Clone's handler list must not alias the original's")
}

func TestClonePreservesParentPointer(t *testing.T) {
	root := New()
	child := WithParent(root)
	clone := child.Clone()
	assert.Same(t, root, clone.Parent())
}

func TestHandlersCombinesLocalThenParentInOrder(t *testing.T) {
	root := New()
	hRoot := kast.NewHandler(kast.NewPattern(kast.TWord("root")), kast.NewBlock())
	root.AddHandler(hRoot)

	child := WithParent(root)
	hChild := kast.NewHandler(kast.NewPattern(kast.TWord("child")), kast.NewBlock())
	child.AddHandler(hChild)

	got := child.Handlers()
	require.Len(t, got, 2)
	assert.Same(t, hChild, got[0])
	assert.Same(t, hRoot, got[1])
}

func TestIsDirtyTracksWrites(t *testing.T) {
	s := New()
	assert.False(t, s.IsDirty())
	s.Set("a", kvalue.Empty())
	assert.True(t, s.IsDirty())
}

func TestIterReturnsOnlyLocalBindings(t *testing.T) {
	root := New()
	root.Set("a", kvalue.Num(kvalue.Int(1)))
	child := WithParent(root)
	child.Set("b", kvalue.Num(kvalue.Int(2)))

	bindings := child.Iter()
	require.Len(t, bindings, 1)
	assert.Equal(t, "b", bindings[0].Name)
}
