package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRefUnref(t *testing.T) {
	c := New(make([]byte, 16), 3)
	assert.EqualValues(t, 1, c.RefCount())

	assert.EqualValues(t, 2, c.Ref())
	assert.False(t, c.Unref())
	assert.True(t, c.Unref(), "refcount must reach zero on the matching unref")
}

func TestListPushTailOrderIsInsertionOrder(t *testing.T) {
	l := NewList()
	a := New([]byte("a"), 0)
	b := New([]byte("b"), 0)
	c := New([]byte("c"), 0)
	l.PushTail(a)
	l.PushTail(b)
	l.PushTail(c)

	require.Equal(t, 3, l.Len())
	assert.Equal(t, a, l.PopHead())
	assert.Equal(t, b, l.PopHead())
	assert.Equal(t, c, l.PopHead())
	assert.Nil(t, l.PopHead())
}

func TestListRemoveAtMiddle(t *testing.T) {
	l := NewList()
	a := New([]byte("a"), 0)
	b := New([]byte("b"), 0)
	c := New([]byte("c"), 0)
	l.PushTail(a)
	idxB := l.PushTail(b)
	l.PushTail(c)

	removed := l.RemoveAt(idxB)
	assert.Equal(t, b, removed)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, a, l.PopHead())
	assert.Equal(t, c, l.PopHead())
}

func TestListNodeSlabReusesFreedSlots(t *testing.T) {
	l := NewList()
	idx := l.PushTail(New([]byte("a"), 0))
	l.RemoveAt(idx)
	before := len(l.nodes)
	l.PushTail(New([]byte("b"), 0))
	assert.Equal(t, before, len(l.nodes), "freed node slot should be reused, not grown")
}
