// Package chunk implements the tagged-chunk and intrusive-list primitives
// of spec §4's C3: chunks carry an owning-partition tag and a refcount, and
// lists are index-based (slab + links) rather than heap node wrappers, per
// §9 "Intrusive lists" — this keeps the hot path allocation-free the way
// the teacher's internal/queue/runner.go preallocates its per-tag command
// structs by index instead of appending.
package chunk

import "code.hybscloud.com/atomix"

// Chunk is a tagged block of bytes owned by one partition at a time. The
// owner tag lets a thread that is not the current owner post a release
// request to the owning thread instead of freeing the memory itself (spec
// §3 "a stack of deferred chunk releases").
type Chunk struct {
	Bytes     []byte
	Partition int32
	refcount  atomix.Int32
}

// New wraps buf as a chunk owned by partition.
func New(buf []byte, partition int32) *Chunk {
	c := &Chunk{Bytes: buf, Partition: partition}
	c.refcount.StoreRelaxed(1)
	return c
}

// Ref increments the chunk's refcount and returns the new value.
func (c *Chunk) Ref() int32 {
	return c.refcount.AddAcqRel(1)
}

// Unref decrements the refcount and reports whether it reached zero. Per
// spec property 5, no dereference of the chunk may occur after a Unref that
// observes zero.
func (c *Chunk) Unref() bool {
	return c.refcount.AddAcqRel(-1) == 0
}

// RefCount returns the current refcount for diagnostics/tests.
func (c *Chunk) RefCount() int32 {
	return c.refcount.LoadAcquire()
}

// link is one node of an intrusive doubly linked list, addressed by index
// into a List's slab rather than by pointer.
type link struct {
	prev, next int32
	used       bool
	value      *Chunk
}

const nilIndex int32 = -1

// List is an intrusive, index-addressed doubly linked list of chunks. It
// never allocates a node on Push once its slab has spare capacity; Push
// only grows the backing slice, matching the spec's "no heap-allocated node
// wrappers on the hot path" guidance.
type List struct {
	nodes      []link
	head, tail int32
	free       int32 // head of the free-node chain, threaded through prev
	len        int
}

// NewList creates an empty intrusive list.
func NewList() *List {
	return &List{head: nilIndex, tail: nilIndex, free: nilIndex}
}

func (l *List) allocNode() int32 {
	if l.free != nilIndex {
		idx := l.free
		l.free = l.nodes[idx].prev
		return idx
	}
	l.nodes = append(l.nodes, link{})
	return int32(len(l.nodes) - 1)
}

func (l *List) freeNode(idx int32) {
	l.nodes[idx] = link{used: false, prev: l.free, next: nilIndex}
	l.free = idx
}

// PushTail appends a chunk to the tail of the list and returns its node
// index, used by RemoveAt for O(1) removal (the LRU list needs this to
// implement touch-moves-to-tail without a linear scan).
func (l *List) PushTail(c *Chunk) int32 {
	idx := l.allocNode()
	l.nodes[idx] = link{prev: l.tail, next: nilIndex, used: true, value: c}
	if l.tail != nilIndex {
		l.nodes[l.tail].next = idx
	} else {
		l.head = idx
	}
	l.tail = idx
	l.len++
	return idx
}

// RemoveAt unlinks the node at idx.
func (l *List) RemoveAt(idx int32) *Chunk {
	n := l.nodes[idx]
	if !n.used {
		return nil
	}
	if n.prev != nilIndex {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nilIndex {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	value := n.value
	l.freeNode(idx)
	l.len--
	return value
}

// PopHead removes and returns the chunk at the head of the list. Since
// PushTail appends at the other end, the head is the oldest entry, so
// PushTail plus PopHead yields insertion (FIFO) order.
func (l *List) PopHead() *Chunk {
	if l.head == nilIndex {
		return nil
	}
	return l.RemoveAt(l.head)
}

// Len returns the number of chunks currently linked.
func (l *List) Len() int { return l.len }

// Head returns the node index at the head of the list, or nilIndex if empty.
func (l *List) Head() int32 { return l.head }
