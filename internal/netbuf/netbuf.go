// Package netbuf implements the multi-segment network I/O buffer: a chain
// of chunk-backed segments a protocol layer reads from and writes to
// without forcing a single contiguous allocation per connection. Chunk
// backing storage is pooled through internal/arena, generalized from the
// teacher's internal/queue/pool.go bucketed sync.Pool into the segment-
// chain model this buffer needs.
package netbuf

import (
	"fmt"

	"github.com/ademakov/MainMemory-sub000/internal/arena"
	"github.com/ademakov/MainMemory-sub000/internal/chunk"
	"github.com/ademakov/MainMemory-sub000/internal/constants"
)

// SegmentKind tags how a Segment's bytes are owned.
type SegmentKind int

const (
	// Internal segments are owned outright by the Buffer and backed by a
	// chunk drawn from the arena.
	Internal SegmentKind = iota
	// External segments wrap bytes the Buffer does not own; Release is
	// called once the segment is fully consumed (spec's splice/zero-copy
	// path).
	External
	// Embedded segments hold a small inline payload copied directly into
	// the segment header, avoiding a chunk allocation for short writes.
	Embedded
)

const embeddedCap = 32

// Segment is one link in a Buffer's chain.
type Segment struct {
	Kind SegmentKind

	chunk *chunk.Chunk // Internal only
	ext   []byte       // External only
	embed [embeddedCap]byte
	embedLen int

	start, end int // consumed..written range within this segment's bytes
	release    func()
}

// Bytes returns the full underlying byte slice this segment wraps,
// regardless of kind.
func (s *Segment) Bytes() []byte {
	switch s.Kind {
	case Internal:
		return s.chunk.Bytes
	case External:
		return s.ext
	default:
		return s.embed[:s.embedLen]
	}
}

// Unread returns the slice of bytes not yet consumed.
func (s *Segment) Unread() []byte {
	return s.Bytes()[s.start:s.end]
}

// Buffer is a chain of Segments plus the write cursor into the last one.
type Buffer struct {
	segments []*Segment
	arena    arena.Arena
	partition int32
}

// New creates an empty Buffer drawing Internal segment storage from a.
func New(a arena.Arena, partition int32) *Buffer {
	return &Buffer{arena: a, partition: partition}
}

// Prepare rebinds a pooled Buffer to a new arena/partition for reuse,
// releasing any segments left from whatever connection last used it
// (equivalent to Cleanup) before rebinding.
func (b *Buffer) Prepare(a arena.Arena, partition int32) {
	b.Cleanup()
	b.arena = a
	b.partition = partition
}

func growSize(consumedMax, want int) int {
	size := consumedMax
	if want > size {
		size = want
	}
	if size < constants.MinChunkSize {
		size = constants.MinChunkSize
	}
	if size > constants.MaxChunkSize {
		size = constants.MaxChunkSize
	}
	p := constants.MinChunkSize
	for p < size {
		p <<= 1
	}
	if p > constants.MaxChunkSize {
		p = constants.MaxChunkSize
	}
	return p
}

// Demand ensures the tail segment has at least n free bytes to write into,
// allocating a new Internal segment from the arena if necessary. It
// returns the writable slice. A newly allocated segment holds at most
// constants.MaxChunkSize bytes, so for a larger n the returned slice is
// shorter than n.
func (b *Buffer) Demand(n int) []byte {
	if tail := b.tail(); tail != nil && tail.Kind == Internal {
		if free := len(tail.chunk.Bytes) - tail.end; free >= n {
			return tail.chunk.Bytes[tail.end : tail.end+free]
		}
	}
	size := growSize(n, n)
	buf := b.arena.Alloc(size)
	c := chunk.New(buf, b.partition)
	seg := &Segment{Kind: Internal, chunk: c}
	b.segments = append(b.segments, seg)
	return buf
}

// Fill records that n bytes of the tail segment's demanded space have been
// written, advancing its write cursor.
func (b *Buffer) Fill(n int) {
	tail := b.tail()
	if tail == nil {
		return
	}
	tail.end += n
}

// Write appends p to the buffer, demanding space as needed and copying.
func (b *Buffer) Write(p []byte) {
	for len(p) > 0 {
		dst := b.Demand(len(p))
		k := copy(dst, p)
		b.Fill(k)
		p = p[k:]
	}
}

// Printf writes a formatted string, reusing Write.
func (b *Buffer) Printf(format string, args ...any) {
	b.Write([]byte(fmt.Sprintf(format, args...)))
}

// Embed appends p as a small inline segment, avoiding a chunk allocation
// for short control messages.
func (b *Buffer) Embed(p []byte) bool {
	if len(p) > embeddedCap {
		return false
	}
	seg := &Segment{Kind: Embedded}
	copy(seg.embed[:], p)
	seg.embedLen = len(p)
	seg.end = len(p)
	b.segments = append(b.segments, seg)
	return true
}

// Splice appends an externally owned slice as a zero-copy segment. Below
// SpliceCopyThreshold bytes it degrades to an immediate copy-then-release,
// since a segment's bookkeeping overhead would outweigh the copy avoided.
func (b *Buffer) Splice(p []byte, release func()) {
	if len(p) < constants.SpliceCopyThreshold {
		b.Write(p)
		if release != nil {
			release()
		}
		return
	}
	seg := &Segment{Kind: External, ext: p, end: len(p), release: release}
	b.segments = append(b.segments, seg)
}

// Flush returns the full chain of segments with unread bytes, for a
// transport layer to write out; it does not consume them (see Read/Rectify
// for consumption).
func (b *Buffer) Flush() []*Segment {
	var out []*Segment
	for _, s := range b.segments {
		if s.start < s.end {
			out = append(out, s)
		}
	}
	return out
}

// Read consumes up to len(p) unread bytes into p, advancing segment
// cursors and releasing/rectifying fully-consumed segments, returning the
// number of bytes copied.
func (b *Buffer) Read(p []byte) int {
	n := 0
	for n < len(p) {
		tail := b.head()
		if tail == nil {
			break
		}
		avail := tail.Unread()
		k := copy(p[n:], avail)
		tail.start += k
		n += k
		if tail.start >= tail.end {
			b.popHead()
		}
		if k == 0 {
			break
		}
	}
	return n
}

// Rectify drops fully consumed segments from the head of the chain so
// long-lived connections don't accumulate exhausted segment headers. It
// does not merge or compact the segments that remain.
func (b *Buffer) Rectify() {
	for len(b.segments) > 0 && b.segments[0].start >= b.segments[0].end {
		b.popHead()
	}
}

func (b *Buffer) head() *Segment {
	if len(b.segments) == 0 {
		return nil
	}
	return b.segments[0]
}

func (b *Buffer) popHead() {
	s := b.segments[0]
	b.segments = b.segments[1:]
	if len(b.segments) == 0 {
		b.segments = nil
	}
	if s.Kind == External && s.release != nil {
		s.release()
	}
}

func (b *Buffer) tail() *Segment {
	if len(b.segments) == 0 {
		return nil
	}
	return b.segments[len(b.segments)-1]
}

// Cleanup releases every external segment still held by the buffer and
// discards the chain. Connection teardown must call this exactly once: a
// spliced segment's release callback otherwise only runs once the segment is
// fully read (see popHead), so a segment that never finishes being read
// before the connection closes would leak its callback without this.
func (b *Buffer) Cleanup() {
	for _, s := range b.segments {
		if s.Kind == External && s.release != nil {
			s.release()
			s.release = nil
		}
	}
	b.segments = nil
}

// Len returns the total unread byte count across the chain.
func (b *Buffer) Len() int {
	n := 0
	for _, s := range b.segments {
		n += s.end - s.start
	}
	return n
}
