package netbuf

import "github.com/ademakov/MainMemory-sub000/internal/interfaces"

var _ interfaces.CursorReader = (*ReadIter)(nil)

// ReadIter walks a Buffer's unread bytes segment by segment without
// copying or mutating the buffer; it is the contract an out-of-scope
// protocol parser consumes.
type ReadIter struct {
	segments []*Segment
	idx      int
}

// ReadIter returns a fresh read cursor over b's current segment chain.
func (b *Buffer) ReadIter() *ReadIter {
	return &ReadIter{segments: b.Flush()}
}

// Next returns the next segment's unread slice, or (nil, false) once the
// cursor is exhausted.
func (it *ReadIter) Next() ([]byte, bool) {
	if it.idx >= len(it.segments) {
		return nil, false
	}
	s := it.segments[it.idx]
	it.idx++
	return s.Unread(), true
}

// WriteIter exposes a Buffer's tail write cursor as (segment, ptr, end)
// triples, for callers that want to write directly into buffer-owned
// memory (e.g. a socket read landing straight into the tail segment)
// instead of going through Write's copy.
type WriteIter struct {
	b *Buffer
}

// WriteIter returns a write cursor bound to b.
func (b *Buffer) WriteIter() *WriteIter {
	return &WriteIter{b: b}
}

// Reserve demands n free bytes in the tail segment (see Demand for the
// per-segment size cap) and returns the writable slice; callers fill some
// prefix of it and call Commit.
func (w *WriteIter) Reserve(n int) []byte {
	return w.b.Demand(n)
}

// Commit advances the tail segment's write cursor by n bytes, matching a
// prior Reserve call.
func (w *WriteIter) Commit(n int) {
	w.b.Fill(n)
}
