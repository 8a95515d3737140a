// Package table implements the partitioned, striding hash table: content-
// addressed entries stored in per-partition LRU lists, grown by extensible
// hashing, with async eviction fibers bounding each partition's byte
// budget. Entries link directly into their owning partition's bucket chain
// and LRU list (pointer fields on Entry itself, not a separate node
// wrapper), the same "no heap node wrapper on the hot path" approach
// internal/chunk.List uses for chunk lists, adapted here to a type whose
// payload already lives on the heap per-entry.
package table

import "code.hybscloud.com/atomix"

// flag bits stored in Entry.Flags. The numeric-value increment/decrement
// semantics they would gate are out of scope (memcache numeric-value
// semantics is an explicit non-goal); Flags is retained as an opaque,
// caller-defined word, matching the original record layout.
type Flags uint32

// Entry is one stored record: {next, lru_link, key_len, value_len,
// refcount, flags, cas, bytes[key_len+value_len]}. It is exclusively owned
// by the partition holding it in a bucket chain and LRU list; a reader
// that has looked it up holds a reference via Ref/Unref for as long as it
// dereferences Bytes/Key/Value.
type Entry struct {
	next            *Entry // bucket chain link, LIFO
	lruPrev, lruNext *Entry // partition LRU list links

	keyLen   uint8
	valueLen uint32
	refcount atomix.Int32
	Flags    Flags
	cas      atomix.Uint64

	bytes []byte // key_len bytes of key, then valueLen bytes of value
}

// newEntry copies key and value into one owned allocation and sets the
// entry's initial refcount to 1 (the partition's own reference).
func newEntry(key, value []byte) *Entry {
	e := &Entry{
		keyLen:   uint8(len(key)),
		valueLen: uint32(len(value)),
		bytes:    make([]byte, len(key)+len(value)),
	}
	copy(e.bytes, key)
	copy(e.bytes[len(key):], value)
	e.refcount.StoreRelaxed(1)
	return e
}

// Key returns the entry's key bytes.
func (e *Entry) Key() []byte {
	return e.bytes[:e.keyLen]
}

// Value returns the entry's value bytes.
func (e *Entry) Value() []byte {
	return e.bytes[e.keyLen:]
}

// Size is the number of payload bytes this entry accounts against its
// partition's byte budget (key + value; the header is not charged).
func (e *Entry) Size() int {
	return int(e.keyLen) + int(e.valueLen)
}

// Cas returns the entry's current compare-and-swap stamp.
func (e *Entry) Cas() uint64 {
	return e.cas.LoadAcquire()
}

// Ref increments the entry's external refcount and returns the new value.
func (e *Entry) Ref() int32 {
	return e.refcount.AddAcqRel(1)
}

// Unref decrements the entry's refcount and reports whether it reached
// zero. No dereference of the entry may occur after an Unref call that
// observes zero.
func (e *Entry) Unref() bool {
	return e.refcount.AddAcqRel(-1) == 0
}

// RefCount returns the current refcount, for diagnostics and tests.
func (e *Entry) RefCount() int32 {
	return e.refcount.LoadAcquire()
}
