// Package arena implements the three allocator scopes of spec §4.9: a
// process-global arena, a domain-shared arena, and per-thread private
// arenas, all behind one Arena interface. Go's runtime allocator already
// plays the role of the spec's dlmalloc/mspace heap, so this layer's job is
// partitioning allocations by scope and enforcing the fatal-on-OOM
// convention (§6), not managing raw memory itself. Bucketed sync.Pool
// free-lists are grounded on the teacher's internal/queue/pool.go pattern.
package arena

import (
	"fmt"
	"os"
	"sync"

	"github.com/ademakov/MainMemory-sub000/internal/constants"
)

// Arena is the v-table every allocator scope implements (spec §4.9).
type Arena interface {
	Alloc(size int) []byte
	Calloc(size int) []byte
	Realloc(buf []byte, size int) []byte
	Free(buf []byte)
}

var bucketSizes = []int{
	constants.ArenaBucket4K,
	constants.ArenaBucket16K,
	constants.ArenaBucket64K,
	constants.ArenaBucket256K,
}

func bucketFor(size int) int {
	for _, b := range bucketSizes {
		if size <= b {
			return b
		}
	}
	return 0 // oversize, not pooled
}

// pools is a set of bucketed sync.Pools shared by the arena implementations
// below. Each scope gets its own pools instance so that a private arena's
// objects are never handed to a different thread through pool reuse.
type pools struct {
	buckets map[int]*sync.Pool
}

func newPools() *pools {
	p := &pools{buckets: make(map[int]*sync.Pool, len(bucketSizes))}
	for _, size := range bucketSizes {
		size := size
		p.buckets[size] = &sync.Pool{New: func() any {
			b := make([]byte, size)
			return &b
		}}
	}
	return p
}

func (p *pools) get(size int) []byte {
	bucket := bucketFor(size)
	if bucket == 0 {
		return make([]byte, size)
	}
	buf := *p.buckets[bucket].Get().(*[]byte)
	return buf[:size]
}

func (p *pools) put(buf []byte) {
	c := cap(buf)
	pool, ok := p.buckets[c]
	if !ok {
		return // oversize allocation, let the GC reclaim it
	}
	pool.Put(&buf)
}

// fatalOnOOM aborts the process with a diagnostic naming the call site, per
// spec §6's fatal-on-OOM convention: callers never see a nil/short buffer
// on allocation failure.
func fatalOnOOM(scope string, size int, r any) {
	fmt.Fprintf(os.Stderr, "mainmemory: fatal: %s arena failed to allocate %d bytes: %v\n", scope, size, r)
	os.Exit(1)
}

func allocGuarded(scope string, size int, do func() []byte) (buf []byte) {
	defer func() {
		if r := recover(); r != nil {
			fatalOnOOM(scope, size, r)
		}
	}()
	buf = do()
	if buf == nil {
		fatalOnOOM(scope, size, "nil buffer")
	}
	return buf
}

// GlobalArena is the process-wide arena used before per-thread arenas exist
// and for cross-boundary metadata. Spec §4.9 calls for a spinlock; it is
// guarded by Go's sync.Mutex instead (see DESIGN.md) because no ecosystem
// spinlock in the example pack is suited to guarding general,
// variable-duration allocation work.
type GlobalArena struct {
	mu sync.Mutex
	p  *pools
}

// NewGlobalArena creates the process-global arena.
func NewGlobalArena() *GlobalArena {
	return &GlobalArena{p: newPools()}
}

func (a *GlobalArena) Alloc(size int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return allocGuarded("global", size, func() []byte { return a.p.get(size) })
}

func (a *GlobalArena) Calloc(size int) []byte {
	buf := a.Alloc(size)
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (a *GlobalArena) Realloc(buf []byte, size int) []byte {
	n := a.Alloc(size)
	copy(n, buf)
	a.Free(buf)
	return n
}

func (a *GlobalArena) Free(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.p.put(buf)
}

// SharedArena is scoped to one domain and guarded the same way the spec
// describes a task-level lock: a single mutex shared by every thread in the
// domain, used for data crossing thread boundaries within that domain.
type SharedArena struct {
	mu sync.Mutex
	p  *pools
}

// NewSharedArena creates a domain-scoped shared arena.
func NewSharedArena() *SharedArena {
	return &SharedArena{p: newPools()}
}

func (a *SharedArena) Alloc(size int) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return allocGuarded("shared", size, func() []byte { return a.p.get(size) })
}

func (a *SharedArena) Calloc(size int) []byte {
	buf := a.Alloc(size)
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (a *SharedArena) Realloc(buf []byte, size int) []byte {
	n := a.Alloc(size)
	copy(n, buf)
	a.Free(buf)
	return n
}

func (a *SharedArena) Free(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.p.put(buf)
}

// PrivateArena is owned by exactly one thread and therefore needs no
// locking at all: per spec §5, memory allocation in the private arena does
// not suspend and is never touched by any other thread.
type PrivateArena struct {
	p *pools
}

// NewPrivateArena creates a thread-private arena.
func NewPrivateArena() *PrivateArena {
	return &PrivateArena{p: newPools()}
}

func (a *PrivateArena) Alloc(size int) []byte {
	return allocGuarded("private", size, func() []byte { return a.p.get(size) })
}

func (a *PrivateArena) Calloc(size int) []byte {
	buf := a.Alloc(size)
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (a *PrivateArena) Realloc(buf []byte, size int) []byte {
	n := a.Alloc(size)
	copy(n, buf)
	a.Free(buf)
	return n
}

func (a *PrivateArena) Free(buf []byte) {
	a.p.put(buf)
}

var (
	_ Arena = (*GlobalArena)(nil)
	_ Arena = (*SharedArena)(nil)
	_ Arena = (*PrivateArena)(nil)
)
