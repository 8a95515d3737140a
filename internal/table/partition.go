package table

import (
	"sync"

	"code.hybscloud.com/atomix"

	"github.com/ademakov/MainMemory-sub000/internal/constants"
	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
)

// Partition owns a slice of the table's bucket array plus its own LRU list
// and byte budget. Per the shared-resource policy, a partition's entries,
// LRU list, and counters are touched by one fiber at a time. The mutex
// enforces this: Table.Lookup/Insert and friends take it on every call,
// from whichever goroutine calls them, whether or not a partition owner
// thread is configured.
type Partition struct {
	index int

	mu      sync.Mutex
	buckets []*Entry // preallocated to capacityMax; "used" bounds the live prefix
	used    int       // number of buckets currently visible to bucketIndex
	region  region

	nentries int
	nbytes   int64
	volume   int64 // byte budget before eviction kicks in

	lruHead, lruTail *Entry

	// evicting/striding are 0/1 single-flight guards. atomix.Bool exposes
	// no compare-and-swap in this dependency, so the "at most one
	// stride/eviction in flight" guarantee
	// needs a CAS-able type; atomix.Int32 is the attested one.
	evicting atomix.Int32
	striding atomix.Int32
}

func newPartition(index, capacityMax int, volume int64) *Partition {
	r, err := newRegion(capacityMax)
	if err != nil {
		// Falling back to an all-committed accounting region still keeps
		// the table correct; it only loses the early ceiling diagnostics
		// mmap would have given for free.
		r = committedRegion{}
	}
	p := &Partition{
		index:   index,
		buckets: make([]*Entry, capacityMax),
		used:    constants.TableStride,
		region:  r,
		volume:  volume,
	}
	_ = p.region.commit(p.used)
	return p
}

// committedRegion is the platform-independent fallback region: every
// bucket counts as already committed, so commit and close do nothing.
type committedRegion struct{}

func (committedRegion) commit(int) error { return nil }
func (committedRegion) close() error     { return nil }

// casCounter is shared by every partition, so CAS stamps are unique and
// monotone across the whole process.
var casCounter atomix.Uint64

// nextCas assigns the next process-monotone CAS stamp.
func (p *Partition) nextCas() uint64 {
	return casCounter.AddAcqRel(1)
}

func (p *Partition) bucketIndex(h uint32) int {
	return bucketIndex(h, p.used)
}

// lookupLocked walks the bucket chain at h's index comparing key_len first,
// then the key bytes. Caller holds p.mu.
func (p *Partition) lookupLocked(h uint32, key []byte) *Entry {
	idx := p.bucketIndex(h)
	for e := p.buckets[idx]; e != nil; e = e.next {
		if int(e.keyLen) != len(key) {
			continue
		}
		if string(e.Key()) == string(key) {
			return e
		}
	}
	return nil
}

// insertLocked prepends e to its bucket chain (LIFO) and appends it to the
// LRU tail. Caller holds p.mu.
func (p *Partition) insertLocked(h uint32, e *Entry) {
	idx := p.bucketIndex(h)
	e.next = p.buckets[idx]
	p.buckets[idx] = e
	p.lruPushTail(e)
	p.nentries++
	p.nbytes += int64(e.Size())
}

// removeLocked unlinks e from its bucket chain and LRU list. Caller holds
// p.mu.
func (p *Partition) removeLocked(h uint32, e *Entry) {
	idx := p.bucketIndex(h)
	cur := p.buckets[idx]
	if cur == e {
		p.buckets[idx] = e.next
	} else {
		for cur != nil && cur.next != e {
			cur = cur.next
		}
		if cur != nil {
			cur.next = e.next
		}
	}
	e.next = nil
	p.lruUnlink(e)
	p.nentries--
	p.nbytes -= int64(e.Size())
}

func (p *Partition) lruPushTail(e *Entry) {
	e.lruPrev = p.lruTail
	e.lruNext = nil
	if p.lruTail != nil {
		p.lruTail.lruNext = e
	} else {
		p.lruHead = e
	}
	p.lruTail = e
}

func (p *Partition) lruUnlink(e *Entry) {
	if e.lruPrev != nil {
		e.lruPrev.lruNext = e.lruNext
	} else if p.lruHead == e {
		p.lruHead = e.lruNext
	}
	if e.lruNext != nil {
		e.lruNext.lruPrev = e.lruPrev
	} else if p.lruTail == e {
		p.lruTail = e.lruPrev
	}
	e.lruPrev, e.lruNext = nil, nil
}

// touchLocked moves e to the LRU tail (most-recently-used end). Caller
// holds p.mu.
func (p *Partition) touchLocked(e *Entry) {
	if p.lruTail == e {
		return
	}
	p.lruUnlink(e)
	p.lruPushTail(e)
}

// overBudget reports whether the partition's byte usage exceeds its
// configured volume. The reserve margin is zero, so eviction stops as soon
// as usage is back at or under the volume.
func (p *Partition) overBudget() bool {
	const reserve = 0
	return p.nbytes+reserve > p.volume
}

// needsGrowth reports whether the partition's load factor justifies
// striding in another batch of buckets. Read without p.mu: it only gates
// whether to attempt tryStartStriding, whose CAS is the actual guard
// against concurrent strides, so a stale read here costs at most one
// redundant (harmlessly rejected) attempt.
func (p *Partition) needsGrowth() bool {
	return p.nentries > p.used && p.used < len(p.buckets)
}

func (p *Partition) tryStartStriding() bool {
	return p.striding.CompareAndSwapAcqRel(0, 1)
}

func (p *Partition) finishStriding() {
	p.striding.StoreRelease(0)
}

func (p *Partition) tryStartEvicting() bool {
	return p.evicting.CompareAndSwapAcqRel(0, 1)
}

func (p *Partition) finishEvicting() {
	p.evicting.StoreRelease(0)
}

// growStride extends the partition's visible bucket prefix by up to
// constants.TableStride buckets and redistributes every entry reachable
// from the old live buckets across the widened index space. A full
// redistribution (rather than the single-bucket split the index formula
// guarantees is sufficient) trades incremental-rehash efficiency for a
// simpler, still-correct implementation; see DESIGN.md.
func (p *Partition) growStride() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.used >= len(p.buckets) {
		return
	}
	newUsed := p.used + constants.TableStride
	if newUsed > len(p.buckets) {
		newUsed = len(p.buckets)
	}
	_ = p.region.commit(newUsed)

	oldUsed := p.used
	p.used = newUsed
	for i := 0; i < oldUsed; i++ {
		chain := p.buckets[i]
		p.buckets[i] = nil
		for e := chain; e != nil; {
			next := e.next
			idx := p.bucketIndex(Hash(e.Key()))
			e.next = p.buckets[idx]
			p.buckets[idx] = e
			e = next
		}
	}
}

// evictUntilUnderBudget removes LRU-head entries until the partition is
// back under its byte budget, calling yield after every
// EvictionYieldBatch removals so a caller driving this from a fiber gives
// the scheduler a turn during a long eviction run. yield may be nil (the
// single-partition/in-process collapse path runs this synchronously).
func (p *Partition) evictUntilUnderBudget(yield func(), obs interfaces.Observer) {
	count := 0
	var freed int64
	for {
		p.mu.Lock()
		if !p.overBudget() || p.lruHead == nil {
			p.mu.Unlock()
			break
		}
		e := p.lruHead
		h := Hash(e.Key())
		p.removeLocked(h, e)
		p.mu.Unlock()

		freed += int64(e.Size())
		count++
		e.Unref()

		if yield != nil && count%constants.EvictionYieldBatch == 0 {
			yield()
		}
	}
	if obs != nil && count > 0 {
		obs.ObserveTableEviction(count, uint64(freed))
	}
}
