package table

import (
	"errors"
	"hash/fnv"

	"github.com/ademakov/MainMemory-sub000/internal/constants"
	"github.com/ademakov/MainMemory-sub000/internal/fabric"
	"github.com/ademakov/MainMemory-sub000/internal/fiber"
	"github.com/ademakov/MainMemory-sub000/internal/interfaces"
)

// ErrNotFound is returned when a key has no entry in the table.
var ErrNotFound = errors.New("table: not found")

// ErrExists is returned by Cas when the entry's current stamp does not
// match the caller's expected stamp (someone else changed it first).
var ErrExists = errors.New("table: cas mismatch")

// Hash computes the FNV-1a fingerprint bucket selection is keyed on. There
// is no ecosystem FNV implementation among the retrieved dependencies
// worth displacing hash/fnv for; this is the one stdlib hash use in this
// package, justified because the table's fingerprint algorithm is named
// explicitly rather than left as an implementation choice.
func Hash(key []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(key)
	return h.Sum32()
}

func floorPow2(x int) int {
	if x < 1 {
		return 1
	}
	p := 1
	for p*2 <= x {
		p *= 2
	}
	return p
}

// bucketIndex implements the extensible-hashing bucket selection: given
// used live buckets, half = floor_pow2(used-1) and mask = 2*half-1;
// growing used by one rehashes exactly one old bucket into two.
func bucketIndex(h uint32, used int) int {
	if used <= 1 {
		return 0
	}
	half := floorPow2(used - 1)
	mask := uint32(2*half - 1)
	idx := int(h & mask)
	if idx >= used {
		idx -= half
	}
	return idx
}

// Owner is the subset of internal/fiber.Thread's surface Table needs to
// pin a partition's stride/eviction work to its owning thread.
type Owner interface {
	Queue() *fabric.Queue
	Notify()
	Scheduler() *fiber.Scheduler
}

// Config configures a Table.
type Config struct {
	// Partitions is the number of independent partitions; each partition's
	// bucket chain, LRU list, and counters are touched by at most one
	// fiber at a time. DefaultPartitions (1) collapses all operations to
	// direct in-process calls under a mutex.
	Partitions int

	// CapacityMax bounds how many buckets a single partition may stride
	// into; it sizes that partition's reserved region up front.
	CapacityMax int

	// Volume is the total byte budget across all partitions before
	// eviction begins; it is split evenly across Partitions.
	Volume int64

	// Owners pins partition i's async stride/eviction work to Owners[i],
	// posted through internal/fabric. Leave nil (or shorter than
	// Partitions) to run that partition's growth/eviction synchronously
	// in whatever goroutine triggers it — the non-SMP/single-partition
	// legacy path.
	Owners []Owner

	Logger   interfaces.Logger
	Observer interfaces.Observer
}

// Table is the partitioned, striding hash table.
type Table struct {
	partitions []*Partition
	owners     []Owner
	logger     interfaces.Logger
	obs        interfaces.Observer
}

// New builds a Table per cfg, applying defaults from internal/constants
// for any zero field.
func New(cfg Config) *Table {
	nparts := cfg.Partitions
	if nparts <= 0 {
		nparts = constants.DefaultPartitions
	}
	capacityMax := cfg.CapacityMax
	if capacityMax < constants.TableStride {
		capacityMax = constants.TableStride
	}
	volume := cfg.Volume
	if volume <= 0 {
		volume = constants.DefaultTableVolume
	}
	perPart := volume / int64(nparts)

	t := &Table{owners: cfg.Owners, logger: cfg.Logger, obs: cfg.Observer}
	for i := 0; i < nparts; i++ {
		t.partitions = append(t.partitions, newPartition(i, capacityMax, perPart))
	}
	return t
}

// Close releases every partition's reserved region.
func (t *Table) Close() error {
	var first error
	for _, p := range t.partitions {
		if err := p.region.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NumPartitions returns how many partitions the table was built with.
func (t *Table) NumPartitions() int { return len(t.partitions) }

// PartitionIndex maps a key's fingerprint to its owning partition.
func (t *Table) PartitionIndex(h uint32) int {
	return int(h % uint32(len(t.partitions)))
}

func (t *Table) partitionFor(h uint32) *Partition {
	return t.partitions[t.PartitionIndex(h)]
}

func (t *Table) owner(idx int) Owner {
	if idx < len(t.owners) {
		return t.owners[idx]
	}
	return nil
}

// Lookup walks the bucket chain for key, returning the matching entry (its
// refcount incremented on behalf of the caller) or false if absent. A
// successful lookup implicitly touches the entry to the LRU tail, per
// GET's touch-on-hit semantics.
func (t *Table) Lookup(h uint32, key []byte) (*Entry, bool) {
	p := t.partitionFor(h)
	p.mu.Lock()
	e := p.lookupLocked(h, key)
	if e != nil {
		p.touchLocked(e)
		e.Ref()
	}
	p.mu.Unlock()
	if t.obs != nil {
		t.obs.ObserveTableLookup(e != nil)
	}
	return e, e != nil
}

// Insert stores key/value, replacing any existing entry for key, and
// returns the new entry. It may trigger an async stride grow or eviction
// pass on the owning partition.
func (t *Table) Insert(h uint32, key, value []byte) *Entry {
	e := newEntry(key, value)
	p := t.partitionFor(h)

	p.mu.Lock()
	if existing := p.lookupLocked(h, key); existing != nil {
		p.removeLocked(h, existing)
	}
	e.cas.StoreRelease(p.nextCas())
	p.insertLocked(h, e)
	p.mu.Unlock()

	t.maybeGrow(p)
	t.maybeEvict(p)
	return e
}

// Remove unlinks key's entry from its partition, returning it (now owned
// by the caller) or false if absent.
func (t *Table) Remove(h uint32, key []byte) (*Entry, bool) {
	p := t.partitionFor(h)
	p.mu.Lock()
	e := p.lookupLocked(h, key)
	if e != nil {
		p.removeLocked(h, e)
	}
	p.mu.Unlock()
	return e, e != nil
}

// Touch moves e to its partition's LRU tail, marking it most recently
// used without a full lookup.
func (t *Table) Touch(h uint32, e *Entry) {
	p := t.partitionFor(h)
	p.mu.Lock()
	p.touchLocked(e)
	p.mu.Unlock()
}

// Cas replaces key's entry with value iff its current CAS stamp equals
// expected, assigning a new stamp on success. Returns ErrNotFound if key
// is absent, ErrExists on a stamp mismatch.
func (t *Table) Cas(h uint32, key []byte, expected uint64, value []byte) (*Entry, error) {
	p := t.partitionFor(h)
	p.mu.Lock()
	existing := p.lookupLocked(h, key)
	if existing == nil {
		p.mu.Unlock()
		return nil, ErrNotFound
	}
	if existing.Cas() != expected {
		p.mu.Unlock()
		return nil, ErrExists
	}
	p.removeLocked(h, existing)
	e := newEntry(key, value)
	e.cas.StoreRelease(p.nextCas())
	p.insertLocked(h, e)
	p.mu.Unlock()

	t.maybeGrow(p)
	return e, nil
}

// maybeGrow starts an async stride grow on p if its load factor warrants
// one and no stride is already in flight.
func (t *Table) maybeGrow(p *Partition) {
	if !p.needsGrowth() {
		return
	}
	if !p.tryStartStriding() {
		return
	}
	t.runOnOwner(p.index, func(func()) {
		p.growStride()
		p.finishStriding()
	})
}

// maybeEvict starts an async eviction pass on p if it is over its byte
// budget and no eviction is already in flight.
func (t *Table) maybeEvict(p *Partition) {
	if !p.overBudget() {
		return
	}
	if !p.tryStartEvicting() {
		return
	}
	t.runOnOwner(p.index, func(yield func()) {
		p.evictUntilUnderBudget(yield, t.obs)
		p.finishEvicting()
	})
}

// runOnOwner runs fn asynchronously on partition idx's owning thread, via
// a fiber spawned from a request posted through internal/fabric, passing
// that fiber's Yield as fn's cooperative-yield hook. With no owner wired
// (the single-partition collapse path), fn runs inline and synchronously
// with no yield hook.
func (t *Table) runOnOwner(idx int, fn func(yield func())) {
	owner := t.owner(idx)
	if owner == nil {
		fn(nil)
		return
	}
	fabric.PostK(owner.Queue(), owner, func([6]uintptr) uintptr {
		owner.Scheduler().Spawn(constants.PriorityLow, func(f *fiber.Fiber) {
			fn(f.Yield)
		})
		return 0
	})
}
