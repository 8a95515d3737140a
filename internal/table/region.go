package table

// region tracks a reserve-then-commit virtual memory range backing one
// partition's bucket capacity. The region itself only accounts for the
// address space a partition is entitled to grow into; the visible bucket
// array is a plain Go slice preallocated to capacityMax up front (see
// Partition.buckets), since committing a Go-pointer-carrying slice into
// raw mmap'd memory would put GC-managed pointers outside the heap the
// collector scans. mmap(PROT_NONE) still does real, useful work here: it
// reserves and then incrementally commits address space, bounding how far
// a partition's capacity may grow.
type region interface {
	// commit extends the committed range to cover the first n buckets'
	// worth of accounting bytes. A request past the reserved ceiling is
	// clamped to it; an error means the OS rejected the commit.
	commit(n int) error
	close() error
}

// regionStride is the number of accounting bytes committed per bucket; it
// has no bearing on bucket content, only on how coarsely mmap/mprotect
// calls are made as a partition grows.
const regionStride = 8
