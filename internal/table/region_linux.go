//go:build linux

package table

import "golang.org/x/sys/unix"

// mmapRegion reserves capacityMax*regionStride bytes of address space with
// PROT_NONE, then extends the committed PROT_READ|PROT_WRITE prefix as the
// partition grows, matching the "reserve then commit" guidance for the
// hash table's bucket capacity ceiling.
type mmapRegion struct {
	mem       []byte
	committed int // bytes currently PROT_READ|PROT_WRITE
}

func newRegion(capacityMax int) (region, error) {
	size := capacityMax * regionStride
	if size <= 0 {
		size = regionStride
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &mmapRegion{mem: mem}, nil
}

func (r *mmapRegion) commit(n int) error {
	want := n * regionStride
	if want <= r.committed {
		return nil
	}
	if want > len(r.mem) {
		want = len(r.mem)
	}
	if err := unix.Mprotect(r.mem[:want], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return err
	}
	r.committed = want
	return nil
}

func (r *mmapRegion) close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	return err
}
