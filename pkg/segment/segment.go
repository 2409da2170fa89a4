package segment

import (
	"sync/atomic"

	"github.com/procmem/shmarr/internal/shm"
)

// Segment is one process's binding to a named shared memory region. The
// same physical bytes may be mapped by any number of processes; a Segment
// only describes the mapping held here and whether this process owes the
// region destruction.
type Segment struct {
	name   string
	owned  bool
	region *shm.MappedRegion

	// views counts exported references into the mapping. Close refuses
	// while it is non-zero; this is the release barrier that replaces the
	// platform "exported pointers exist" fault.
	views  atomic.Int32
	closed atomic.Bool
}

// Name returns the OS-visible segment name.
func (s *Segment) Name() string { return s.name }

// Size returns the region size in bytes.
func (s *Segment) Size() int { return s.region.Size() }

// Owned reports whether this process created the segment and owes unlink.
func (s *Segment) Owned() bool { return s.owned }

// Bytes exposes the mapped region and takes an exported reference on it.
// Every successful Bytes call must be paired with a Release before the
// segment can be closed. Returns nil after Close.
func (s *Segment) Bytes() []byte {
	if s.closed.Load() {
		return nil
	}
	s.views.Add(1)
	return s.region.Data
}

// Release drops one exported reference taken by Bytes.
func (s *Segment) Release() {
	for {
		n := s.views.Load()
		if n <= 0 {
			return
		}
		if s.views.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// ViewCount returns the number of outstanding exported references.
func (s *Segment) ViewCount() int { return int(s.views.Load()) }
