package segment

import (
	cmap "github.com/orcaman/concurrent-map/v2"
)

// registry holds this process's bookkeeping for live segments, split by
// ownership. Local entries were created here and owe close+unlink; foreign
// entries were attached and owe close only. Cross-process consistency is
// carried by OS name uniqueness, not by this table.
type registry struct {
	local   cmap.ConcurrentMap[string, *Segment]
	foreign cmap.ConcurrentMap[string, *Segment]
}

func newRegistry() *registry {
	return &registry{
		local:   cmap.New[*Segment](),
		foreign: cmap.New[*Segment](),
	}
}

// has reports whether the name is tracked in either partition.
func (r *registry) has(name string) bool {
	return r.local.Has(name) || r.foreign.Has(name)
}

func (r *registry) registerLocal(seg *Segment) error {
	if r.has(seg.name) {
		return ErrDuplicateName
	}
	r.local.Set(seg.name, seg)
	return nil
}

func (r *registry) registerForeign(seg *Segment) error {
	if r.has(seg.name) {
		return ErrDuplicateName
	}
	r.foreign.Set(seg.name, seg)
	return nil
}

// lookup returns the tracked segment, preferring local over foreign.
func (r *registry) lookup(name string) (*Segment, bool) {
	if seg, ok := r.local.Get(name); ok {
		return seg, true
	}
	if seg, ok := r.foreign.Get(name); ok {
		return seg, true
	}
	return nil, false
}

func (r *registry) removeLocal(name string)   { r.local.Remove(name) }
func (r *registry) removeForeign(name string) { r.foreign.Remove(name) }

// snapshotLocal returns the current local entries. Cleanup iterates the
// snapshot so removals during the sweep do not invalidate it.
func (r *registry) snapshotLocal() []*Segment {
	segs := make([]*Segment, 0, r.local.Count())
	for item := range r.local.IterBuffered() {
		segs = append(segs, item.Val)
	}
	return segs
}

func (r *registry) snapshotForeign() []*Segment {
	segs := make([]*Segment, 0, r.foreign.Count())
	for item := range r.foreign.IterBuffered() {
		segs = append(segs, item.Val)
	}
	return segs
}
