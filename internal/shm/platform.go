// Package shm contains the platform-specific mapping helpers behind the
// segment lifecycle. Callers go through pkg/segment; nothing here keeps
// bookkeeping beyond the single mapped region.
package shm

// MappedRegion represents one process's mapping of a named shared region.
type MappedRegion struct {
	Name string
	Data []byte

	fd     int
	handle uintptr
}

// MapOptions defines how a named region is created or opened.
type MapOptions struct {
	// Name is the OS-visible segment name (no directory part).
	Name string
	// Size is the region size in bytes. Required when creating; when
	// opening an existing region with Size 0 the on-disk size is used.
	Size int
	// Create requests exclusive creation. Creating a name that already
	// exists fails with ErrExists so the caller can run its collision
	// policy.
	Create bool
}

// Size returns the mapped length in bytes.
func (r *MappedRegion) Size() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}

// Function bodies are per-platform (platform_linux.go, platform_windows.go).
