//go:build linux

package shm

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DefaultDir is where named segments live. POSIX shm_open is a thin
// wrapper over files here, so plain open/ftruncate/mmap gives the same
// cross-process visibility.
const DefaultDir = "/dev/shm"

func regionPath(dir, name string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, name)
}

// MapRegion creates or opens the named region and maps it read-write
// shared. On create the region is ftruncated to opts.Size and zero-filled
// by the kernel.
func MapRegion(dir string, opts MapOptions) (*MappedRegion, error) {
	flags := unix.O_RDWR
	if opts.Create {
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	path := regionPath(dir, opts.Name)
	fd, err := unix.Open(path, flags, 0600)
	if err != nil {
		if opts.Create && err == unix.EEXIST {
			return nil, fmt.Errorf("open %s: %w", path, ErrExists)
		}
		if !opts.Create && err == unix.ENOENT {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotExist)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	size := opts.Size
	if opts.Create {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			_ = unix.Unlink(path)
			return nil, fmt.Errorf("ftruncate %s: %w", path, err)
		}
	} else if size <= 0 {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("fstat %s: %w", path, err)
		}
		size = int(st.Size)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		if opts.Create {
			_ = unix.Unlink(path)
		}
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &MappedRegion{Name: opts.Name, Data: data, fd: fd}, nil
}

// UnmapRegion releases this process's mapping. The segment itself stays
// alive until RemoveRegion.
func UnmapRegion(region *MappedRegion) error {
	if region == nil || region.Data == nil {
		return nil
	}
	if err := unix.Munmap(region.Data); err != nil {
		return fmt.Errorf("munmap %s: %w", region.Name, err)
	}
	region.Data = nil
	if err := unix.Close(region.fd); err != nil {
		return fmt.Errorf("close %s: %w", region.Name, err)
	}
	region.fd = -1
	return nil
}

// RemoveRegion destroys the named segment. Existing mappings in any
// process stay valid until unmapped; the name becomes reusable at once.
func RemoveRegion(dir, name string) error {
	path := regionPath(dir, name)
	if err := unix.Unlink(path); err != nil {
		if err == unix.ENOENT {
			return fmt.Errorf("unlink %s: %w", path, ErrNotExist)
		}
		return fmt.Errorf("unlink %s: %w", path, err)
	}
	return nil
}

// RegionExists reports whether a live segment with the name exists.
func RegionExists(dir, name string) bool {
	var st unix.Stat_t
	return unix.Stat(regionPath(dir, name), &st) == nil
}
