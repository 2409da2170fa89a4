//go:build windows

package shm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// DefaultDir is unused on Windows; named mappings live in the session-local
// kernel namespace instead of a filesystem directory.
const DefaultDir = ""

func objectName(name string) (*uint16, error) {
	return windows.UTF16PtrFromString("Local\\" + name)
}

// MapRegion creates or opens a named file-mapping object backed by the
// system paging file and maps a read-write view of it.
func MapRegion(dir string, opts MapOptions) (*MappedRegion, error) {
	namep, err := objectName(opts.Name)
	if err != nil {
		return nil, fmt.Errorf("name %s: %w", opts.Name, err)
	}
	var handle windows.Handle
	size := opts.Size
	if opts.Create {
		handle, err = windows.CreateFileMapping(windows.InvalidHandle, nil,
			windows.PAGE_READWRITE, uint32(uint64(size)>>32), uint32(size), namep)
		// The wrapper reports ERROR_ALREADY_EXISTS as err while still
		// returning a valid handle to the existing mapping.
		if err == windows.ERROR_ALREADY_EXISTS {
			_ = windows.CloseHandle(handle)
			return nil, fmt.Errorf("create %s: %w", opts.Name, ErrExists)
		}
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", opts.Name, err)
		}
	} else {
		handle, err = windows.OpenFileMapping(windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, false, namep)
		if err != nil {
			if err == windows.ERROR_FILE_NOT_FOUND {
				return nil, fmt.Errorf("open %s: %w", opts.Name, ErrNotExist)
			}
			return nil, fmt.Errorf("open %s: %w", opts.Name, err)
		}
	}
	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		_ = windows.CloseHandle(handle)
		return nil, fmt.Errorf("map view %s: %w", opts.Name, err)
	}
	if size <= 0 {
		var info windows.MemoryBasicInformation
		if err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info)); err != nil {
			_ = windows.UnmapViewOfFile(addr)
			_ = windows.CloseHandle(handle)
			return nil, fmt.Errorf("query %s: %w", opts.Name, err)
		}
		size = int(info.RegionSize)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &MappedRegion{Name: opts.Name, Data: data, handle: uintptr(handle)}, nil
}

// UnmapRegion unmaps the view and closes the mapping handle.
func UnmapRegion(region *MappedRegion) error {
	if region == nil || region.Data == nil {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&region.Data[0]))
	if err := windows.UnmapViewOfFile(addr); err != nil {
		return fmt.Errorf("unmap view %s: %w", region.Name, err)
	}
	region.Data = nil
	if err := windows.CloseHandle(windows.Handle(region.handle)); err != nil {
		return fmt.Errorf("close %s: %w", region.Name, err)
	}
	region.handle = 0
	return nil
}

// RemoveRegion is a no-op on Windows: named mappings are reference counted
// by the kernel and vanish when the last handle closes.
func RemoveRegion(dir, name string) error {
	return nil
}

// RegionExists probes the name with an open attempt.
func RegionExists(dir, name string) bool {
	namep, err := objectName(name)
	if err != nil {
		return false
	}
	h, err := windows.OpenFileMapping(windows.FILE_MAP_READ, false, namep)
	if err != nil {
		return false
	}
	_ = windows.CloseHandle(h)
	return true
}
