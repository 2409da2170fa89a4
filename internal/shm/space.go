package shm

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// CanCreate reports whether a segment of the given size fits in the backing
// filesystem. Only tmpfs-backed directories on Linux are actually bounded;
// everywhere else the answer is yes and creation failures surface from the
// kernel instead.
func CanCreate(size uint64, dir string) bool {
	if runtime.GOOS != "linux" {
		return true
	}
	if dir == "" {
		dir = DefaultDir
	}
	if !strings.HasPrefix(dir, "/dev/shm") {
		return true
	}
	stat, err := disk.Usage(dir)
	if err != nil {
		return true
	}
	return stat.Free >= size
}
