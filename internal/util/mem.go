package util

import "golang.org/x/sys/unix"

// AvailableMemoryBytes returns free RAM as reported by the kernel's
// sysinfo (page cache and buffers are not counted), or 0 if it cannot be
// determined.
func AvailableMemoryBytes() uint64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return uint64(info.Freeram) * uint64(info.Unit)
}
