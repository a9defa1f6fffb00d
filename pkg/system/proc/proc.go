//go:build linux

// Package proc reads the fixed-schema procfs files: system-wide counters
// (stat, loadavg, meminfo, diskstats, net/dev, mountinfo) and per-pid
// files (stat, io, cmdline, children).
//
// Unlike cgroup files these have stable kernel-defined layouts, so each
// reader returns a typed struct or slice instead of generic key/value
// rows.
package proc

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// procRoot is the procfs mount point. Package variable so tests can point
// the readers at a fabricated tree.
var procRoot = "/proc"

// Available reports whether procRoot is backed by a real procfs mount.
func Available() bool {
	var st unix.Statfs_t
	if err := unix.Statfs(procRoot, &st); err != nil {
		return false
	}
	return int64(st.Type) == unix.PROC_SUPER_MAGIC
}

// Exists reports whether a pid currently has a /proc entry.
func Exists(pid int64) bool {
	_, err := os.Stat(fmt.Sprintf("%s/%d", procRoot, pid))
	return err == nil
}

// ClockTicks returns the number of jiffies (clock ticks) per second. The
// env var CLK_TCK overrides for testing; otherwise the common default of
// 100 is used, since sysconf(_SC_CLK_TCK) needs cgo.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// PageSize returns the system memory page size in bytes, honoring a
// PAGE_SIZE env override to ease testing.
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}
