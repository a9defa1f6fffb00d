//go:build linux

package cgroup

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/nodemx/pkg/system/parse"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
)

// fsMagic reports the filesystem magic number of the mount holding path.
// Package variable so tests can simulate mount layouts.
var fsMagic = func(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Type), nil
}

// detectMode classifies the cgroup layout from the filesystem signature of
// the configured root:
//
//	cgroup2 on the root            -> unified
//	tmpfs with a cgroup2 "unified" -> hybrid
//	tmpfs without one              -> legacy
//
// Any probe failure or unexpected mount type logs a warning and yields
// Disabled; detection never fails hard.
func (c *Context) detectMode() Mode {
	if !c.cfg.Enabled {
		return Disabled
	}

	magic, err := fsMagic(c.cfg.Root)
	if err != nil {
		c.log.Warn("disabling cgroup access: cannot stat cgroup root",
			"root", c.cfg.Root, "error", err)
		return Disabled
	}

	switch magic {
	case unix.CGROUP2_SUPER_MAGIC:
		// Some setups mount cgroup2 on the root while v1 hierarchies
		// remain active. More than one membership line means the v1
		// hierarchies still exist, so treat the host as hybrid.
		raw, err := vfs.ReadVFS(c.cfg.SelfFile)
		if err != nil {
			c.log.Warn("cannot read cgroup membership, skipping hybrid check",
				"file", c.cfg.SelfFile, "error", err)
			return Unified
		}
		if len(parse.NLSV(raw)) != 1 {
			return Hybrid
		}
		return Unified
	case unix.TMPFS_MAGIC:
		if um, err := fsMagic(filepath.Join(c.cfg.Root, "unified")); err == nil && um == unix.CGROUP2_SUPER_MAGIC {
			return Hybrid
		}
		return Legacy
	default:
		c.log.Warn("disabling cgroup access: unexpected filesystem type on cgroup root",
			"root", c.cfg.Root, "magic", magic)
		return Disabled
	}
}

// detectContainerized decides whether the process runs inside a container.
// The heuristic: derive the host-side directory this process's cgroup
// membership would occupy and probe it. On the host the directory exists;
// inside a container the membership paths are relative to the container's
// namespace and the derived directory does not exist.
func (c *Context) detectContainerized() bool {
	if c.cfg.Containerized != nil {
		return *c.cfg.Containerized
	}

	// Hybrid hosts are assumed non-containerized; the heuristic's
	// signals are ambiguous there.
	if c.mode == Hybrid {
		return false
	}
	if c.mode == Disabled {
		return false
	}

	raw, err := vfs.ReadVFS(c.cfg.SelfFile)
	if err != nil {
		c.log.Warn("containerization check: cannot read cgroup membership, assuming containerized",
			"file", c.cfg.SelfFile, "error", err)
		return true
	}

	var candidate string
	switch c.mode {
	case Legacy:
		candidate = c.legacyCandidate(raw)
	case Unified:
		candidate = c.unifiedCandidate(raw)
	}
	if candidate == "" {
		return true
	}

	_, err = os.Stat(candidate)
	return err != nil
}

// legacyCandidate derives the probe path from the memory controller's
// membership line, e.g. "9:memory:/user.slice" under root /sys/fs/cgroup
// becomes /sys/fs/cgroup/memory/user.slice.
func (c *Context) legacyCandidate(raw string) string {
	for _, line := range parse.NLSV(raw) {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 || !strings.HasPrefix(parts[1], "memory") {
			continue
		}
		return filepath.Join(c.cfg.Root, "memory", parts[2])
	}
	return ""
}

// unifiedCandidate derives the probe path from the single v2 membership
// line by stripping the fixed "0::/" prefix.
func (c *Context) unifiedCandidate(raw string) string {
	line, err := parse.OneNLSV(raw)
	if err != nil || len(line) < 4 || !strings.HasPrefix(line, "0::") {
		return ""
	}
	return filepath.Join(c.cfg.Root, line[4:])
}
