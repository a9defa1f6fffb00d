//go:build linux

package vfs

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// statvfs mount flag bits as reported in Statfs_t.Flags.
const (
	stRdonly      = 0x0001
	stNosuid      = 0x0002
	stNodev       = 0x0004
	stNoexec      = 0x0008
	stSynchronous = 0x0010
	stMandlock    = 0x0040
	stNoatime     = 0x0400
	stNodiratime  = 0x0800
	stRelatime    = 0x1000
)

var mountFlagNames = []struct {
	flag int64
	name string
}{
	{stMandlock, "mandlock"},
	{stNoatime, "noatime"},
	{stNodev, "nodev"},
	{stNodiratime, "nodiratime"},
	{stNoexec, "noexec"},
	{stNosuid, "nosuid"},
	{stRdonly, "rdonly"},
	{stRelatime, "relatime"},
	{stSynchronous, "synchronous"},
}

var magicNames = map[int64]string{
	unix.ANON_INODE_FS_MAGIC:   "anon_inode_fs",
	unix.AUTOFS_SUPER_MAGIC:    "autofs",
	unix.BINFMTFS_MAGIC:        "binfmtfs",
	unix.BPF_FS_MAGIC:          "bpf_fs",
	unix.BTRFS_SUPER_MAGIC:     "btrfs",
	unix.CGROUP_SUPER_MAGIC:    "cgroup",
	unix.CGROUP2_SUPER_MAGIC:   "cgroup2",
	unix.CRAMFS_MAGIC:          "cramfs",
	unix.DEBUGFS_MAGIC:         "debugfs",
	unix.DEVPTS_SUPER_MAGIC:    "devpts",
	unix.ECRYPTFS_SUPER_MAGIC:  "ecryptfs",
	unix.EFIVARFS_MAGIC:        "efivarfs",
	unix.EXT4_SUPER_MAGIC:      "ext4",
	unix.F2FS_SUPER_MAGIC:      "f2fs",
	unix.HOSTFS_SUPER_MAGIC:    "hostfs",
	unix.HUGETLBFS_MAGIC:       "hugetlbfs",
	unix.ISOFS_SUPER_MAGIC:     "isofs",
	unix.JFFS2_SUPER_MAGIC:     "jffs2",
	unix.MSDOS_SUPER_MAGIC:     "msdos",
	unix.NFS_SUPER_MAGIC:       "nfs",
	unix.NILFS_SUPER_MAGIC:     "nilfs",
	unix.OVERLAYFS_SUPER_MAGIC: "overlayfs",
	unix.PIPEFS_MAGIC:          "pipefs",
	unix.PROC_SUPER_MAGIC:      "proc",
	unix.PSTOREFS_MAGIC:        "pstorefs",
	unix.RAMFS_MAGIC:           "ramfs",
	unix.SECURITYFS_MAGIC:      "securityfs",
	unix.SELINUX_MAGIC:         "selinux",
	unix.SMACK_MAGIC:           "smack",
	unix.SOCKFS_MAGIC:          "sockfs",
	unix.SQUASHFS_MAGIC:        "squashfs",
	unix.SYSFS_MAGIC:           "sysfs",
	unix.TMPFS_MAGIC:           "tmpfs",
	unix.TRACEFS_MAGIC:         "tracefs",
	unix.V9FS_MAGIC:            "v9fs",
	unix.XENFS_SUPER_MAGIC:     "xenfs",
	unix.XFS_SUPER_MAGIC:       "xfs",
}

// FSInfo describes the filesystem holding a path, from statfs plus stat.
type FSInfo struct {
	Major      uint64
	Minor      uint64
	Type       string
	BlockSize  int64
	Blocks     uint64
	TotalBytes uint64
	Free       uint64
	FreeBytes  uint64
	Avail      uint64
	AvailBytes uint64
	Files      uint64
	FFree      uint64
	MountFlags string
}

// StatFS collects filesystem information for the given path.
func StatFS(pathname string) (*FSInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(pathname, &st); err != nil {
		return nil, fmt.Errorf("vfs: stat error on path %q: %w", pathname, err)
	}

	var fs unix.Statfs_t
	if err := unix.Statfs(pathname, &fs); err != nil {
		return nil, fmt.Errorf("vfs: statfs error on path %q: %w", pathname, err)
	}

	bsize := fs.Bsize

	return &FSInfo{
		Major:      uint64(unix.Major(st.Dev)),
		Minor:      uint64(unix.Minor(st.Dev)),
		Type:       MagicName(fs.Type),
		BlockSize:  bsize,
		Blocks:     fs.Blocks,
		TotalBytes: fs.Blocks * uint64(bsize),
		Free:       fs.Bfree,
		FreeBytes:  fs.Bfree * uint64(bsize),
		Avail:      fs.Bavail,
		AvailBytes: fs.Bavail * uint64(bsize),
		Files:      fs.Files,
		FFree:      fs.Ffree,
		MountFlags: mountFlagString(fs.Flags),
	}, nil
}

// MagicName maps a statfs f_type magic number to a filesystem name.
func MagicName(magic int64) string {
	if name, ok := magicNames[magic]; ok {
		return name
	}
	return "unknown"
}

func mountFlagString(flags int64) string {
	var names []string
	for _, mf := range mountFlagNames {
		if flags&mf.flag == mf.flag {
			names = append(names, mf.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
