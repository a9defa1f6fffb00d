//go:build linux

package cgroup

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ja7ad/nodemx/pkg/system/vfs"
)

// fakeMagic installs a fsMagic stub serving the given path->magic map;
// unlisted paths fail as if statfs returned an error.
func fakeMagic(t *testing.T, magics map[string]int64) {
	t.Helper()
	orig := fsMagic
	fsMagic = func(path string) (int64, error) {
		if m, ok := magics[path]; ok {
			return m, nil
		}
		return 0, os.ErrNotExist
	}
	t.Cleanup(func() { fsMagic = orig })
}

func writeSelfFile(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "cgroup")
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	return name
}

func testConfig(root, selfFile string) Config {
	return Config{
		Enabled:  true,
		Root:     root,
		SelfFile: selfFile,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func Test_DetectMode(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name   string
		magics map[string]int64
		self   string
		want   Mode
	}{
		{
			"pure v2",
			map[string]int64{root: unix.CGROUP2_SUPER_MAGIC},
			"0::/\n",
			Unified,
		},
		{
			"v2 root with v1 hierarchies still active",
			map[string]int64{root: unix.CGROUP2_SUPER_MAGIC},
			"1:memory:/\n0::/\n",
			Hybrid,
		},
		{
			"tmpfs with unified subtree",
			map[string]int64{
				root:                          unix.TMPFS_MAGIC,
				filepath.Join(root, "unified"): unix.CGROUP2_SUPER_MAGIC,
			},
			"1:memory:/\n0::/\n",
			Hybrid,
		},
		{
			"tmpfs without unified subtree",
			map[string]int64{root: unix.TMPFS_MAGIC},
			"1:memory:/\n",
			Legacy,
		},
		{
			"unexpected filesystem",
			map[string]int64{root: 0x12345},
			"0::/\n",
			Disabled,
		},
		{
			"root not statable",
			map[string]int64{},
			"0::/\n",
			Disabled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeMagic(t, tt.magics)
			c := &Context{cfg: testConfig(root, writeSelfFile(t, tt.self))}
			c.log = c.cfg.Logger
			assert.Equal(t, tt.want, c.detectMode())
		})
	}
}

func Test_DetectModeSelfFileUnreadable(t *testing.T) {
	root := t.TempDir()
	fakeMagic(t, map[string]int64{root: unix.CGROUP2_SUPER_MAGIC})

	// the hybrid downgrade check is skipped when the membership file
	// cannot be read; the mode stays Unified
	c := &Context{cfg: testConfig(root, filepath.Join(root, "absent"))}
	c.log = c.cfg.Logger
	assert.Equal(t, Unified, c.detectMode())
}

func Test_DetectModeDisabledByConfig(t *testing.T) {
	fakeMagic(t, map[string]int64{"/x": unix.CGROUP2_SUPER_MAGIC})
	cfg := testConfig("/x", "/proc/self/cgroup")
	cfg.Enabled = false
	c := &Context{cfg: cfg, log: cfg.Logger}
	assert.Equal(t, Disabled, c.detectMode())
}

func Test_ModeString(t *testing.T) {
	assert.Equal(t, "disabled", Disabled.String())
	assert.Equal(t, "legacy", Legacy.String())
	assert.Equal(t, "unified", Unified.String())
	assert.Equal(t, "hybrid", Hybrid.String())
}

// unifiedTree fabricates a v2 hierarchy under a temp root and returns the
// configured context plus the base directory of the process's group.
func unifiedTree(t *testing.T, controllers string) (*Context, string) {
	t.Helper()
	root := t.TempDir()
	base := filepath.Join(root, "mygroup")
	require.NoError(t, os.MkdirAll(base, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "cgroup.controllers"), []byte(controllers), 0o644))

	fakeMagic(t, map[string]int64{root: unix.CGROUP2_SUPER_MAGIC})
	c, err := New(testConfig(root, writeSelfFile(t, "0::/mygroup\n")))
	require.NoError(t, err)
	return c, base
}

func Test_ResolveUnified(t *testing.T) {
	c, base := unifiedTree(t, "cpuset cpu io memory\n")

	assert.Equal(t, Unified, c.Mode())
	assert.False(t, c.Containerized())

	table := c.Table()
	require.Len(t, table, 5)
	for _, e := range table {
		assert.Equal(t, base, e.Path)
		assert.True(t, e.Resolved)
	}
	assert.Equal(t, "cgroup", table[4].Controller)

	for _, key := range []string{"cpuset", "cpu", "io", "memory", "cgroup", "default"} {
		p, err := c.ResolvePath(key)
		require.NoError(t, err)
		assert.Equal(t, base, p)
	}

	_, err := c.ResolvePath("hugetlb")
	assert.ErrorIs(t, err, ErrControllerNotFound)
}

func Test_ResolveLegacy(t *testing.T) {
	root := t.TempDir()
	self := "12:cpu,cpuacct:/grp\n9:memory:/grp\n5:name=systemd:/grp\n"

	// co-mount directory uses the opposite token order from the
	// membership file
	for _, dir := range []string{"cpuacct,cpu", "memory", "systemd"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir, "grp"), 0o755))
	}

	fakeMagic(t, map[string]int64{root: unix.TMPFS_MAGIC})
	c, err := New(testConfig(root, writeSelfFile(t, self)))
	require.NoError(t, err)

	assert.Equal(t, Legacy, c.Mode())
	assert.False(t, c.Containerized())

	comount := filepath.Join(root, "cpuacct,cpu", "grp")
	for _, key := range []string{"cpu", "cpuacct", "cpu,cpuacct"} {
		p, err := c.ResolvePath(key)
		require.NoError(t, err)
		assert.Equal(t, comount, p, "key %s", key)
	}

	memPath := filepath.Join(root, "memory", "grp")
	p, err := c.ResolvePath("memory")
	require.NoError(t, err)
	assert.Equal(t, memPath, p)

	// named hierarchy key is the part after "name="
	p, err = c.ResolvePath("systemd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "systemd", "grp"), p)

	// the default entry aliases the memory controller's directory
	p, err = c.ResolvePath("cgroup")
	require.NoError(t, err)
	assert.Equal(t, memPath, p)

	_, err = c.ResolvePath("blkio")
	assert.ErrorIs(t, err, ErrControllerNotFound)
}

func Test_ResolveLegacyMissingController(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "memory", "grp"), 0o755))

	fakeMagic(t, map[string]int64{root: unix.TMPFS_MAGIC})
	c, err := New(testConfig(root, writeSelfFile(t, "3:blkio:/grp\n9:memory:/grp\n")))
	require.NoError(t, err)

	// the miss is recorded, not fatal; reads through the sentinel fail
	// later with a non-existent file error
	p, err := c.ResolvePath("blkio")
	require.NoError(t, err)
	assert.Equal(t, ControllerNotFound, p)

	var entry PathEntry
	for _, e := range c.Table() {
		if e.Controller == "blkio" {
			entry = e
		}
	}
	assert.False(t, entry.Resolved)
}

func Test_ResolveLegacyContainerized(t *testing.T) {
	root := t.TempDir()
	// containerized resolution ignores the membership path entirely
	require.NoError(t, os.MkdirAll(filepath.Join(root, "memory"), 0o755))

	fakeMagic(t, map[string]int64{root: unix.TMPFS_MAGIC})
	cfg := testConfig(root, writeSelfFile(t, "9:memory:/kubepods/pod1234/abcd\n"))
	containerized := true
	cfg.Containerized = &containerized

	c, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, c.Containerized())

	p, err := c.ResolvePath("memory")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "memory"), p)
}

func Test_ContainerizedHeuristic(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "mygroup"), 0o755))
	fakeMagic(t, map[string]int64{root: unix.CGROUP2_SUPER_MAGIC})

	// candidate directory exists -> host
	c := &Context{cfg: testConfig(root, writeSelfFile(t, "0::/mygroup\n"))}
	c.log = c.cfg.Logger
	c.mode = Unified
	assert.False(t, c.detectContainerized())

	// candidate directory absent -> containerized
	c = &Context{cfg: testConfig(root, writeSelfFile(t, "0::/kubepods/pod1234\n"))}
	c.log = c.cfg.Logger
	c.mode = Unified
	assert.True(t, c.detectContainerized())

	// hybrid is always treated as host
	c.mode = Hybrid
	assert.False(t, c.detectContainerized())
}

func Test_ResolvePathUnsupportedMode(t *testing.T) {
	root := t.TempDir()
	fakeMagic(t, map[string]int64{
		root:                           unix.TMPFS_MAGIC,
		filepath.Join(root, "unified"): unix.CGROUP2_SUPER_MAGIC,
	})

	c, err := New(testConfig(root, writeSelfFile(t, "1:memory:/\n0::/\n")))
	require.NoError(t, err)
	require.Equal(t, Hybrid, c.Mode())

	// no controller table exists in hybrid mode; lookups fail as a
	// configuration problem, not a missing controller
	_, err = c.ResolvePath("memory")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
	_, err = c.FilePath("memory.current")
	assert.ErrorIs(t, err, ErrUnsupportedMode)

	cfg := testConfig(root, writeSelfFile(t, "0::/\n"))
	cfg.Enabled = false
	c, err = New(cfg)
	require.NoError(t, err)
	require.Equal(t, Disabled, c.Mode())

	_, err = c.ResolvePath("cgroup")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func Test_FilePath(t *testing.T) {
	c, base := unifiedTree(t, "cpu memory\n")

	p, err := c.FilePath("memory.current")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "memory.current"), p)

	_, err = c.FilePath("nodots")
	require.Error(t, err)

	_, err = c.FilePath("../memory.current")
	assert.ErrorIs(t, err, vfs.ErrParentReference)

	_, err = c.FilePath("/etc/memory.current")
	assert.ErrorIs(t, err, vfs.ErrAbsolutePath)

	_, err = c.FilePath("hugetlb.max")
	assert.ErrorIs(t, err, ErrControllerNotFound)
}

func Test_Members(t *testing.T) {
	c, base := unifiedTree(t, "memory\n")
	require.NoError(t, os.WriteFile(filepath.Join(base, "cgroup.procs"), []byte("30\n10\n10\n20\n"), 0o644))

	pids, err := c.Members()
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, pids)
}

func Test_MembersMalformed(t *testing.T) {
	c, base := unifiedTree(t, "memory\n")
	require.NoError(t, os.WriteFile(filepath.Join(base, "cgroup.procs"), []byte("10\nmax\n"), 0o644))

	_, err := c.Members()
	require.Error(t, err)
}

func Test_ResetRebuildsTable(t *testing.T) {
	c, base := unifiedTree(t, "cpu memory\n")
	first := c.Table()

	require.NoError(t, c.Reset())
	assert.Equal(t, first, c.Table())

	// a grown controller set shows up after Reset
	require.NoError(t, os.WriteFile(filepath.Join(base, "cgroup.controllers"), []byte("cpu memory io\n"), 0o644))
	require.NoError(t, c.Reset())
	assert.Len(t, c.Table(), 4)
}

func Test_VisitPermutations(t *testing.T) {
	var seen [][]string
	visitPermutations([]string{"a", "b", "c"}, func(p []string) bool {
		cp := make([]string, len(p))
		copy(cp, p)
		seen = append(seen, cp)
		return false
	})
	assert.Len(t, seen, 6)

	uniq := map[string]bool{}
	for _, p := range seen {
		uniq[p[0]+p[1]+p[2]] = true
	}
	assert.Len(t, uniq, 6)
}
