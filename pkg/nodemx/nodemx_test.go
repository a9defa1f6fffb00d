//go:build linux

package nodemx

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/nodemx/pkg/system/cgroup"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
)

// fakeTopo is a unified-style topology rooted at one directory.
type fakeTopo struct {
	dir  string
	pids []int64
}

func (f *fakeTopo) Mode() cgroup.Mode   { return cgroup.Unified }
func (f *fakeTopo) Containerized() bool { return false }

func (f *fakeTopo) Table() []cgroup.PathEntry {
	return []cgroup.PathEntry{{Controller: "cgroup", Path: f.dir, Resolved: true}}
}

func (f *fakeTopo) ResolvePath(string) (string, error) { return f.dir, nil }

func (f *fakeTopo) FilePath(filename string) (string, error) {
	name, err := vfs.CheckFilename(filename)
	if err != nil {
		return "", err
	}
	if !strings.Contains(name, ".") {
		return "", os.ErrInvalid
	}
	return filepath.Join(f.dir, name), nil
}

func (f *fakeTopo) Members() ([]int64, error) { return f.pids, nil }

func testAccessor(t *testing.T, files map[string]string) *Accessor {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return New(&fakeTopo{dir: dir, pids: []int64{10, 20, 30}})
}

func Test_ModeAndProcesses(t *testing.T) {
	a := testAccessor(t, nil)

	assert.Equal(t, "unified", a.ModeName())
	assert.False(t, a.Containerized())

	pids, err := a.Processes()
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, pids)

	n, err := a.ProcessCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func Test_Scalars(t *testing.T) {
	a := testAccessor(t, map[string]string{
		"memory.current":  "253952\n",
		"memory.max":      "max\n",
		"cpu.uclamp.min":  "12.34\n",
		"cgroup.type":     "domain\n",
		"memory.pressure": "some avg10=0.00 avg60=0.00\nfull avg10=0.00 avg60=0.00\n",
	})

	v, err := a.ScalarInt64("memory.current")
	require.NoError(t, err)
	assert.Equal(t, int64(253952), v)

	v, err = a.ScalarInt64("memory.max")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)

	f, err := a.ScalarFloat64("cpu.uclamp.min")
	require.NoError(t, err)
	assert.InDelta(t, 12.34, f, 1e-9)

	s, err := a.ScalarText("cgroup.type")
	require.NoError(t, err)
	assert.Equal(t, "domain", s)

	// scalar reads reject multi-line files
	_, err = a.ScalarText("memory.pressure")
	require.Error(t, err)
}

func Test_SetOf(t *testing.T) {
	a := testAccessor(t, map[string]string{
		"cgroup.procs":   "30\n10\n20\n",
		"cpuset.cpus":    "0-4 7\n",
		"cgroup.threads": "",
	})

	// multi-line: one value per line
	vals, err := a.SetOfInt64("cgroup.procs")
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 10, 20}, vals)

	// single line: re-split on spaces
	toks, err := a.SetOfText("cpuset.cpus")
	require.NoError(t, err)
	assert.Equal(t, []string{"0-4", "7"}, toks)

	_, err = a.SetOfInt64("cgroup.threads")
	require.Error(t, err)
}

func Test_Array(t *testing.T) {
	a := testAccessor(t, map[string]string{
		"cpu.max":            "max 100000\n",
		"cgroup.controllers": "cpuset cpu io memory\n",
	})

	vals, err := a.ArrayInt64("cpu.max")
	require.NoError(t, err)
	assert.Equal(t, []int64{math.MaxInt64, 100000}, vals)

	toks, err := a.ArrayText("cgroup.controllers")
	require.NoError(t, err)
	assert.Equal(t, []string{"cpuset", "cpu", "io", "memory"}, toks)
}

func Test_FlatKeyed(t *testing.T) {
	a := testAccessor(t, map[string]string{
		"memory.stat": "anon 749568\nfile 12288\nkernel_stack 49152\n",
		"cpu.stat":    "usage_usec 10827674051 extra\n",
	})

	rows, err := a.FlatKeyed("memory.stat")
	require.NoError(t, err)
	assert.Equal(t, []KVRow{
		{Key: "anon", Value: 749568},
		{Key: "file", Value: 12288},
		{Key: "kernel_stack", Value: 49152},
	}, rows)

	_, err = a.FlatKeyed("cpu.stat")
	require.Error(t, err)
}

func Test_KeyedSubtotal(t *testing.T) {
	a := testAccessor(t, map[string]string{
		"blkio.throttle.io_serviced": "8:16 Read 4720\n8:16 Write 0\n8:16 Total 4720\nTotal 4720\n",
	})

	rows, err := a.KeyedSubtotal("blkio.throttle.io_serviced")
	require.NoError(t, err)
	assert.Equal(t, []KSVRow{
		{Key: "8:16", SubKey: "Read", Value: 4720},
		{Key: "8:16", SubKey: "Write", Value: 0},
		{Key: "8:16", SubKey: "Total", Value: 4720},
		// the grand-sum line shifts right under the synthetic "all" key
		{Key: "all", SubKey: "Total", Value: 4720},
	}, rows)
}

func Test_NestedKeyed(t *testing.T) {
	a := testAccessor(t, map[string]string{
		"io.max":  "8:16 rbps=max wbps=120\n253:0 rbps=1000 wbps=2000\n",
		"io.stat": "8:16 rbytes=1459200 wbytes=314773504\n253:0 rbytes=94208\n",
	})

	rows, err := a.NestedKeyed("io.max")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, NKVRow{Key: "8:16", SubKey: "rbps", Value: math.MaxFloat64}, rows[0])
	assert.Equal(t, NKVRow{Key: "8:16", SubKey: "wbps", Value: 120}, rows[1])
	assert.Equal(t, NKVRow{Key: "253:0", SubKey: "rbps", Value: 1000}, rows[2])
	assert.Equal(t, NKVRow{Key: "253:0", SubKey: "wbps", Value: 2000}, rows[3])

	// lines must all have the first line's shape
	_, err = a.NestedKeyed("io.stat")
	require.Error(t, err)
}

func Test_FilenameSafety(t *testing.T) {
	a := testAccessor(t, nil)

	_, err := a.ScalarInt64("../memory.current")
	assert.ErrorIs(t, err, vfs.ErrParentReference)

	_, err = a.ScalarInt64("/memory.current")
	assert.ErrorIs(t, err, vfs.ErrAbsolutePath)
}

func Test_Env(t *testing.T) {
	t.Setenv("NODEMX_TEST_STR", "hello")
	t.Setenv("NODEMX_TEST_NUM", "42")
	t.Setenv("NODEMX_TEST_BAD", "42x")

	s, err := EnvText("NODEMX_TEST_STR")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	v, err := EnvInt64("NODEMX_TEST_NUM")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = EnvInt64("NODEMX_TEST_BAD")
	require.Error(t, err)

	_, err = EnvText("NODEMX_TEST_ABSENT")
	require.Error(t, err)
}
