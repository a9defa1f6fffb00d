//go:build linux

package cgroup

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ja7ad/nodemx/pkg/system/parse"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
)

// FilePath maps a controller-prefixed virtual filename such as
// "memory.current" to its absolute path. The controller key is the portion
// of the filename before the first ".". The filename must be relative and
// free of parent references.
func (c *Context) FilePath(filename string) (string, error) {
	name, err := vfs.CheckFilename(filename)
	if err != nil {
		return "", err
	}

	i := strings.Index(name, ".")
	if i < 0 {
		return "", fmt.Errorf("%w: no controller prefix in filename %q", parse.ErrFormat, name)
	}

	dir, err := c.ResolvePath(name[:i])
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Members returns the pids attached to this process's cgroup, sorted
// ascending with duplicates removed. The kernel may repeat a pid when its
// threads are listed from multiple pages.
func (c *Context) Members() ([]int64, error) {
	dir, err := c.ResolvePath("cgroup")
	if err != nil {
		return nil, err
	}

	procsFile := filepath.Join(dir, "cgroup.procs")
	raw, err := vfs.ReadVFS(procsFile)
	if err != nil {
		return nil, fmt.Errorf("cgroup: read %s: %w", procsFile, err)
	}

	lines := parse.NLSV(raw)
	pids := make([]int64, 0, len(lines))
	for _, line := range lines {
		pid, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: contents not an integer in %s: %q", parse.ErrFormat, procsFile, line)
		}
		pids = append(pids, pid)
	}

	slices.Sort(pids)
	return slices.Compact(pids), nil
}
