//go:build linux

package cgroup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ja7ad/nodemx/pkg/system/parse"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
)

// maxComountControllers bounds the co-mount permutation fallback; beyond
// this the factorial search is not worth running.
const maxComountControllers = 10

// resolvePaths builds the controller path table for the detected mode.
func (c *Context) resolvePaths() ([]PathEntry, error) {
	switch c.mode {
	case Legacy:
		return c.resolveLegacy()
	case Unified:
		return c.resolveUnified()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, c.mode)
	}
}

// resolveLegacy walks every line of the membership file. Each line has the
// form "<id>:<controllers>:<path>", where <controllers> may be a comma
// joined co-mount list or a "name=" prefixed named hierarchy.
func (c *Context) resolveLegacy() ([]PathEntry, error) {
	raw, err := vfs.ReadVFS(c.cfg.SelfFile)
	if err != nil {
		return nil, fmt.Errorf("cgroup: read %s: %w", c.cfg.SelfFile, err)
	}

	lines := parse.NLSV(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no cgroup paths found in %s", parse.ErrFormat, c.cfg.SelfFile)
	}

	entries := make([]PathEntry, 0, len(lines)+1)
	defaultPath := ControllerNotFound
	defaultResolved := false

	for _, line := range lines {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: malformed cgroup membership line %q", parse.ErrFormat, line)
		}

		controllers := parts[1]
		// named hierarchies appear as "name=systemd"; the key and the
		// mount directory are the part after the "="
		if i := strings.Index(controllers, "="); i >= 0 {
			controllers = controllers[i+1:]
		}

		path, resolved := c.locateController(controllers, parts[2])
		if !resolved {
			c.log.Warn("cgroup controller directory not found",
				"controller", controllers, "path", parts[2])
		}
		entries = append(entries, PathEntry{
			Controller: controllers,
			Path:       path,
			Resolved:   resolved,
		})

		// the memory controller's directory doubles as the default
		// "cgroup" location
		if strings.HasPrefix(parts[1], "memory") {
			defaultPath = path
			defaultResolved = resolved
		}
	}

	entries = append(entries, PathEntry{
		Controller: "cgroup",
		Path:       defaultPath,
		Resolved:   defaultResolved,
	})
	return entries, nil
}

// locateController maps a v1 controller list and relative membership path
// to an on-disk directory. The first candidate joins root, list, and the
// relative path (just root and list when containerized, since the
// membership path then belongs to a different namespace). When the list is
// comma joined and the candidate is absent the mount may use a different
// token order than the membership file, so every ordering is probed and
// the first existing directory wins.
func (c *Context) locateController(list, rel string) (string, bool) {
	candidate := c.candidatePath(list, rel)
	if dirExists(candidate) {
		return candidate, true
	}

	if !strings.Contains(list, ",") {
		return ControllerNotFound, false
	}

	tokens := strings.Split(list, ",")
	if len(tokens) > maxComountControllers {
		c.log.Warn("skipping co-mount permutation search, too many controllers",
			"controllers", list)
		return ControllerNotFound, false
	}

	var found string
	visitPermutations(tokens, func(perm []string) bool {
		p := c.candidatePath(strings.Join(perm, ","), rel)
		if dirExists(p) {
			found = p
			return true
		}
		return false
	})
	if found != "" {
		return found, true
	}
	return ControllerNotFound, false
}

func (c *Context) candidatePath(dir, rel string) string {
	if c.containerized {
		return filepath.Join(c.cfg.Root, dir)
	}
	return filepath.Join(c.cfg.Root, dir, rel)
}

// resolveUnified resolves the single v2 hierarchy: one base directory for
// every controller, with the active controller set listed by the base
// directory's cgroup.controllers file.
func (c *Context) resolveUnified() ([]PathEntry, error) {
	raw, err := vfs.ReadVFS(c.cfg.SelfFile)
	if err != nil {
		return nil, fmt.Errorf("cgroup: read %s: %w", c.cfg.SelfFile, err)
	}

	line, err := parse.OneNLSV(raw)
	if err != nil {
		return nil, fmt.Errorf("cgroup: %s: %w", c.cfg.SelfFile, err)
	}
	if len(line) < 4 || !strings.HasPrefix(line, "0::") {
		return nil, fmt.Errorf("%w: malformed cgroup membership line %q", parse.ErrFormat, line)
	}

	base := filepath.Join(c.cfg.Root, line[4:])
	if c.containerized {
		base = c.cfg.Root
	}

	ctrlFile := filepath.Join(base, "cgroup.controllers")
	ctrlRaw, err := vfs.ReadVFS(ctrlFile)
	if err != nil {
		return nil, fmt.Errorf("cgroup: read %s: %w", ctrlFile, err)
	}
	ctrlLine, err := parse.OneNLSV(ctrlRaw)
	if err != nil {
		return nil, fmt.Errorf("cgroup: %s: %w", ctrlFile, err)
	}

	controllers := parse.SpaceSep(ctrlLine)
	entries := make([]PathEntry, 0, len(controllers)+1)
	for _, ctrl := range controllers {
		entries = append(entries, PathEntry{Controller: ctrl, Path: base, Resolved: true})
	}
	entries = append(entries, PathEntry{Controller: "cgroup", Path: base, Resolved: true})
	return entries, nil
}

func dirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// visitPermutations calls fn with every ordering of items (Heap's
// algorithm, permuting in place), stopping early when fn returns true.
func visitPermutations(items []string, fn func([]string) bool) bool {
	var gen func(k int) bool
	gen = func(k int) bool {
		if k <= 1 {
			return fn(items)
		}
		for i := 0; i < k-1; i++ {
			if gen(k - 1) {
				return true
			}
			if k%2 == 0 {
				items[i], items[k-1] = items[k-1], items[i]
			} else {
				items[0], items[k-1] = items[k-1], items[0]
			}
		}
		return gen(k - 1)
	}
	return gen(len(items))
}
