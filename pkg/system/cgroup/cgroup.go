//go:build linux

// Package cgroup resolves the calling process's cgroup topology: which
// cgroup layout the kernel exposes (legacy v1, unified v2, systemd hybrid,
// or none), whether the process runs containerized, and where on disk each
// controller's virtual files live.
//
// Resolution runs once when the Context is built and the result is treated
// as an immutable snapshot; Reset replaces the whole topology table in one
// pass. Nothing here is safe for concurrent use with Reset.
package cgroup

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ja7ad/nodemx/pkg/logger"
)

// ProcCgroupFile is the pseudo-file describing the calling process's
// cgroup membership per hierarchy.
const ProcCgroupFile = "/proc/self/cgroup"

// DefaultRoot is the conventional cgroup filesystem mount point.
const DefaultRoot = "/sys/fs/cgroup"

// ControllerNotFound is recorded as a controller's path when resolution
// could not locate its directory. Reads through such a path fail naturally
// with a non-existent file error, so a missing controller does not prevent
// the rest of the topology from being used.
const ControllerNotFound = "Controller_Not_Found"

type Mode int

const (
	Disabled Mode = iota // cgroup access disabled or undetectable
	Legacy               // cgroup v1 multi-hierarchy
	Unified              // cgroup v2 unified hierarchy
	Hybrid               // systemd hybrid layout (v1 plus a v2 "unified" subtree)
)

func (m Mode) String() string {
	switch m {
	case Legacy:
		return "legacy"
	case Unified:
		return "unified"
	case Hybrid:
		return "hybrid"
	default:
		return "disabled"
	}
}

// PathEntry maps one controller key to its resolved directory. Controller
// may be a comma-joined list when v1 controllers are co-mounted, or the
// synthetic default key "cgroup". Path holds ControllerNotFound when
// Resolved is false.
type PathEntry struct {
	Controller string
	Path       string
	Resolved   bool
}

// Config carries the externally supplied settings for topology resolution.
type Config struct {
	// Enabled gates all cgroup access. False forces Disabled mode.
	Enabled bool

	// Root is the cgroup filesystem mount point.
	Root string

	// Containerized, when non-nil, is an explicit trusted override of
	// the containerization heuristic.
	Containerized *bool

	// SelfFile is the process's cgroup membership file. Overridable for
	// tests; defaults to ProcCgroupFile.
	SelfFile string

	Logger *slog.Logger
}

// DefaultConfig returns the standard host configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Root:     DefaultRoot,
		SelfFile: ProcCgroupFile,
	}
}

// Context is the resolved cgroup topology for this process: mode,
// containerization, and the controller path table. Build it once with New
// and pass it to every accessor that reads cgroup files.
type Context struct {
	cfg Config
	log *slog.Logger

	mode          Mode
	containerized bool
	table         []PathEntry
}

// New resolves the topology under the given configuration. Mode detection
// failures downgrade to Disabled with a warning rather than failing; an
// error is returned only when controller path resolution itself fails
// (unreadable or malformed membership file).
func New(cfg Config) (*Context, error) {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if cfg.SelfFile == "" {
		cfg.SelfFile = ProcCgroupFile
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	c := &Context{cfg: cfg, log: log}
	if err := c.Reset(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset re-runs mode detection, the containerization heuristic, and path
// resolution, then swaps in the freshly built table wholesale. The old
// table is never patched in place.
func (c *Context) Reset() error {
	c.mode = c.detectMode()
	c.containerized = c.detectContainerized()

	if c.mode != Legacy && c.mode != Unified {
		c.table = nil
		return nil
	}

	table, err := c.resolvePaths()
	if err != nil {
		return err
	}
	c.table = table
	return nil
}

// Mode reports the detected cgroup mode.
func (c *Context) Mode() Mode { return c.mode }

// Containerized reports whether the process was detected (or configured)
// as running inside a container.
func (c *Context) Containerized() bool { return c.containerized }

// Table returns a copy of the controller path table.
func (c *Context) Table() []PathEntry {
	out := make([]PathEntry, len(c.table))
	copy(out, c.table)
	return out
}

// ResolvePath returns the directory for a controller key. Comma-joined
// entries match either the whole key or any one of their members; the key
// "default" is an alias for the synthetic "cgroup" entry. Lookups in a
// mode with no controller table fail with ErrUnsupportedMode; a key
// matching no entry in a valid table is a hard error, unlike
// resolution-time misses which are recorded under ControllerNotFound and
// only fail when read.
func (c *Context) ResolvePath(key string) (string, error) {
	if c.mode != Legacy && c.mode != Unified {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMode, c.mode)
	}

	if key == "default" {
		key = "cgroup"
	}

	for _, e := range c.table {
		if e.Controller == key {
			return e.Path, nil
		}
		if strings.Contains(e.Controller, ",") {
			for _, tok := range strings.Split(e.Controller, ",") {
				if tok == key {
					return e.Path, nil
				}
			}
		}
	}

	return "", errControllerKey(key)
}
