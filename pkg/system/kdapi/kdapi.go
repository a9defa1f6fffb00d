//go:build linux

// Package kdapi reads Kubernetes Downward API files: pod metadata the
// kubelet projects into the container as key="quoted value" lines (labels,
// annotations) or bare scalars (cpu/memory requests and limits).
package kdapi

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ja7ad/nodemx/pkg/logger"
	"github.com/ja7ad/nodemx/pkg/system/parse"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
)

// DefaultPath is where the kubelet conventionally mounts the Downward API
// volume.
const DefaultPath = "/etc/podinfo"

// ErrDisabled indicates Downward API access is off, either by
// configuration or because the configured path does not exist.
var ErrDisabled = errors.New("kdapi: downward api access disabled")

type Config struct {
	Enabled bool
	Path    string
	Logger  *slog.Logger
}

func DefaultConfig() Config {
	return Config{Enabled: true, Path: DefaultPath}
}

// Context is a validated handle on the Downward API directory.
type Context struct {
	cfg     Config
	enabled bool
}

// New validates the configured path. A missing directory disables access
// with a warning instead of failing: most deployments have no Downward
// API volume and that is not an error.
func New(cfg Config) *Context {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	enabled := cfg.Enabled
	if enabled {
		if _, err := os.Stat(cfg.Path); err != nil {
			log.Warn("disabling downward api access: path does not exist",
				"path", cfg.Path, "error", err)
			enabled = false
		}
	}

	return &Context{cfg: cfg, enabled: enabled}
}

// Enabled reports whether Downward API files can be read.
func (c *Context) Enabled() bool { return c.enabled }

// FilePath maps a relative filename to its absolute path under the
// Downward API directory. The filename must pass the vfs safety check.
func (c *Context) FilePath(filename string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}
	name, err := vfs.CheckFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.cfg.Path, name), nil
}

// SetOfKV reads a labels/annotations style file: one key="quoted value"
// pair per line.
func (c *Context) SetOfKV(filename string) ([]parse.KV, error) {
	fname, err := c.FilePath(filename)
	if err != nil {
		return nil, err
	}

	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	lines := parse.NLSV(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no lines in file %s", parse.ErrFormat, fname)
	}

	pairs := make([]parse.KV, 0, len(lines))
	for i, line := range lines {
		kv, err := parse.KeyEqualsQuotedValue(line)
		if err != nil {
			return nil, fmt.Errorf("kdapi: %s, line %d: %w", fname, i+1, err)
		}
		pairs = append(pairs, kv)
	}
	return pairs, nil
}

// ScalarInt64 reads a single-line numeric file such as a projected
// cpu_limit, with the usual "max" substitution.
func (c *Context) ScalarInt64(filename string) (int64, error) {
	fname, err := c.FilePath(filename)
	if err != nil {
		return 0, err
	}

	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return 0, err
	}

	line, err := parse.OneNLSV(raw)
	if err != nil {
		return 0, fmt.Errorf("kdapi: %s: %w", fname, err)
	}
	return parse.ToInt64(line)
}
