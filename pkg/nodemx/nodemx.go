//go:build linux

// Package nodemx is the accessor facade over the resolved cgroup
// topology: it maps controller-prefixed virtual filenames to typed
// scalars, vectors, and keyed row sets, mirroring the shapes the kernel
// uses for cgroup virtual files.
package nodemx

import (
	"fmt"
	"os"
	"strconv"

	"github.com/ja7ad/nodemx/pkg/system/cgroup"
	"github.com/ja7ad/nodemx/pkg/system/parse"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
)

// Topology is the view of the cgroup layout the accessors need;
// *cgroup.Context satisfies it.
type Topology interface {
	Mode() cgroup.Mode
	Containerized() bool
	Table() []cgroup.PathEntry
	ResolvePath(key string) (string, error)
	FilePath(filename string) (string, error)
	Members() ([]int64, error)
}

// Accessor reads cgroup virtual files through a resolved topology.
type Accessor struct {
	topo Topology
}

func New(topo Topology) *Accessor {
	return &Accessor{topo: topo}
}

// ModeName returns the detected cgroup mode as a string.
func (a *Accessor) ModeName() string { return a.topo.Mode().String() }

// Containerized reports the containerization determination.
func (a *Accessor) Containerized() bool { return a.topo.Containerized() }

// Paths returns the (controller, path) topology table.
func (a *Accessor) Paths() []cgroup.PathEntry { return a.topo.Table() }

// Processes returns the sorted, deduplicated member pids of this
// process's cgroup.
func (a *Accessor) Processes() ([]int64, error) { return a.topo.Members() }

// ProcessCount returns the number of member pids.
func (a *Accessor) ProcessCount() (int64, error) {
	pids, err := a.topo.Members()
	if err != nil {
		return 0, err
	}
	return int64(len(pids)), nil
}

// readLines reads a controller-prefixed virtual file and splits it into
// lines, requiring at least one.
func (a *Accessor) readLines(filename string) ([]string, string, error) {
	fqpath, err := a.topo.FilePath(filename)
	if err != nil {
		return nil, "", err
	}

	raw, err := vfs.ReadVFS(fqpath)
	if err != nil {
		return nil, "", err
	}

	lines := parse.NLSV(raw)
	if len(lines) == 0 {
		return nil, "", fmt.Errorf("%w: no lines in file %s", parse.ErrFormat, fqpath)
	}
	return lines, fqpath, nil
}

func (a *Accessor) readOneLine(filename string) (string, error) {
	fqpath, err := a.topo.FilePath(filename)
	if err != nil {
		return "", err
	}

	raw, err := vfs.ReadVFS(fqpath)
	if err != nil {
		return "", err
	}

	line, err := parse.OneNLSV(raw)
	if err != nil {
		return "", fmt.Errorf("nodemx: %s: %w", fqpath, err)
	}
	return line, nil
}

// ScalarInt64 reads a one-line numeric file such as memory.current, with
// the "max" substitution.
func (a *Accessor) ScalarInt64(filename string) (int64, error) {
	line, err := a.readOneLine(filename)
	if err != nil {
		return 0, err
	}
	return parse.ToInt64(line)
}

// ScalarFloat64 reads a one-line float file such as cpu.weight.nice.
func (a *Accessor) ScalarFloat64(filename string) (float64, error) {
	line, err := a.readOneLine(filename)
	if err != nil {
		return 0, err
	}
	return parse.ToFloat64(line)
}

// ScalarText reads a one-line text file such as cgroup.type.
func (a *Accessor) ScalarText(filename string) (string, error) {
	return a.readOneLine(filename)
}

// setOfTokens applies the set-valued file convention: multiple lines are
// one value per line; a single line is re-split on spaces so both
// newline-separated and space-separated sets come back the same way.
func (a *Accessor) setOfTokens(filename string) ([]string, error) {
	lines, _, err := a.readLines(filename)
	if err != nil {
		return nil, err
	}
	if len(lines) == 1 {
		return parse.SpaceSep(lines[0]), nil
	}
	return lines, nil
}

// SetOfInt64 reads a set-valued numeric file, e.g. cgroup.procs.
func (a *Accessor) SetOfInt64(filename string) ([]int64, error) {
	toks, err := a.setOfTokens(filename)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(toks))
	for _, tok := range toks {
		v, err := parse.ToInt64(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SetOfText reads a set-valued text file.
func (a *Accessor) SetOfText(filename string) ([]string, error) {
	return a.setOfTokens(filename)
}

// arrayTokens reads a one-line space-separated vector file.
func (a *Accessor) arrayTokens(filename string) ([]string, error) {
	line, err := a.readOneLine(filename)
	if err != nil {
		return nil, err
	}
	return parse.SpaceSep(line), nil
}

// ArrayInt64 reads a one-line numeric vector such as cpu.max, with the
// "max" substitution per token.
func (a *Accessor) ArrayInt64(filename string) ([]int64, error) {
	toks, err := a.arrayTokens(filename)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(toks))
	for _, tok := range toks {
		v, err := parse.ToInt64(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ArrayText reads a one-line text vector such as cgroup.controllers.
func (a *Accessor) ArrayText(filename string) ([]string, error) {
	return a.arrayTokens(filename)
}

// KVRow is one line of a flat keyed file.
type KVRow struct {
	Key   string
	Value int64
}

// FlatKeyed reads a flat keyed file such as memory.stat: every line is
// exactly key and value.
func (a *Accessor) FlatKeyed(filename string) ([]KVRow, error) {
	lines, fqpath, err := a.readLines(filename)
	if err != nil {
		return nil, err
	}

	rows := make([]KVRow, 0, len(lines))
	for i, line := range lines {
		kv, err := parse.FlatKeyed(line)
		if err != nil {
			return nil, fmt.Errorf("nodemx: %s, line %d: %w", fqpath, i+1, err)
		}
		v, err := parse.ToInt64(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("nodemx: %s, line %d: %w", fqpath, i+1, err)
		}
		rows = append(rows, KVRow{Key: kv.Key, Value: v})
	}
	return rows, nil
}

// KSVRow is one (key, subkey, value) row of a keyed-subtotal file.
type KSVRow struct {
	Key    string
	SubKey string
	Value  int64
}

// KeyedSubtotal reads the blkio.throttle.* shape: three-token lines of
// key, subkey, and value, with an optional two-token grand-sum line that
// expands to ("all", key, value).
func (a *Accessor) KeyedSubtotal(filename string) ([]KSVRow, error) {
	lines, fqpath, err := a.readLines(filename)
	if err != nil {
		return nil, err
	}

	rows := make([]KSVRow, 0, len(lines))
	for i, line := range lines {
		toks := parse.SpaceSep(line)
		var row KSVRow
		switch len(toks) {
		case 3:
			row.Key, row.SubKey = toks[0], toks[1]
			row.Value, err = parse.ToInt64(toks[2])
		case 2:
			row.Key, row.SubKey = "all", toks[0]
			row.Value, err = parse.ToInt64(toks[1])
		default:
			return nil, fmt.Errorf("%w: expected 3 tokens, got %d in %s, line %d",
				parse.ErrFormat, len(toks), fqpath, i+1)
		}
		if err != nil {
			return nil, fmt.Errorf("nodemx: %s, line %d: %w", fqpath, i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NKVRow is one expanded (key, subkey, value) row of a nested keyed file.
type NKVRow struct {
	Key    string
	SubKey string
	Value  float64
}

// NestedKeyed reads a nested keyed file such as io.stat. The first line
// fixes the pair count for the whole file; each line then expands to one
// row per subkey with the line's lead value as key.
func (a *Accessor) NestedKeyed(filename string) ([]NKVRow, error) {
	lines, fqpath, err := a.readLines(filename)
	if err != nil {
		return nil, err
	}

	first, err := parse.NestedKeyed(lines[0])
	if err != nil {
		return nil, fmt.Errorf("nodemx: %s, line 1: %w", fqpath, err)
	}
	width := len(first)

	rows := make([]NKVRow, 0, len(lines)*(width-1))
	for i, line := range lines {
		pairs, err := parse.NestedKeyed(line)
		if err != nil {
			return nil, fmt.Errorf("nodemx: %s, line %d: %w", fqpath, i+1, err)
		}
		if len(pairs) != width {
			return nil, fmt.Errorf("%w: not a nested keyed file: %s", parse.ErrFormat, fqpath)
		}
		for _, p := range pairs[1:] {
			v, err := parse.ToFloat64(p.Value)
			if err != nil {
				return nil, fmt.Errorf("nodemx: %s, line %d: %w", fqpath, i+1, err)
			}
			rows = append(rows, NKVRow{Key: pairs[0].Value, SubKey: p.Key, Value: v})
		}
	}
	return rows, nil
}

// EnvText returns the value of an environment variable; unset is an
// error, matching the virtual-file accessors where absence is abnormal.
func EnvText(name string) (string, error) {
	val, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("nodemx: environment variable not found: %q", name)
	}
	return val, nil
}

// EnvInt64 returns a fully numeric environment variable.
func EnvInt64(name string) (int64, error) {
	val, err := EnvText(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: contents not an integer: env variable %q", parse.ErrFormat, name)
	}
	return v, nil
}
