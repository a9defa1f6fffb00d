//go:build linux

package proc

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ja7ad/nodemx/pkg/system/parse"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
)

// PidStat is the full 52-field /proc/<pid>/stat record. Field names
// follow proc(5). Address-like and potentially full-range fields are
// uint64 (RSSLim is reported as 2^64-1 when unlimited); everything the
// kernel prints signed is int64.
type PidStat struct {
	Pid   int64
	Comm  string
	State string

	PPid       int64
	PGrp       int64
	Session    int64
	TTYNr      int64
	TPGid      int64
	Flags      uint64
	MinFlt     uint64
	CMinFlt    uint64
	MajFlt     uint64
	CMajFlt    uint64
	UTime      uint64
	STime      uint64
	CUTime     int64
	CSTime     int64
	Priority   int64
	Nice       int64
	NumThreads int64
	ItRealVal  int64
	StartTime  uint64
	VSize      uint64
	RSS        int64
	RSSLim     uint64

	StartCode  uint64
	EndCode    uint64
	StartStack uint64
	KStkESP    uint64
	KStkEIP    uint64

	Signal    uint64
	Blocked   uint64
	SigIgnore uint64
	SigCatch  uint64
	WChan     uint64
	NSwap     uint64
	CNSwap    uint64

	ExitSignal          int64
	Processor           int64
	RTPriority          uint64
	Policy              uint64
	DelayAcctBlkIOTicks uint64
	GuestTime           uint64
	CGuestTime          int64

	StartData uint64
	EndData   uint64
	StartBrk  uint64
	ArgStart  uint64
	ArgEnd    uint64
	EnvStart  uint64
	EnvEnd    uint64
	ExitCode  int64
}

// ReadPidStat parses /proc/<pid>/stat. The comm field is delimited by
// parentheses and may itself contain spaces and parentheses, so the line
// splits at the last ")" rather than by whitespace.
func ReadPidStat(pid int64) (*PidStat, error) {
	fname := fmt.Sprintf("%s/%d/stat", procRoot, pid)
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	lparen := strings.Index(raw, "(")
	rparen := strings.LastIndex(raw, ")")
	if lparen < 0 || rparen < lparen || rparen+2 > len(raw) {
		return nil, fmt.Errorf("%w: %s", ErrNoStat, fname)
	}

	var ps PidStat
	ps.Pid, err = strconv.ParseInt(strings.TrimSpace(raw[:lparen]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoStat, fname)
	}
	ps.Comm = raw[lparen+1 : rparen]

	toks := parse.SpaceSep(strings.TrimSuffix(raw[rparen+2:], "\n"))
	// 52 fields total; pid and comm are already consumed
	if len(toks) != 50 {
		return nil, fmt.Errorf("%w: expected 52 fields, got %d in %s", parse.ErrFormat, len(toks)+2, fname)
	}

	ps.State = toks[0]

	// token index = proc(5) field number - 3 (state is token 0)
	signed := map[int]*int64{
		1: &ps.PPid, 2: &ps.PGrp, 3: &ps.Session, 4: &ps.TTYNr, 5: &ps.TPGid,
		13: &ps.CUTime, 14: &ps.CSTime, 15: &ps.Priority, 16: &ps.Nice,
		17: &ps.NumThreads, 18: &ps.ItRealVal, 21: &ps.RSS,
		35: &ps.ExitSignal, 36: &ps.Processor, 41: &ps.CGuestTime, 49: &ps.ExitCode,
	}
	unsigned := map[int]*uint64{
		6: &ps.Flags, 7: &ps.MinFlt, 8: &ps.CMinFlt, 9: &ps.MajFlt, 10: &ps.CMajFlt,
		11: &ps.UTime, 12: &ps.STime, 19: &ps.StartTime, 20: &ps.VSize, 22: &ps.RSSLim,
		23: &ps.StartCode, 24: &ps.EndCode, 25: &ps.StartStack, 26: &ps.KStkESP, 27: &ps.KStkEIP,
		28: &ps.Signal, 29: &ps.Blocked, 30: &ps.SigIgnore, 31: &ps.SigCatch,
		32: &ps.WChan, 33: &ps.NSwap, 34: &ps.CNSwap,
		37: &ps.RTPriority, 38: &ps.Policy, 39: &ps.DelayAcctBlkIOTicks, 40: &ps.GuestTime,
		42: &ps.StartData, 43: &ps.EndData, 44: &ps.StartBrk,
		45: &ps.ArgStart, 46: &ps.ArgEnd, 47: &ps.EnvStart, 48: &ps.EnvEnd,
	}

	for idx, dst := range signed {
		v, err := strconv.ParseInt(toks[idx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad field %d in %s: %q", parse.ErrFormat, idx+3, fname, toks[idx])
		}
		*dst = v
	}
	for idx, dst := range unsigned {
		v, err := strconv.ParseUint(toks[idx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad field %d in %s: %q", parse.ErrFormat, idx+3, fname, toks[idx])
		}
		*dst = v
	}
	return &ps, nil
}

// PidIO is /proc/<pid>/io: seven monotonic byte and syscall counters.
type PidIO struct {
	RChar               int64
	WChar               int64
	SyscR               int64
	SyscW               int64
	ReadBytes           int64
	WriteBytes          int64
	CancelledWriteBytes int64
}

// ReadPidIO parses /proc/<pid>/io. Kernel threads do not expose the file;
// that surfaces as the open error.
func ReadPidIO(pid int64) (*PidIO, error) {
	fname := fmt.Sprintf("%s/%d/io", procRoot, pid)
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	var io PidIO
	want := map[string]*int64{
		"rchar":                 &io.RChar,
		"wchar":                 &io.WChar,
		"syscr":                 &io.SyscR,
		"syscw":                 &io.SyscW,
		"read_bytes":            &io.ReadBytes,
		"write_bytes":           &io.WriteBytes,
		"cancelled_write_bytes": &io.CancelledWriteBytes,
	}

	lines := parse.NLSV(raw)
	if len(lines) != len(want) {
		return nil, fmt.Errorf("%w: expected %d rows, got %d in %s", parse.ErrFormat, len(want), len(lines), fname)
	}

	for i, line := range lines {
		key, val, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("%w: malformed line %d in %s", parse.ErrFormat, i+1, fname)
		}
		dst, ok := want[key]
		if !ok {
			return nil, fmt.Errorf("%w: unexpected key %q in %s", parse.ErrFormat, key, fname)
		}
		v, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad counter for %q in %s", parse.ErrFormat, key, fname)
		}
		*dst = v
	}
	return &io, nil
}

// ReadPidCmdline returns the full command line of a pid. The kernel
// separates arguments with NUL bytes; they are rejoined with spaces.
func ReadPidCmdline(pid int64) (string, error) {
	fname := fmt.Sprintf("%s/%d/cmdline", procRoot, pid)
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return "", err
	}
	raw = strings.TrimRight(raw, "\x00")
	return strings.ReplaceAll(raw, "\x00", " "), nil
}

// PidCommand is the process-list row: pid, command line, and owner.
// Username is empty when the uid has no passwd entry.
type PidCommand struct {
	Pid      int64
	Command  string
	UID      int64
	Username string
}

// ReadPidCommand collects the command line and ownership of a pid. The
// owner comes from the /proc/<pid> directory itself.
func ReadPidCommand(pid int64) (*PidCommand, error) {
	cmd, err := ReadPidCmdline(pid)
	if err != nil {
		return nil, err
	}

	var st unix.Stat_t
	if err := unix.Stat(fmt.Sprintf("%s/%d", procRoot, pid), &st); err != nil {
		return nil, fmt.Errorf("proc: stat pid %d: %w", pid, err)
	}

	pc := &PidCommand{Pid: pid, Command: cmd, UID: int64(st.Uid)}
	if u, err := user.LookupId(strconv.FormatUint(uint64(st.Uid), 10)); err == nil {
		pc.Username = u.Username
	}
	return pc, nil
}

// ReadChildren returns the direct child pids of a process, collected from
// every thread's /proc/<pid>/task/*/children file (kernel 3.5+), sorted
// ascending with duplicates removed.
func ReadChildren(pid int64) ([]int64, error) {
	pattern := fmt.Sprintf("%s/%d/task/*/children", procRoot, pid)
	paths, _ := filepath.Glob(pattern)

	set := map[int64]struct{}{}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		for _, tok := range parse.SpaceSep(strings.TrimSpace(string(b))) {
			if id, err := strconv.ParseInt(tok, 10, 64); err == nil {
				set[id] = struct{}{}
			}
		}
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("%w: pid %d", ErrNoChildren, pid)
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}
