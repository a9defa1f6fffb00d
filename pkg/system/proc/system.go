//go:build linux

package proc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ja7ad/nodemx/pkg/system/parse"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
	"github.com/ja7ad/nodemx/pkg/types"
)

// CPUTime holds the aggregate jiffy counters from the first line of
// /proc/stat. Counters are monotonic; utilization needs deltas between
// samples.
type CPUTime struct {
	User   int64
	Nice   int64
	System int64
	Idle   int64
	IOWait int64
}

// ReadCPUTime parses the aggregate "cpu" line of /proc/stat.
func ReadCPUTime() (*CPUTime, error) {
	fname := procRoot + "/stat"
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	lines := parse.NLSV(raw)
	if len(lines) < 1 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, fname)
	}

	toks := parse.SpaceSep(lines[0])
	if len(toks) < 6 {
		return nil, fmt.Errorf("%w: too few values in %s", parse.ErrFormat, fname)
	}

	var ct CPUTime
	for i, dst := range []*int64{&ct.User, &ct.Nice, &ct.System, &ct.Idle, &ct.IOWait} {
		v, err := strconv.ParseInt(toks[i+1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad counter in %s: %q", parse.ErrFormat, fname, toks[i+1])
		}
		*dst = v
	}
	return &ct, nil
}

// LoadAvg holds the three load averages plus the most recently allocated
// pid from /proc/loadavg. The running/total task pair is skipped.
type LoadAvg struct {
	Load1   float64
	Load5   float64
	Load15  float64
	LastPID int64
}

// ReadLoadAvg parses /proc/loadavg.
func ReadLoadAvg() (*LoadAvg, error) {
	fname := procRoot + "/loadavg"
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	line, err := parse.OneNLSV(raw)
	if err != nil {
		return nil, fmt.Errorf("proc: %s: %w", fname, err)
	}

	toks := parse.SpaceSep(line)
	if len(toks) < 5 {
		return nil, fmt.Errorf("%w: too few values in %s", parse.ErrFormat, fname)
	}

	var la LoadAvg
	for i, dst := range []*float64{&la.Load1, &la.Load5, &la.Load15} {
		v, err := strconv.ParseFloat(toks[i], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad load average in %s: %q", parse.ErrFormat, fname, toks[i])
		}
		*dst = v
	}

	pid, err := strconv.ParseInt(toks[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad pid in %s: %q", parse.ErrFormat, fname, toks[4])
	}
	la.LastPID = pid
	return &la, nil
}

// MemInfoRow is one /proc/meminfo line normalized to bytes.
type MemInfoRow struct {
	Key   string
	Bytes int64
}

// ReadMemInfo parses /proc/meminfo. Lines look like
//
//	MemTotal:       16384516 kB
//	HugePages_Total:       0
//
// The trailing colon is stripped from the key and the kB unit (the only
// one the kernel emits, a historical misnomer for KiB) is normalized to
// bytes. Lines without a unit are already a plain count.
func ReadMemInfo() ([]MemInfoRow, error) {
	fname := procRoot + "/meminfo"
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	lines := parse.NLSV(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, fname)
	}

	rows := make([]MemInfoRow, 0, len(lines))
	for i, line := range lines {
		toks := parse.SpaceSep(line)
		if len(toks) < 2 || len(toks) > 3 {
			return nil, fmt.Errorf("%w: unexpected number of tokens, %d, in %s, line %d",
				parse.ErrFormat, len(toks), fname, i+1)
		}

		val, err := strconv.ParseInt(toks[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad value in %s, line %d: %q", parse.ErrFormat, fname, i+1, toks[1])
		}
		if len(toks) == 3 {
			mult, ok := types.FromUnit(toks[2])
			if !ok {
				return nil, fmt.Errorf("%w: unknown unit %q in %s, line %d",
					parse.ErrFormat, toks[2], fname, i+1)
			}
			val *= int64(mult)
		}

		rows = append(rows, MemInfoRow{
			Key:   strings.TrimSuffix(toks[0], ":"),
			Bytes: val,
		})
	}
	return rows, nil
}

// DiskStat is one /proc/diskstats line. The kernel emits 14, 18, or 20
// fields per line depending on version; fields a kernel does not emit
// read as zero.
type DiskStat struct {
	Major      int64
	Minor      int64
	DeviceName string

	ReadsCompleted   int64
	ReadsMerged      int64
	SectorsRead      int64
	ReadTimeMS       int64
	WritesCompleted  int64
	WritesMerged     int64
	SectorsWritten   int64
	WriteTimeMS      int64
	IOsInProgress    int64
	IOTimeMS         int64
	WeightedIOTimeMS int64

	// since kernel 4.18
	DiscardsCompleted int64
	DiscardsMerged    int64
	SectorsDiscarded  int64
	DiscardTimeMS     int64

	// since kernel 5.5
	FlushesCompleted int64
	FlushTimeMS      int64
}

// ReadDiskStats parses /proc/diskstats.
func ReadDiskStats() ([]DiskStat, error) {
	fname := procRoot + "/diskstats"
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	lines := parse.NLSV(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, fname)
	}

	rows := make([]DiskStat, 0, len(lines))
	for i, line := range lines {
		toks := parse.SpaceSep(line)
		if len(toks) != 14 && len(toks) != 18 && len(toks) != 20 {
			return nil, fmt.Errorf("%w: unexpected number of tokens, %d, in %s, line %d",
				parse.ErrFormat, len(toks), fname, i+1)
		}

		var ds DiskStat
		ds.DeviceName = toks[2]

		counters := []*int64{
			&ds.Major, &ds.Minor, nil,
			&ds.ReadsCompleted, &ds.ReadsMerged, &ds.SectorsRead, &ds.ReadTimeMS,
			&ds.WritesCompleted, &ds.WritesMerged, &ds.SectorsWritten, &ds.WriteTimeMS,
			&ds.IOsInProgress, &ds.IOTimeMS, &ds.WeightedIOTimeMS,
			&ds.DiscardsCompleted, &ds.DiscardsMerged, &ds.SectorsDiscarded, &ds.DiscardTimeMS,
			&ds.FlushesCompleted, &ds.FlushTimeMS,
		}
		for k, tok := range toks {
			if counters[k] == nil {
				continue
			}
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad counter in %s, line %d: %q", parse.ErrFormat, fname, i+1, tok)
			}
			*counters[k] = v
		}
		rows = append(rows, ds)
	}
	return rows, nil
}

// NetDevStat is one interface line of /proc/self/net/dev: the interface
// name (trailing colon stripped) and its 16 rx/tx counters.
type NetDevStat struct {
	Interface string

	RxBytes      int64
	RxPackets    int64
	RxErrs       int64
	RxDrop       int64
	RxFifo       int64
	RxFrame      int64
	RxCompressed int64
	RxMulticast  int64

	TxBytes      int64
	TxPackets    int64
	TxErrs       int64
	TxDrop       int64
	TxFifo       int64
	TxColls      int64
	TxCarrier    int64
	TxCompressed int64
}

// netDevHeaderLines is the two-line banner at the top of net/dev.
const netDevHeaderLines = 2

// ReadNetDev parses /proc/self/net/dev.
func ReadNetDev() ([]NetDevStat, error) {
	fname := procRoot + "/self/net/dev"
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	lines := parse.NLSV(raw)
	if len(lines) <= netDevHeaderLines {
		return nil, fmt.Errorf("%w: %s", ErrNoData, fname)
	}

	rows := make([]NetDevStat, 0, len(lines)-netDevHeaderLines)
	for i, line := range lines[netDevHeaderLines:] {
		toks := parse.SpaceSep(line)
		if len(toks) != 17 {
			return nil, fmt.Errorf("%w: unexpected number of tokens, %d, in %s, line %d",
				parse.ErrFormat, len(toks), fname, i+netDevHeaderLines+1)
		}

		var ns NetDevStat
		ns.Interface = strings.TrimSuffix(toks[0], ":")

		counters := []*int64{
			&ns.RxBytes, &ns.RxPackets, &ns.RxErrs, &ns.RxDrop,
			&ns.RxFifo, &ns.RxFrame, &ns.RxCompressed, &ns.RxMulticast,
			&ns.TxBytes, &ns.TxPackets, &ns.TxErrs, &ns.TxDrop,
			&ns.TxFifo, &ns.TxColls, &ns.TxCarrier, &ns.TxCompressed,
		}
		for k, dst := range counters {
			v, err := strconv.ParseInt(toks[k+1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad counter in %s: %q", parse.ErrFormat, fname, toks[k+1])
			}
			*dst = v
		}
		rows = append(rows, ns)
	}
	return rows, nil
}

// MountInfo is one /proc/self/mountinfo line, e.g.
//
//	36 35 98:0 /mnt1 /mnt2 rw,noatime master:1 - ext3 /dev/root rw,errors=continue
//
// The variable-length optional fields between the mount options and the
// "-" separator are skipped; major:minor is split in two.
type MountInfo struct {
	MountID      int64
	ParentID     int64
	Major        int64
	Minor        int64
	Root         string
	MountPoint   string
	MountOptions string
	FSType       string
	MountSource  string
	SuperOptions string
}

// ReadMountInfo parses /proc/self/mountinfo.
func ReadMountInfo() ([]MountInfo, error) {
	fname := procRoot + "/self/mountinfo"
	raw, err := vfs.ReadVFS(fname)
	if err != nil {
		return nil, err
	}

	lines := parse.NLSV(raw)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, fname)
	}

	rows := make([]MountInfo, 0, len(lines))
	for i, line := range lines {
		mi, err := parseMountInfoLine(line)
		if err != nil {
			return nil, fmt.Errorf("proc: %s, line %d: %w", fname, i+1, err)
		}
		rows = append(rows, *mi)
	}
	return rows, nil
}

func parseMountInfoLine(line string) (*MountInfo, error) {
	toks := parse.SpaceSep(line)
	if len(toks) < 10 {
		return nil, fmt.Errorf("%w: unexpected number of tokens, %d", parse.ErrFormat, len(toks))
	}

	var mi MountInfo
	var err error
	if mi.MountID, err = strconv.ParseInt(toks[0], 10, 64); err != nil {
		return nil, fmt.Errorf("%w: bad mount id %q", parse.ErrFormat, toks[0])
	}
	if mi.ParentID, err = strconv.ParseInt(toks[1], 10, 64); err != nil {
		return nil, fmt.Errorf("%w: bad parent id %q", parse.ErrFormat, toks[1])
	}

	major, minor, found := strings.Cut(toks[2], ":")
	if !found {
		return nil, fmt.Errorf(`%w: missing ":" in device number %q`, parse.ErrFormat, toks[2])
	}
	if mi.Major, err = strconv.ParseInt(major, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: bad major %q", parse.ErrFormat, major)
	}
	if mi.Minor, err = strconv.ParseInt(minor, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: bad minor %q", parse.ErrFormat, minor)
	}

	mi.Root = toks[3]
	mi.MountPoint = toks[4]
	mi.MountOptions = toks[5]

	// skip the optional fields until the "-" separator
	k := 6
	for ; k < len(toks) && toks[k] != "-"; k++ {
	}
	if len(toks)-k-1 != 3 {
		return nil, fmt.Errorf("%w: malformed tail after optional fields", parse.ErrFormat)
	}
	mi.FSType = toks[k+1]
	mi.MountSource = toks[k+2]
	mi.SuperOptions = toks[k+3]
	return &mi, nil
}
