//go:build linux

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ja7ad/nodemx/pkg/system/proc"
	"github.com/ja7ad/nodemx/pkg/types"
)

var cputimeCmd = &cobra.Command{
	Use:   "cputime",
	Short: "Show aggregate CPU jiffy counters from /proc/stat",
	RunE: func(cmd *cobra.Command, args []string) error {
		ct, err := proc.ReadCPUTime()
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "USER\tNICE\tSYSTEM\tIDLE\tIOWAIT")
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\n", ct.User, ct.Nice, ct.System, ct.Idle, ct.IOWait)
		return tw.Flush()
	},
}

var loadavgCmd = &cobra.Command{
	Use:   "loadavg",
	Short: "Show load averages from /proc/loadavg",
	RunE: func(cmd *cobra.Command, args []string) error {
		la, err := proc.ReadLoadAvg()
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "LOAD1\tLOAD5\tLOAD15\tLAST_PID")
		fmt.Fprintf(tw, "%.2f\t%.2f\t%.2f\t%d\n", la.Load1, la.Load5, la.Load15, la.LastPID)
		return tw.Flush()
	},
}

var meminfoCmd = &cobra.Command{
	Use:   "meminfo",
	Short: "Show /proc/meminfo normalized to bytes",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := proc.ReadMemInfo()
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "KEY\tBYTES\tHUMAN")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Key, r.Bytes, types.Bytes(r.Bytes).Humanized())
		}
		return tw.Flush()
	},
}

var diskstatsCmd = &cobra.Command{
	Use:   "diskstats",
	Short: "Show per-device I/O counters from /proc/diskstats",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := proc.ReadDiskStats()
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "DEVICE\tREADS\tSECT_READ\tWRITES\tSECT_WRITTEN\tIO_MS\tDISCARDS\tFLUSHES")
		for _, d := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
				d.DeviceName, d.ReadsCompleted, d.SectorsRead,
				d.WritesCompleted, d.SectorsWritten, d.IOTimeMS,
				d.DiscardsCompleted, d.FlushesCompleted)
		}
		return tw.Flush()
	},
}

var netdevCmd = &cobra.Command{
	Use:   "netdev",
	Short: "Show interface counters from /proc/self/net/dev",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := proc.ReadNetDev()
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "IFACE\tRX_BYTES\tRX_PACKETS\tRX_ERRS\tTX_BYTES\tTX_PACKETS\tTX_ERRS")
		for _, n := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
				n.Interface, n.RxBytes, n.RxPackets, n.RxErrs,
				n.TxBytes, n.TxPackets, n.TxErrs)
		}
		return tw.Flush()
	},
}

var mountinfoCmd = &cobra.Command{
	Use:   "mountinfo",
	Short: "Show mounts from /proc/self/mountinfo",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := proc.ReadMountInfo()
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "DEV\tFSTYPE\tSOURCE\tMOUNTPOINT\tOPTIONS")
		for _, m := range rows {
			fmt.Fprintf(tw, "%d:%d\t%s\t%s\t%s\t%s\n",
				m.Major, m.Minor, m.FSType, m.MountSource, m.MountPoint, m.MountOptions)
		}
		return tw.Flush()
	},
}

var pidstatCmd = &cobra.Command{
	Use:   "pidstat PID",
	Short: "Show /proc/<pid>/stat for a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid pid %q", args[0])
		}

		ps, err := proc.ReadPidStat(pid)
		if err != nil {
			return err
		}

		ticks := float64(proc.ClockTicks())
		tw := newTable()
		fmt.Fprintln(tw, "PID\tCOMM\tSTATE\tPPID\tTHREADS\tUTIME_S\tSTIME_S\tRSS_BYTES\tMINFLT\tMAJFLT")
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.2f\t%.2f\t%d\t%d\t%d\n",
			ps.Pid, ps.Comm, ps.State, ps.PPid, ps.NumThreads,
			float64(ps.UTime)/ticks, float64(ps.STime)/ticks,
			ps.RSS*int64(proc.PageSize()), ps.MinFlt, ps.MajFlt)
		return tw.Flush()
	},
}

var pidioCmd = &cobra.Command{
	Use:   "pidio PID",
	Short: "Show /proc/<pid>/io counters for a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid pid %q", args[0])
		}

		io, err := proc.ReadPidIO(pid)
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintf(tw, "rchar\t%d\n", io.RChar)
		fmt.Fprintf(tw, "wchar\t%d\n", io.WChar)
		fmt.Fprintf(tw, "syscr\t%d\n", io.SyscR)
		fmt.Fprintf(tw, "syscw\t%d\n", io.SyscW)
		fmt.Fprintf(tw, "read_bytes\t%d\n", io.ReadBytes)
		fmt.Fprintf(tw, "write_bytes\t%d\n", io.WriteBytes)
		fmt.Fprintf(tw, "cancelled_write_bytes\t%d\n", io.CancelledWriteBytes)
		return tw.Flush()
	},
}

var childrenCmd = &cobra.Command{
	Use:   "children PID",
	Short: "List a process's direct children with command lines and owners",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid pid %q", args[0])
		}

		pids, err := proc.ReadChildren(pid)
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "PID\tUID\tUSER\tCOMMAND")
		for _, child := range pids {
			pc, err := proc.ReadPidCommand(child)
			if err != nil {
				// the child may have exited between the two reads
				continue
			}
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", pc.Pid, pc.UID, pc.Username, pc.Command)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(cputimeCmd, loadavgCmd, meminfoCmd, diskstatsCmd,
		netdevCmd, mountinfoCmd, pidstatCmd, pidioCmd, childrenCmd)
}
