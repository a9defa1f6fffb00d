//go:build linux

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Show the detected cgroup mode and containerization",
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}
		fmt.Printf("mode: %s\ncontainerized: %t\n", acc.ModeName(), acc.Containerized())
		return nil
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show the resolved controller path table",
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "CONTROLLER\tPATH")
		for _, e := range acc.Paths() {
			fmt.Fprintf(tw, "%s\t%s\n", e.Controller, e.Path)
		}
		return tw.Flush()
	},
}

var pidsCmd = &cobra.Command{
	Use:   "pids",
	Short: "List the member pids of this process's cgroup",
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}

		pids, err := acc.Processes()
		if err != nil {
			return err
		}
		for _, pid := range pids {
			fmt.Println(pid)
		}
		fmt.Fprintf(os.Stderr, "%d pids\n", len(pids))
		return nil
	},
}

var scalarType string

var scalarCmd = &cobra.Command{
	Use:   "scalar FILE",
	Short: "Read a one-line virtual file (e.g. memory.current)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}

		switch scalarType {
		case "bigint":
			v, err := acc.ScalarInt64(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
		case "float8":
			v, err := acc.ScalarFloat64(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
		case "text":
			v, err := acc.ScalarText(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
		default:
			return fmt.Errorf("unknown scalar type %q", scalarType)
		}
		return nil
	},
}

var setofType string

var setofCmd = &cobra.Command{
	Use:   "setof FILE",
	Short: "Read a set-valued virtual file (e.g. cgroup.procs)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}

		switch setofType {
		case "bigint":
			vals, err := acc.SetOfInt64(args[0])
			if err != nil {
				return err
			}
			for _, v := range vals {
				fmt.Println(v)
			}
		case "text":
			vals, err := acc.SetOfText(args[0])
			if err != nil {
				return err
			}
			for _, v := range vals {
				fmt.Println(v)
			}
		default:
			return fmt.Errorf("unknown setof type %q", setofType)
		}
		return nil
	},
}

var arrayType string

var arrayCmd = &cobra.Command{
	Use:   "array FILE",
	Short: "Read a one-line vector virtual file (e.g. cpu.max)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}

		switch arrayType {
		case "bigint":
			vals, err := acc.ArrayInt64(args[0])
			if err != nil {
				return err
			}
			for _, v := range vals {
				fmt.Println(v)
			}
		case "text":
			vals, err := acc.ArrayText(args[0])
			if err != nil {
				return err
			}
			for _, v := range vals {
				fmt.Println(v)
			}
		default:
			return fmt.Errorf("unknown array type %q", arrayType)
		}
		return nil
	},
}

var kvCmd = &cobra.Command{
	Use:   "kv FILE",
	Short: "Read a flat keyed virtual file (e.g. memory.stat)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}

		rows, err := acc.FlatKeyed(args[0])
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "KEY\tVALUE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%d\n", r.Key, r.Value)
		}
		return tw.Flush()
	},
}

var ksvCmd = &cobra.Command{
	Use:   "ksv FILE",
	Short: "Read a keyed-subtotal virtual file (e.g. blkio.throttle.io_serviced)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}

		rows, err := acc.KeyedSubtotal(args[0])
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "KEY\tSUBKEY\tVALUE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Key, r.SubKey, r.Value)
		}
		return tw.Flush()
	},
}

var nkvCmd = &cobra.Command{
	Use:   "nkv FILE",
	Short: "Read a nested keyed virtual file (e.g. io.stat)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}

		rows, err := acc.NestedKeyed(args[0])
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "KEY\tSUBKEY\tVALUE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%g\n", r.Key, r.SubKey, r.Value)
		}
		return tw.Flush()
	},
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func init() {
	scalarCmd.Flags().StringVar(&scalarType, "type", "bigint", "value type (bigint, float8, text)")
	setofCmd.Flags().StringVar(&setofType, "type", "bigint", "value type (bigint, text)")
	arrayCmd.Flags().StringVar(&arrayType, "type", "bigint", "value type (bigint, text)")

	rootCmd.AddCommand(modeCmd, pathsCmd, pidsCmd, scalarCmd, setofCmd, arrayCmd, kvCmd, ksvCmd, nkvCmd)
}
