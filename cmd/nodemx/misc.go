//go:build linux

package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ja7ad/nodemx/pkg/nodemx"
	"github.com/ja7ad/nodemx/pkg/sqlext"
	"github.com/ja7ad/nodemx/pkg/system/vfs"
	"github.com/ja7ad/nodemx/pkg/types"
)

var fsinfoCmd = &cobra.Command{
	Use:   "fsinfo PATH",
	Short: "Show filesystem information for a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fi, err := vfs.StatFS(args[0])
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintf(tw, "device\t%d:%d\n", fi.Major, fi.Minor)
		fmt.Fprintf(tw, "type\t%s\n", fi.Type)
		fmt.Fprintf(tw, "block_size\t%d\n", fi.BlockSize)
		fmt.Fprintf(tw, "total\t%s\n", types.Bytes(fi.TotalBytes).Humanized())
		fmt.Fprintf(tw, "free\t%s\n", types.Bytes(fi.FreeBytes).Humanized())
		fmt.Fprintf(tw, "avail\t%s\n", types.Bytes(fi.AvailBytes).Humanized())
		fmt.Fprintf(tw, "files\t%d\n", fi.Files)
		fmt.Fprintf(tw, "files_free\t%d\n", fi.FFree)
		fmt.Fprintf(tw, "mount_flags\t%s\n", fi.MountFlags)
		return tw.Flush()
	},
}

var kdapiCmd = &cobra.Command{
	Use:   "kdapi",
	Short: "Read Kubernetes Downward API files",
}

var kdapiKVCmd = &cobra.Command{
	Use:   "kv FILE",
	Short: "Read a Downward API file of key=\"value\" lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := kdapiContext().SetOfKV(args[0])
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, "KEY\tVALUE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\n", r.Key, r.Value)
		}
		return tw.Flush()
	},
}

var kdapiScalarCmd = &cobra.Command{
	Use:   "scalar FILE",
	Short: "Read a one-line Downward API file as an integer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := kdapiContext().ScalarInt64(args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

var envBigint bool

var envCmd = &cobra.Command{
	Use:   "env NAME",
	Short: "Read an environment variable, failing if it is unset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if envBigint {
			v, err := nodemx.EnvInt64(args[0])
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		}
		v, err := nodemx.EnvText(args[0])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

var sqlCmd = &cobra.Command{
	Use:   "sql QUERY",
	Short: "Run a SQL query with the metric functions registered",
	Long: `sql opens an in-memory sqlite database whose connections carry the
cgroup, environment, and Downward API functions, runs the query, and
prints the result rows. Set-returning functions produce JSON arrays;
unpack them with json_each.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		acc, err := accessor()
		if err != nil {
			return err
		}
		sqlext.Register(sqlext.DriverName, acc, kdapiContext())

		db, err := sql.Open(sqlext.DriverName, ":memory:")
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.Query(args[0])
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}

		tw := newTable()
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))

		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			cells := make([]string, len(vals))
			for i, v := range vals {
				switch x := v.(type) {
				case nil:
					cells[i] = "NULL"
				case []byte:
					cells[i] = string(x)
				default:
					cells[i] = fmt.Sprint(x)
				}
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return tw.Flush()
	},
}

func init() {
	envCmd.Flags().BoolVar(&envBigint, "bigint", false, "parse the value as an integer")

	kdapiCmd.AddCommand(kdapiKVCmd, kdapiScalarCmd)
	rootCmd.AddCommand(fsinfoCmd, kdapiCmd, envCmd, sqlCmd)
}
