//go:build linux

// Package sqlext exposes the metric accessors as SQL functions: it wraps
// a sqlite3 driver whose connections have the cgroup, environment, and
// Downward API readers registered. Scalar shapes map to scalar functions;
// set-returning shapes come back as JSON arrays for use with json_each.
//
// Authorization is the caller's concern, as with any database handle.
package sqlext

import (
	"database/sql"
	"encoding/json"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/ja7ad/nodemx/pkg/nodemx"
	"github.com/ja7ad/nodemx/pkg/system/kdapi"
)

// DriverName is the conventional name the CLI registers the driver under.
const DriverName = "sqlite3_nodemx"

// Register wires the accessors into a new database/sql driver under the
// given name. Call once per process per name; database/sql panics on
// duplicate registration.
func Register(name string, acc *nodemx.Accessor, kd *kdapi.Context) {
	sql.Register(name, NewDriver(acc, kd))
}

// NewDriver returns a sqlite3 driver that registers the metric functions
// on every new connection.
func NewDriver(acc *nodemx.Accessor, kd *kdapi.Context) *sqlite3.SQLiteDriver {
	return &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			funcs := map[string]any{
				"cgroup_mode":          acc.ModeName,
				"cgroup_containerized": acc.Containerized,
				"cgroup_process_count": acc.ProcessCount,
				"cgroup_scalar_bigint": acc.ScalarInt64,
				"cgroup_scalar_float8": acc.ScalarFloat64,
				"cgroup_scalar_text":   acc.ScalarText,
				"envvar_text":          nodemx.EnvText,
				"envvar_bigint":        nodemx.EnvInt64,
				"kdapi_scalar_bigint":  kd.ScalarInt64,

				"cgroup_path":          jsonFunc0(pathRows(acc)),
				"cgroup_process_list":  jsonFunc0(acc.Processes),
				"cgroup_setof_bigint":  jsonFunc1(acc.SetOfInt64),
				"cgroup_setof_text":    jsonFunc1(acc.SetOfText),
				"cgroup_array_bigint":  jsonFunc1(acc.ArrayInt64),
				"cgroup_array_text":    jsonFunc1(acc.ArrayText),
				"cgroup_setof_kv":      jsonFunc1(kvRows(acc)),
				"cgroup_setof_ksv":     jsonFunc1(ksvRows(acc)),
				"cgroup_setof_nkv":     jsonFunc1(nkvRows(acc)),
				"kdapi_setof_kv":       jsonFunc1(kdapiRows(kd)),
			}
			for name, fn := range funcs {
				if err := conn.RegisterFunc(name, fn, true); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// jsonFunc0 adapts a niladic set-returning accessor to a JSON scalar.
func jsonFunc0[T any](fn func() (T, error)) func() (string, error) {
	return func() (string, error) {
		rows, err := fn()
		if err != nil {
			return "", err
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// jsonFunc1 adapts a one-argument set-returning accessor to a JSON scalar.
func jsonFunc1[T any](fn func(string) (T, error)) func(string) (string, error) {
	return func(arg string) (string, error) {
		rows, err := fn(arg)
		if err != nil {
			return "", err
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

type pathRow struct {
	Controller string `json:"controller"`
	Path       string `json:"path"`
}

func pathRows(acc *nodemx.Accessor) func() ([]pathRow, error) {
	return func() ([]pathRow, error) {
		entries := acc.Paths()
		rows := make([]pathRow, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, pathRow{Controller: e.Controller, Path: e.Path})
		}
		return rows, nil
	}
}

type kvRow struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

func kvRows(acc *nodemx.Accessor) func(string) ([]kvRow, error) {
	return func(filename string) ([]kvRow, error) {
		src, err := acc.FlatKeyed(filename)
		if err != nil {
			return nil, err
		}
		rows := make([]kvRow, 0, len(src))
		for _, r := range src {
			rows = append(rows, kvRow{Key: r.Key, Value: r.Value})
		}
		return rows, nil
	}
}

type ksvRow struct {
	Key    string `json:"key"`
	SubKey string `json:"subkey"`
	Value  int64  `json:"value"`
}

func ksvRows(acc *nodemx.Accessor) func(string) ([]ksvRow, error) {
	return func(filename string) ([]ksvRow, error) {
		src, err := acc.KeyedSubtotal(filename)
		if err != nil {
			return nil, err
		}
		rows := make([]ksvRow, 0, len(src))
		for _, r := range src {
			rows = append(rows, ksvRow{Key: r.Key, SubKey: r.SubKey, Value: r.Value})
		}
		return rows, nil
	}
}

type nkvRow struct {
	Key    string  `json:"key"`
	SubKey string  `json:"subkey"`
	Value  float64 `json:"value"`
}

func nkvRows(acc *nodemx.Accessor) func(string) ([]nkvRow, error) {
	return func(filename string) ([]nkvRow, error) {
		src, err := acc.NestedKeyed(filename)
		if err != nil {
			return nil, err
		}
		rows := make([]nkvRow, 0, len(src))
		for _, r := range src {
			rows = append(rows, nkvRow{Key: r.Key, SubKey: r.SubKey, Value: r.Value})
		}
		return rows, nil
	}
}

type textKVRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func kdapiRows(kd *kdapi.Context) func(string) ([]textKVRow, error) {
	return func(filename string) ([]textKVRow, error) {
		src, err := kd.SetOfKV(filename)
		if err != nil {
			return nil, err
		}
		rows := make([]textKVRow, 0, len(src))
		for _, r := range src {
			rows = append(rows, textKVRow{Key: r.Key, Value: r.Value})
		}
		return rows, nil
	}
}
