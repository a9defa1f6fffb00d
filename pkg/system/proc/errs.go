package proc

import "errors"

var (
	// ErrNoData indicates a procfs file was empty or had no usable lines.
	ErrNoData = errors.New("proc: no data in file")

	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrNoChildren indicates that /proc/<pid>/task/*/children listed none.
	ErrNoChildren = errors.New("proc: no children")
)
