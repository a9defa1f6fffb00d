//go:build linux

// Package vfs reads kernel pseudo-files (cgroupfs, procfs, sysfs).
//
// These files cannot be size-stat'd reliably: the kernel generates their
// contents at read time and Stat reports zero length. Every read therefore
// runs a growth loop until EOF, bounded by a safety limit.
package vfs

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

const (
	// MinReadSize is the minimum amount read per iteration.
	MinReadSize = 4096

	// DefaultMaxReadSize bounds a single pseudo-file read. Real cgroup and
	// procfs files are a few KiB; anything near this limit is corrupt or
	// hostile content.
	DefaultMaxReadSize = 16 << 20
)

// ReadVFS returns the full contents of the pseudo-file at the given
// absolute path. Contents are re-read on every call; nothing is cached.
func ReadVFS(filename string) (string, error) {
	return ReadVFSLimit(filename, DefaultMaxReadSize)
}

// ReadVFSLimit is ReadVFS with an explicit upper bound on content size.
// Exceeding the bound fails with ErrFileTooLarge.
func ReadVFSLimit(filename string, limit int) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", fmt.Errorf("vfs: could not open file %q for reading: %w", filename, err)
	}
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, 0, MinReadSize)
	for {
		if len(buf) > limit {
			return "", fmt.Errorf("%w: %q", ErrFileTooLarge, filename)
		}
		if cap(buf)-len(buf) < MinReadSize {
			grown := make([]byte, len(buf), 2*cap(buf)+MinReadSize)
			copy(grown, buf)
			buf = grown
		}

		n, err := f.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("vfs: could not read file %q: %w", filename, err)
		}
	}

	return string(buf), nil
}

// CheckFilename validates a caller-supplied relative filename before it is
// joined with a resolved controller path. Absolute paths and parent
// directory references are rejected; the cleaned name is returned.
func CheckFilename(filename string) (string, error) {
	if path.IsAbs(filename) {
		return "", fmt.Errorf("%w: %q", ErrAbsolutePath, filename)
	}

	cleaned := path.Clean(filename)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrParentReference, filename)
	}

	return cleaned, nil
}
