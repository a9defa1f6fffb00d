package vfs

import "errors"

var (
	// ErrFileTooLarge indicates a pseudo-file produced more content than
	// the configured safety bound while reading to EOF.
	ErrFileTooLarge = errors.New("vfs: file length exceeds read limit")

	// ErrAbsolutePath indicates a caller-supplied filename was absolute.
	ErrAbsolutePath = errors.New("vfs: reference to absolute path not allowed")

	// ErrParentReference indicates a caller-supplied filename referenced
	// a parent directory ("..").
	ErrParentReference = errors.New("vfs: reference to parent directory not allowed")
)
