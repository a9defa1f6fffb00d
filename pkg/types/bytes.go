// Package types holds small value types shared by the metric readers.
package types

import "fmt"

// Bytes is a size in bytes read from a kernel virtual file.
type Bytes uint64

// Binary unit multipliers.
const (
	KiB Bytes = 1 << (10 * (iota + 1))
	MiB
	GiB
	TiB
)

// FromUnit maps a unit suffix as printed in meminfo-style files to its
// multiplier. "kB" is the kernel's historical misnomer for KiB.
func FromUnit(unit string) (Bytes, bool) {
	switch unit {
	case "kB":
		return KiB, true
	case "MB":
		return MiB, true
	case "GB":
		return GiB, true
	case "TB":
		return TiB, true
	}
	return 0, false
}

// Humanized renders the count with the largest unit that keeps the
// value at or above one.
func (b Bytes) Humanized() string {
	switch {
	case b >= TiB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TiB))
	case b >= GiB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// KB returns the count in kibibytes.
func (b Bytes) KB() float64 { return float64(b) / float64(KiB) }

// MB returns the count in mebibytes.
func (b Bytes) MB() float64 { return float64(b) / float64(MiB) }

// GB returns the count in gibibytes.
func (b Bytes) GB() float64 { return float64(b) / float64(GiB) }

// TB returns the count in tebibytes.
func (b Bytes) TB() float64 { return float64(b) / float64(TiB) }
