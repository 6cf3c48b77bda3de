package util

import (
	"fmt"
	"sync/atomic"
)

// Transfer counts the payload traffic of one session.
type Transfer struct {
	Packets atomic.Int64 // payload-bearing packets moved
	Bytes   atomic.Int64 // payload bytes moved
}

// Add records one packet carrying n payload bytes.
func (t *Transfer) Add(n int) {
	t.Packets.Add(1)
	t.Bytes.Add(int64(n))
}

// Summary returns a one-line human-readable account of the transfer.
func (t *Transfer) Summary() string {
	return fmt.Sprintf("%s in %d packets", FormatBytes(float64(t.Bytes.Load())), t.Packets.Load())
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// FormatBytes formats a byte count into a human-readable string,
// for example: "99.0 B", "1.5 KiB", "98.9 GiB".
func FormatBytes(b float64) string {
	unitIdx := 0
	for b > 999 && unitIdx < len(byteUnits)-1 {
		b /= 1024
		unitIdx++
	}
	return fmt.Sprintf("%.1f %s", b, byteUnits[unitIdx])
}
