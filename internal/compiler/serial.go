package compiler

import (
	"os"
	"strconv"
	"time"
)

// DefaultSerial returns the 6-digit ASCII YYMMDD serial spec.md §4.7
// requires, honoring SOURCE_DATE_EPOCH (a Unix timestamp) so test runs
// can pin it for spec.md §8's "Determinism" invariant - "byte-identical
// images when the serial is pinned." Without it, the current date is
// used, matching every other Twee/Inform toolchain's convention.
func DefaultSerial() [6]byte {
	t := time.Now()
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		if secs, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			t = time.Unix(secs, 0).UTC()
		}
	}
	var s [6]byte
	copy(s[:], t.Format("060102"))
	return s
}
