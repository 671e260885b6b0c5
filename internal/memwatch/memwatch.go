// Package memwatch supplies an "ignore write cap under memory pressure"
// policy predicate for the drainer's injectable write-cap hook: when the
// host is over a configured memory threshold, the drainer stops capping
// bytes-per-event so queued replies drain as fast as the socket allows,
// trading fairness for shedding backlog faster.
package memwatch

import (
	"math"

	"github.com/shirou/gopsutil/v3/mem"
)

// Policy returns a server.WriteCapPolicy-shaped func() int: it reports the
// host's current memory usage against thresholdPercent and returns either
// the normal cap or an effectively unbounded one. Sampling errors are
// treated as "not under pressure" so a transient gopsutil failure never
// wedges the drainer into unbounded writes.
func Policy(normalCap int, thresholdPercent float64) func() int {
	return func() int {
		v, err := mem.VirtualMemory()
		if err != nil {
			return normalCap
		}
		if v.UsedPercent >= thresholdPercent {
			return math.MaxInt32
		}
		return normalCap
	}
}
