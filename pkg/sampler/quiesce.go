package sampler

import (
	"runtime"
	"runtime/debug"
	"time"
)

// Quiescer settles the runtime before a measurement, so the recorded
// value reflects retained memory rather than collectable garbage.
type Quiescer interface {
	Settle(m Meter) error
}

// GCQuiescer runs a full collection, returns freed pages to the OS,
// then waits for consecutive resident readings to agree. The settle
// loop is an approximation: the OS reclaims returned pages
// asynchronously, so two readings within Tolerance of each other are
// taken as quiescent.
type GCQuiescer struct {
	// MaxAttempts bounds the settle loop
	MaxAttempts int
	// Interval is the pause between readings
	Interval time.Duration
	// Tolerance is the largest byte delta between consecutive
	// readings still considered stable
	Tolerance uint64
}

// DefaultQuiescer returns the settings Tracker uses unless overridden
func DefaultQuiescer() *GCQuiescer {
	return &GCQuiescer{
		MaxAttempts: 5,
		Interval:    10 * time.Millisecond,
		Tolerance:   64 * 1024,
	}
}

// Settle implements Quiescer
func (q *GCQuiescer) Settle(m Meter) error {
	runtime.GC()
	debug.FreeOSMemory()

	prev, err := m.ReadResident()
	if err != nil {
		return err
	}

	for i := 0; i < q.MaxAttempts; i++ {
		time.Sleep(q.Interval)

		cur, err := m.ReadResident()
		if err != nil {
			return err
		}

		if delta(cur, prev) <= q.Tolerance {
			return nil
		}
		prev = cur
	}

	// Readings kept drifting; measure anyway rather than blocking the
	// caller further
	return nil
}

func delta(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
