// Package pressure implements the memory core's pressure-level state
// machine described in §4.2/§4.7: a global level derived from the block
// allocator's free ratio, with configurable thresholds and a deferred
// compaction hook triggered whenever the level worsens.
package pressure

import "github.com/byoboo/tiny-os-sub000/kernel/sync"

// Level names a point on the pressure scale, ordered from least to most
// severe so callers can compare levels directly.
type Level uint8

const (
	None Level = iota
	Low
	High
	Critical
)

// String returns a human-readable name for l, used in diagnostics.
func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Low:
		return "low"
	case High:
		return "high"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Thresholds are free-ratio cutoffs (free_blocks/total_blocks) at or below
// which the corresponding level applies. They are parameters rather than
// hardcoded constants per the spec's explicit note that thresholds must be
// configurable.
type Thresholds struct {
	Low, High, Critical float64
}

// DefaultThresholds matches the defaults named in §4.2: Low=20%, High=10%,
// Critical=3%.
var DefaultThresholds = Thresholds{Low: 0.20, High: 0.10, Critical: 0.03}

// CompactFn is invoked once per worsening level transition, scheduled as
// deferred work rather than run inline from whatever call site observed the
// crossing. Registered by kernel/deferred once that subsystem exists;
// defaults to a no-op so Observe is safe to call before then.
var CompactFn = func(Level) {}

var (
	lock    sync.Spinlock
	current Level
	limits  = DefaultThresholds
)

// SetThresholds overrides the active threshold set used by Observe.
func SetThresholds(t Thresholds) {
	lock.Acquire()
	defer lock.Release()
	limits = t
}

// Classify maps a free ratio (0..1) to the level it falls under given the
// active thresholds.
func Classify(freeRatio float64) Level {
	lock.Acquire()
	t := limits
	lock.Release()

	switch {
	case freeRatio <= t.Critical:
		return Critical
	case freeRatio <= t.High:
		return High
	case freeRatio <= t.Low:
		return Low
	default:
		return None
	}
}

// Current returns the most recently observed pressure level.
func Current() Level {
	lock.Acquire()
	defer lock.Release()
	return current
}

// Observe recomputes the pressure level from a free/total block count pair
// and, if the new level is strictly more severe than the last observed one,
// schedules CompactFn via deferred work. Crossing back down to a less
// severe level updates the bookkeeping but never itself triggers
// compaction — only worsening transitions do.
func Observe(freeBlocks, totalBlocks uint32) Level {
	var ratio float64
	if totalBlocks > 0 {
		ratio = float64(freeBlocks) / float64(totalBlocks)
	}
	next := Classify(ratio)

	lock.Acquire()
	prev := current
	current = next
	lock.Release()

	if next > prev {
		CompactFn(next)
	}
	return next
}
