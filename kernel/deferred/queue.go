// Package deferred implements the interrupt core's softirq-equivalent
// deferred work queues (§4.11): three priority tiers (HIGH, NORMAL, LOW),
// each a single-producer-single-consumer ring buffer drained at the
// established safe points (end of IRQ, before EL0 return, or an explicit
// Drain call from kernel code).
//
// Grounded on the teacher's kernel/sync spinlock package for the
// acquire/release memory-ordering idiom (CAS via sync/atomic, busy-wait
// body left to the architecture) — the ring buffer here needs only a
// lock-free head/tail pair, not a full lock, since each tier has exactly
// one producer context (an IRQ handler) and one consumer (the drainer),
// matching the single-core, no-SMP scope this stage targets.
package deferred

import (
	"sync/atomic"

	"github.com/byoboo/tiny-os-sub000/kernel/errors"
)

// Tier orders deferred work by urgency, drained strictly HIGH, then
// NORMAL, then LOW on every pass.
type Tier uint8

const (
	High Tier = iota
	Normal
	Low

	numTiers
)

// Func is a deferred work item's body. arg carries whatever the submitter
// closed over at submission time; it is not interpreted by this package.
type Func func(arg uintptr)

// WorkItem is a deferred unit of work: a function pointer plus an opaque
// argument, submitted from any context (including IRQ handlers) and run
// only at a drain point with preemption re-enabled.
type WorkItem struct {
	Fn  Func
	Arg uintptr
}

// ringCapacity bounds each tier's queue. Must be a power of two so index
// wrapping is a mask rather than a modulo.
const ringCapacity = 64

// ring is a lock-free SPSC queue. head is owned by the consumer (the
// drainer), tail by the producer (any submitter); each side only ever
// writes its own index and reads the other's, so the atomic load/store
// pair is the full acquire/release relationship the spec requires: the
// producer's store to buf happens-before the consumer's load of that slot
// because it happens-before the atomic store to tail, which the consumer's
// atomic load of tail synchronizes with.
type ring struct {
	buf  [ringCapacity]WorkItem
	head uint32
	tail uint32
}

func (r *ring) push(w WorkItem) bool {
	tail := atomic.LoadUint32(&r.tail)
	head := atomic.LoadUint32(&r.head)
	if tail-head >= ringCapacity {
		return false
	}

	r.buf[tail&(ringCapacity-1)] = w
	atomic.StoreUint32(&r.tail, tail+1)
	return true
}

func (r *ring) pop() (WorkItem, bool) {
	head := atomic.LoadUint32(&r.head)
	tail := atomic.LoadUint32(&r.tail)
	if head == tail {
		return WorkItem{}, false
	}

	w := r.buf[head&(ringCapacity-1)]
	atomic.StoreUint32(&r.head, head+1)
	return w, true
}

func (r *ring) empty() bool {
	return atomic.LoadUint32(&r.head) == atomic.LoadUint32(&r.tail)
}

// queues holds the per-tier rings for the single core this stage
// schedules. A future SMP step would index this by CPU id; Non-goal here,
// so there is exactly one set.
var queues [numTiers]ring

// batchSize bounds how many items a single Drain pass runs out of one
// tier before moving to the next, so a work item that resubmits itself to
// its own tier cannot starve the tiers below it.
const batchSize = 16

// Submit enqueues work onto tier's ring. Callable from any context,
// including IRQ handlers; never blocks. Returns errors.ErrFull if the
// tier's ring has no free slot, leaving the caller to decide whether to
// drop the work or escalate.
func Submit(tier Tier, work WorkItem) error {
	if !queues[tier].push(work) {
		return errors.ErrFull
	}
	return nil
}

// Drain runs one bounded pass over every tier, HIGH first, then NORMAL,
// then LOW, running up to batchSize items per tier before moving on. Call
// at the end of every IRQ handler, before returning to EL0 from any kernel
// path, or explicitly from kernel code that needs its queued work applied
// immediately.
func Drain() {
	for tier := Tier(0); tier < numTiers; tier++ {
		drainTier(tier)
	}
}

func drainTier(tier Tier) {
	q := &queues[tier]
	for i := 0; i < batchSize; i++ {
		w, ok := q.pop()
		if !ok {
			return
		}
		w.Fn(w.Arg)
	}
}

// Pending reports whether tier has work queued, used by tests and by
// diagnostics that want to report queue depth without draining it.
func Pending(tier Tier) bool {
	return !queues[tier].empty()
}
