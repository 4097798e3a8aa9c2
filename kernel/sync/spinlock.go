// Package sync provides the kernel's spinlock implementation.
package sync

import "sync/atomic"

var (
	// yieldFn is invoked by archAcquireSpinlock after a bounded number of
	// failed acquire attempts so a busy-waiter gives up its quantum
	// instead of spinning through it. It is nil until SetYieldFn is
	// called by the scheduler during its own init, avoiding an import
	// cycle between sync and sched.
	yieldFn func()

	// boostFn is called by BoostPriorityTo with the priority a lock holder
	// is temporarily raised to. Acquire does not call it. Reserved for
	// priority inheritance (§4.8); nil until the scheduler wires it in.
	boostFn func(prio uint8)
)

// SetYieldFn registers the scheduler's yield implementation. Called once
// during scheduler initialization.
func SetYieldFn(fn func()) {
	yieldFn = fn
}

// SetBoostFn registers the scheduler's priority-boost implementation.
func SetBoostFn(fn func(prio uint8)) {
	boostFn = fn
}

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	archAcquireSpinlock(&l.state, 1)
}

// BoostPriorityTo requests that the current holder of this lock (if any) be
// temporarily raised to prio so it can release the lock sooner. This is the
// hook priority inheritance is expected to hang off; the spinlock itself
// does not track a holder identity, so the call is a no-op unless a
// scheduler has registered a boost function via SetBoostFn.
func (l *Spinlock) BoostPriorityTo(prio uint8) {
	if boostFn != nil {
		boostFn(prio)
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// archAcquireSpinlock is an arch-specific implementation for acquiring the lock.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32)

// yieldOrSpin is called from archAcquireSpinlock's assembly body once a
// waiter has spun past its patience threshold. It calls into the registered
// yieldFn, or does nothing if no scheduler has registered one yet (e.g.
// locks taken before the scheduler is initialized).
//
//go:nosplit
func yieldOrSpin() {
	if yieldFn != nil {
		yieldFn()
	}
}
