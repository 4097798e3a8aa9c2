package sched

import (
	"github.com/byoboo/tiny-os-sub000/kernel/cpu"
	"github.com/byoboo/tiny-os-sub000/kernel/sync"
)

// asidAllocator hands out ASIDs from a fixed-width space (256 or 65536,
// detected via cpu.ReadASIDBits) and performs the §4.9 exhaustion protocol:
// a global TLB flush plus a generation bump, after which every
// previously-issued ASID is free to reuse but PCBs still tagged with the
// old generation must be reassigned on their next dispatch.
type asidAllocator struct {
	lock       sync.Spinlock
	width      uint32 // number of distinct ASID values (256 or 65536)
	next       uint32
	generation uint32
	free       []uint16
}

// readASIDBitsFn and the TLB/barrier calls below are indirected through
// package vars, overridden by tests, since their real bodies are AArch64
// assembly that only runs on actual hardware.
var (
	readASIDBitsFn  = cpu.ReadASIDBits
	invalidateTLBFn = cpu.TLBIVMALLE1IS
	dsbishFn        = cpu.DSBISH
	isbFn           = cpu.ISB
)

func newASIDAllocator() *asidAllocator {
	width := uint32(256)
	if readASIDBitsFn() {
		width = 65536
	}
	return &asidAllocator{width: width, next: 1, generation: 1} // ASID 0 is reserved for the kernel identity map
}

// allocate returns a fresh (asid, generation) pair, recycling a freed ASID
// before minting a new one, and performing the exhaustion protocol when
// neither is available. It never fails: exhaustion always yields a fresh
// generation to allocate from.
func (a *asidAllocator) allocate() (uint16, uint32) {
	a.lock.Acquire()
	defer a.lock.Release()

	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id, a.generation
	}

	if a.next < a.width {
		id := uint16(a.next)
		a.next++
		return id, a.generation
	}

	// Exhausted: flush every TLB entry, bump the generation, and restart
	// allocation from ASID 1 — every live PCB's cached asid now carries a
	// stale generation and will be reassigned at its next dispatch.
	invalidateTLBFn()
	dsbishFn()
	isbFn()
	a.generation++
	a.next = 2 // ASID 1 below becomes the first allocation of the new generation
	a.free = a.free[:0]

	return uint16(1), a.generation
}

func (a *asidAllocator) release(asid uint16) {
	a.lock.Acquire()
	defer a.lock.Release()
	a.free = append(a.free, asid)
}

// ensureCurrent reassigns p a fresh ASID if its cached generation is stale
// relative to the allocator's current one, called just before a PCB is
// dispatched.
func (a *asidAllocator) ensureCurrent(p *PCB) {
	a.lock.Acquire()
	gen := a.generation
	a.lock.Release()

	if p.asidGen == gen {
		return
	}

	p.asid, p.asidGen = a.allocate()
}
