package vmm

import (
	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
)

// StackRegion describes a per-context stack: a fixed high end (Top, where
// the initial stack pointer sits), a fixed low end (Base) below which an
// unmapped guard page always lives, and a CommittedBase that starts above
// Base and grows downward toward it on demand. Grounded on §4.7's
// base/size/guard/max_size/growth_window/growth_chunk model.
type StackRegion struct {
	Top           uintptr
	Base          uintptr
	Guard         uintptr
	GrowthWindow  uintptr
	GrowthChunk   uintptr
	Flags         PageTableEntryFlag
	CommittedBase uintptr

	lastTouchTick map[Page]uint64
}

// NewStackRegion describes a stack occupying [top-maxSize, top), committed
// initially to its top initialSize bytes, with growthChunk defaulting to one
// page when zero.
func NewStackRegion(top, initialSize, maxSize, guard, growthWindow, growthChunk uintptr, flags PageTableEntryFlag) *StackRegion {
	if growthChunk == 0 {
		growthChunk = uintptr(mem.PageSize)
	}

	return &StackRegion{
		Top:           top,
		Base:          top - maxSize,
		Guard:         guard,
		GrowthWindow:  growthWindow,
		GrowthChunk:   growthChunk,
		Flags:         flags,
		CommittedBase: top - initialSize,
		lastTouchTick: make(map[Page]uint64),
	}
}

// Contains reports whether addr falls inside the currently committed range.
func (r *StackRegion) Contains(addr uintptr) bool {
	return addr >= r.CommittedBase && addr < r.Top
}

// InGuard reports whether addr falls inside the always-unmapped guard page,
// the signal the fault handler uses to recognise a stack overflow outright
// rather than a growable access.
func (r *StackRegion) InGuard(addr uintptr) bool {
	return addr >= r.Base-r.Guard && addr < r.Base
}

// inGrowthZone reports whether addr is a candidate for on-demand growth:
// below the committed base, but within growth_window bytes of it, and not
// past the region's configured maximum extent.
func (r *StackRegion) inGrowthZone(addr uintptr) bool {
	if addr >= r.CommittedBase || addr < r.Base {
		return false
	}
	return r.CommittedBase-addr <= r.GrowthWindow
}

// growthFault implements §4.4 branch 5 and the growth half of §4.7: extend
// the committed range downward by at least one growth_chunk to cover addr,
// never crossing Base. Each newly committed page is mapped zeroed-on-write,
// mirroring how every other anonymous region materializes its pages.
func growthFault(space *AddressSpace, r *StackRegion, addr uintptr, tick uint64, allocFn FrameAllocatorFn) error {
	if r.InGuard(addr) || addr < r.Base {
		return errors.ErrStackOverflow
	}
	if !r.inGrowthZone(addr) {
		return errors.ErrStackOverflow
	}

	newBase := addr &^ uintptr(mem.PageSize-1)
	if delta := r.CommittedBase - newBase; delta < r.GrowthChunk {
		if r.CommittedBase > r.GrowthChunk {
			newBase = r.CommittedBase - r.GrowthChunk
		} else {
			newBase = 0
		}
		newBase &^= uintptr(mem.PageSize - 1)
	}
	if newBase < r.Base {
		newBase = r.Base
	}

	for pageAddr := newBase; pageAddr < r.CommittedBase; pageAddr += uintptr(mem.PageSize) {
		page := PageFromAddress(pageAddr)
		if err := materializeZeroed(space, page, r.Flags, allocFn); err != nil {
			return err
		}
		r.lastTouchTick[page] = tick
	}

	r.CommittedBase = newBase
	return nil
}

// touch records that the page containing addr was accessed at the given
// scheduling tick, keeping the shrink policy's idle bookkeeping current. The
// scheduler calls this on every context switch for the outgoing context's
// current stack pointer.
func (r *StackRegion) touch(addr uintptr, tick uint64) {
	r.lastTouchTick[PageFromAddress(addr)] = tick
}

// TouchStack is touch's entry point for kernel/sched, which cannot reach the
// unexported StackRegion.touch directly: it resolves addr to whichever of
// space's registered stack regions contains it and records the touch there,
// silently doing nothing if addr is outside every stack region (e.g. the
// idle PCB's KernelSpace, which has none).
func TouchStack(space *AddressSpace, addr uintptr, tick uint64) {
	if r := space.stackRegionFor(addr); r != nil {
		r.touch(addr, tick)
	}
}

// shrink implements §4.7's shrink policy: pages at the low end of the
// committed range that have not been touched within idleTicks scheduling
// ticks are unmapped, and the committed base (and, conceptually, the guard
// alongside it) moves back up to match. Shrinking stops at the page
// containing the current stack pointer spHint, so that page and every page
// above it stay mapped even if their last recorded touch is stale.
func shrink(space *AddressSpace, r *StackRegion, currentTick, idleTicks uint64, spHint uintptr) error {
	spPage := PageFromAddress(spHint)

	for pageAddr := r.CommittedBase; pageAddr < r.Top; pageAddr += uintptr(mem.PageSize) {
		page := PageFromAddress(pageAddr)
		if page == spPage {
			break
		}

		last, ok := r.lastTouchTick[page]
		if !ok || currentTick-last < idleTicks {
			break
		}

		if err := Unmap(space, page); err != nil {
			return err
		}
		delete(r.lastTouchTick, page)
		r.CommittedBase = pageAddr + uintptr(mem.PageSize)
	}

	return nil
}

// ShrinkStacks is shrink's entry point for kernel/sched: it applies §4.7's
// shrink policy to every stack region registered in space, called by the
// scheduler on a periodic tick rather than on every single one, since the
// policy only ever reclaims pages that have already sat idle for idleTicks.
// spHint is the currently running context's stack pointer; it protects
// the page containing it (and every page above it) in whichever region it
// falls within, per shrink's own contract, and is ignored by every other
// region registered in space.
func ShrinkStacks(space *AddressSpace, currentTick, idleTicks uint64, spHint uintptr) error {
	for _, r := range space.stackRegions {
		hint := spHint
		if hint < r.Base || hint >= r.Top {
			hint = 0
		}
		if err := shrink(space, r, currentTick, idleTicks, hint); err != nil {
			return err
		}
	}
	return nil
}
