package vmm

import (
	"github.com/byoboo/tiny-os-sub000/kernel/cpu"
	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
)

// KernelSpace is the always-present address space backing the kernel half
// of the virtual range (TTBR1_EL1) and the boot identity map. Its ASID is 0,
// reserved per the AddressSpace invariant that ASID 0 names the boot
// identity map.
var KernelSpace = &AddressSpace{asid: 0}

// AddressSpace is a root page-table frame plus an ASID. The root frame is
// the lower-range (TTBR0_EL1) table; the kernel half of the virtual range
// is translated through TTBR1_EL1 and is therefore the same in every
// AddressSpace. New starts each space with an empty root table.
type AddressSpace struct {
	rootFrame pmm.Frame
	asid      uint16

	lazyRegions  []*LazyRegion
	stackRegions []*StackRegion
}

// New allocates a root table frame for a fresh AddressSpace tagged with
// asid. The caller is responsible for obtaining asid from the scheduler's
// ASID allocator (kernel/sched) so the "two live AddressSpaces never share
// an ASID" invariant holds.
func New(asid uint16, allocFn FrameAllocatorFn) (*AddressSpace, error) {
	frame, err := allocFn()
	if err != nil {
		return nil, err
	}

	tableAddr := physToVirt(frame.Address())
	mem.Memset(tableAddr, 0, mem.PageSize)

	return &AddressSpace{rootFrame: frame, asid: asid}, nil
}

// ASID returns the address space identifier tagging this space's TLB
// entries.
func (s *AddressSpace) ASID() uint16 { return s.asid }

// RootFrame returns the physical frame backing this space's top-level
// table, the value programmed into TTBR0_EL1 on activation.
func (s *AddressSpace) RootFrame() pmm.Frame { return s.rootFrame }

// Activate installs this address space as the current TTBR0_EL1 mapping,
// used by the scheduler on every context switch.
func (s *AddressSpace) Activate() {
	cpu.WriteTTBR0(s.rootFrame.Address(), s.asid)
}

// AddLazyRegion registers r as a declared lazy range within this address
// space, consulted by the page fault handler before any other fault branch.
func (s *AddressSpace) AddLazyRegion(r *LazyRegion) {
	s.lazyRegions = append(s.lazyRegions, r)
}

// AddStackRegion registers r as one of this address space's stacks.
func (s *AddressSpace) AddStackRegion(r *StackRegion) {
	s.stackRegions = append(s.stackRegions, r)
}

// lazyRegionFor returns the declared LazyRegion containing addr, if any.
func (s *AddressSpace) lazyRegionFor(addr uintptr) *LazyRegion {
	for _, r := range s.lazyRegions {
		if r.contains(addr) {
			return r
		}
	}
	return nil
}

// stackRegionFor returns the StackRegion whose footprint, from the guard
// page below Base up to Top, contains addr, if any.
func (s *AddressSpace) stackRegionFor(addr uintptr) *StackRegion {
	for _, r := range s.stackRegions {
		if addr < r.Top && addr >= r.Base-r.Guard {
			return r
		}
	}
	return nil
}

// earlyReserveLastUsed tracks the last reserved page address, decreasing
// after each EarlyReserveRegion call. It starts at tempMappingAddr, which
// coincides with the end of the portion of the kernel address space this
// core hands out for early, pre-scheduler virtual reservations (the Go
// runtime's own sysReserve/sysAlloc, per kernel/goruntime).
var earlyReserveLastUsed = tempMappingAddr

var errEarlyReserveNoSpace = errors.KernelError("remaining virtual address space not large enough to satisfy reservation request")

// EarlyReserveRegion reserves a page-aligned contiguous virtual memory
// region of the requested size (rounded up to a page multiple) within the
// kernel address space and returns its virtual address. Allocates
// downward from the top of the early-reservation window; intended only for
// the brief pre-scheduler boot window before the general allocators exist.
func EarlyReserveRegion(size mem.Size) (uintptr, error) {
	size = (size + (mem.PageSize - 1)) &^ (mem.PageSize - 1)

	if uintptr(size) > earlyReserveLastUsed {
		return 0, errEarlyReserveNoSpace
	}

	earlyReserveLastUsed -= uintptr(size)
	return earlyReserveLastUsed, nil
}
