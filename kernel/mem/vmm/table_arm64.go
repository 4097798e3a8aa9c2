package vmm

import (
	"unsafe"

	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
)

// pageLevels is the number of translation table levels walked for a 4KiB
// granule, 48-bit VA configuration: L0, L1, L2, L3. The teacher's x86 walker
// is a 2-level (PD/PT) instance of the same shape; this is that shape
// generalized to 4.
const pageLevels = 4

// pageLevelShifts[i] is the bit offset of the 9-bit index consumed at level
// i when decomposing a virtual address.
var pageLevelShifts = [pageLevels]uint{39, 30, 21, 12}

const tableIndexMask = uintptr(0x1ff)

// FrameAllocatorFn is a function that can allocate physical frames, used to
// materialize missing intermediate tables while walking.
type FrameAllocatorFn func() (pmm.Frame, error)

// physToVirt returns the kernel-space virtual address at which the physical
// page containing phys is always mapped. This core maps the entirety of
// managed physical RAM 1:1 at mem.KernelVirtBase at boot, so table-walking
// code never needs the teacher's temporary-mapping/recursive-self-map dance
// to reach an inactive address space's tables: any frame is directly
// dereferenceable through this offset regardless of which AddressSpace is
// currently installed in TTBR0_EL1. A package var, not a plain func, so
// tests can stand in a real backing slice in place of the boot-time
// identity map.
var physToVirt = func(phys uintptr) uintptr {
	return mem.KernelVirtBase + phys
}

func tableIndex(virtAddr uintptr, level int) uintptr {
	return (virtAddr >> pageLevelShifts[level]) & tableIndexMask
}

func entryAt(tableVirtAddr uintptr, index uintptr) *pageTableEntry {
	return (*pageTableEntry)(unsafe.Pointer(tableVirtAddr + index<<mem.PointerShift))
}

// walkFn is invoked once per table level while descending toward a leaf. It
// returns false to abort the walk early (e.g. on an allocation failure).
// level pageLevels-1 is always the final, leaf-level invocation.
type walkFn func(level int, pte *pageTableEntry) bool

// walk descends rootFrame's table hierarchy toward virtAddr, invoking fn at
// each level. It never allocates; callers that need missing intermediate
// tables materialized (Map) pass an allocFn-aware fn and allocate from
// inside the callback, mirroring the teacher's walk-with-callback idiom.
func walk(rootFrame pmm.Frame, virtAddr uintptr, fn walkFn) {
	tableAddr := physToVirt(rootFrame.Address())

	for level := 0; level < pageLevels; level++ {
		pte := entryAt(tableAddr, tableIndex(virtAddr, level))

		if !fn(level, pte) {
			return
		}

		if level < pageLevels-1 {
			if !pte.HasFlags(FlagPresent) {
				return
			}
			tableAddr = physToVirt(pte.Frame().Address())
		}
	}
}

// pteForAddress returns the leaf entry mapping virtAddr in the given
// address space, or ErrMappingConflict-free "not found" via a nil pte.
func pteForAddress(rootFrame pmm.Frame, virtAddr uintptr) *pageTableEntry {
	var leaf *pageTableEntry
	walk(rootFrame, virtAddr, func(level int, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			leaf = pte
			return false
		}
		return pte.HasFlags(FlagPresent)
	})
	return leaf
}

// ensureTable materializes (allocating via allocFn if necessary) the next
// level table pointed to by pte and returns its virtual base address.
func ensureTable(pte *pageTableEntry, allocFn FrameAllocatorFn) (uintptr, error) {
	if pte.HasFlags(FlagPresent) {
		if !pte.HasFlags(FlagTable) {
			return 0, errors.ErrNoHugePageSupport
		}
		return physToVirt(pte.Frame().Address()), nil
	}

	frame, err := allocFn()
	if err != nil {
		return 0, err
	}

	*pte = 0
	pte.SetFrame(frame)
	pte.SetFlags(FlagPresent | FlagTable | FlagRW | FlagAccessed)

	tableAddr := physToVirt(frame.Address())
	mem.Memset(tableAddr, 0, mem.PageSize)
	return tableAddr, nil
}
