package vmm

import (
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
	"github.com/byoboo/tiny-os-sub000/kernel/sync"
)

// cowRefcounts tracks the number of PTEs pointing at each CowFrame, keyed by
// the backing frame itself rather than any kernel pointer to the PTE: the
// spec's cyclic-reference note requires PTE->CowFrame to be a weak
// reference resolved through a refcount table, so that the refcount stays
// the single source of truth and no ownership cycle has to be broken by
// hand. Grounded on the teacher's reserveZeroedFrame/FlagCopyOnWrite pair
// (kernel/mem/vmm/vmm.go), generalized from "one well-known shared frame"
// to an arbitrary table of shared frames.
var (
	cowLock      sync.Spinlock
	cowRefcounts = map[pmm.Frame]uint32{}
)

// cowShare registers an additional PTE reference to frame, returning the new
// refcount.
func cowShare(frame pmm.Frame) uint32 {
	cowLock.Acquire()
	defer cowLock.Release()
	cowRefcounts[frame]++
	return cowRefcounts[frame]
}

// cowRefcount returns the current number of PTEs referencing frame.
func cowRefcount(frame pmm.Frame) uint32 {
	cowLock.Acquire()
	defer cowLock.Release()
	return cowRefcounts[frame]
}

// cowRelease drops one PTE reference to frame. When the refcount reaches
// zero the entry is removed from the table; the caller is responsible for
// returning the frame to the physical allocator.
func cowRelease(frame pmm.Frame) uint32 {
	cowLock.Acquire()
	defer cowLock.Release()

	count := cowRefcounts[frame]
	if count == 0 {
		return 0
	}
	count--
	if count == 0 {
		delete(cowRefcounts, frame)
	} else {
		cowRefcounts[frame] = count
	}
	return count
}

// cowFault implements §4.4 branches 3/4: the write-fault path for a PTE
// pointing at a CowFrame.
//
//   - refcount > 1: allocate a new frame, copy the 4KiB page, decrement the
//     source refcount, install a writable PTE to the new frame.
//   - refcount == 1: this is the last writer; upgrade the existing PTE to
//     writable in place and drop the CoW bookkeeping, since the underlying
//     frame is no longer shared.
func cowFault(space *AddressSpace, page Page, pte *pageTableEntry, allocFn FrameAllocatorFn) error {
	srcFrame := pte.Frame()
	origFlags := flagsFromOriginal(pte)

	if cowRefcount(srcFrame) <= 1 {
		pte.ClearFlags(FlagCopyOnWrite)
		pte.SetFlags(FlagRW)
		pte.ClearFlags(apReadOnly)
		flushTLBEntryFn(space, page.Address())
		cowRelease(srcFrame)
		return nil
	}

	newFrame, err := allocFn()
	if err != nil {
		return err
	}

	tmpPage, err := MapTemporary(newFrame, allocFn)
	if err != nil {
		return err
	}
	copyFrame(tmpPage.Address(), srcFrame)
	_ = Unmap(KernelSpace, tmpPage)

	cowRelease(srcFrame)

	*pte = 0
	pte.SetFrame(newFrame)
	pte.SetFlags(leafAttrsForFlags(FlagRW | origFlags))
	flushTLBEntryFn(space, page.Address())
	return nil
}

// copyFrame copies a full page from srcFrame's physical location into the
// virtual address dstVirt currently maps.
func copyFrame(dstVirt uintptr, srcFrame pmm.Frame) {
	mem.Memcopy(physToVirt(srcFrame.Address()), dstVirt, mem.PageSize)
}

// flagsFromOriginal preserves the user/executability flags an original
// CowFrame mapping carried, so the "last writer" and "copy" paths produce
// mappings with the same user-visible permissions modulo writability.
func flagsFromOriginal(pte *pageTableEntry) PageTableEntryFlag {
	var flags PageTableEntryFlag
	if pte.HasFlags(FlagUserAccess) {
		flags |= FlagUserAccess
	}
	if pte.HasFlags(FlagNoExecute) {
		flags |= FlagNoExecute
	}
	return flags
}

// cowShareRange installs CowFrame references for every present page in
// [start, end) of src into dst, downgrading both sides' PTEs to read-only
// and bumping the shared refcount — the mechanism behind fork-like sharing
// (S3 in the testable scenarios).
func cowShareRange(src, dst *AddressSpace, start, end uintptr, allocFn FrameAllocatorFn) error {
	for addr := start; addr < end; addr += uintptr(mem.PageSize) {
		page := PageFromAddress(addr)
		srcPte := pteForAddress(src.rootFrame, page.Address())
		if srcPte == nil || !srcPte.HasFlags(FlagPresent) {
			continue
		}

		frame := srcPte.Frame()
		alreadyShared := srcPte.HasFlags(FlagCopyOnWrite)

		srcPte.SetFlags(FlagCopyOnWrite)
		srcPte.ClearFlags(FlagRW)
		srcPte.SetFlags(apReadOnly)
		flushTLBEntryFn(src, page.Address())

		if err := Map(dst, page, frame, FlagCopyOnWrite, allocFn); err != nil {
			return err
		}
		dstPte := pteForAddress(dst.rootFrame, page.Address())
		dstPte.ClearFlags(FlagRW)
		dstPte.SetFlags(apReadOnly)

		if !alreadyShared {
			cowShare(frame) // account for src's own pre-existing reference
		}
		cowShare(frame) // account for dst's new reference
	}
	return nil
}
