package vmm

import (
	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
)

// flushTLBEntryFn is overridden by tests; automatically inlined by the
// compiler in the kernel build.
var flushTLBEntryFn = flushTLBEntry

// Map establishes a mapping between a virtual page and a physical memory
// frame inside the given address space, allocating any missing intermediate
// tables from allocFn.
func Map(space *AddressSpace, page Page, frame pmm.Frame, flags PageTableEntryFlag, allocFn FrameAllocatorFn) error {
	var outErr error

	walk(space.rootFrame, page.Address(), func(level int, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			wantAttrs := leafAttrsForFlags(flags)
			if pte.HasFlags(FlagPresent) {
				haveAttrs := *pte &^ pageTableEntry(frameAddrMask)
				if pte.Frame() != frame || haveAttrs != wantAttrs {
					outErr = errors.ErrMappingConflict
					return false
				}
				flushTLBEntryFn(space, page.Address())
				return true
			}
			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(wantAttrs)
			flushTLBEntryFn(space, page.Address())
			return true
		}

		tableAddr, err := ensureTable(pte, allocFn)
		if err != nil {
			outErr = err
			return false
		}
		_ = tableAddr
		return true
	})

	return outErr
}

// MapTemporary establishes a temporary RW mapping of a physical memory frame
// at a fixed kernel virtual address, used to fill or copy a frame's contents
// before it is mapped at its final address (e.g. a copy-on-write copy or a
// lazily populated page).
func MapTemporary(frame pmm.Frame, allocFn FrameAllocatorFn) (Page, error) {
	if err := Map(KernelSpace, PageFromAddress(tempMappingAddr), frame, FlagRW, allocFn); err != nil {
		return 0, err
	}
	return PageFromAddress(tempMappingAddr), nil
}

// Unmap removes a mapping previously installed via Map in the given address
// space.
func Unmap(space *AddressSpace, page Page) error {
	var outErr error

	walk(space.rootFrame, page.Address(), func(level int, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			if !pte.HasFlags(FlagPresent) {
				outErr = errors.ErrMappingConflict
				return false
			}
			pte.ClearFlags(FlagPresent)
			flushTLBEntryFn(space, page.Address())
			return true
		}

		if !pte.HasFlags(FlagPresent) {
			outErr = errors.ErrMappingConflict
			return false
		}
		if !pte.HasFlags(FlagTable) {
			outErr = errors.ErrNoHugePageSupport
			return false
		}
		return true
	})

	return outErr
}

// Protect updates the access flags of an already-present mapping without
// changing its backing frame.
func Protect(space *AddressSpace, page Page, flags PageTableEntryFlag) error {
	pte := pteForAddress(space.rootFrame, page.Address())
	if pte == nil || !pte.HasFlags(FlagPresent) {
		return errors.ErrMappingConflict
	}

	frame := pte.Frame()
	*pte = 0
	pte.SetFrame(frame)
	pte.SetFlags(leafAttrsForFlags(flags))
	flushTLBEntryFn(space, page.Address())
	return nil
}

// tempMappingAddr is a fixed kernel virtual address reserved for short-lived
// mappings made by MapTemporary to fill or copy a frame's contents.
const tempMappingAddr = mem.KernelVirtBase + 32*uintptr(mem.Mb)
