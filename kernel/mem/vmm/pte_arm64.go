package vmm

import "github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"

// pageTableEntry models a single AArch64 4KiB-granule table/page descriptor
// (ARMv8-A, VMSAv8-64). Generalized from the teacher's x86 PDE/PTE, which
// packed its flags into the low 12 bits of a single machine word: AArch64
// spreads its attribute bits across both a low block (bits 11:2) and a high
// block (bits 63:52), with the output address occupying bits 47:12. The
// public SetFlags/HasFlags/ClearFlags/SetFrame/Frame surface mirrors the
// teacher's pageTableEntry exactly so page.go/map.go/translate.go read the
// same way; only the bit positions captured in PageTableEntryFlag differ.
type pageTableEntry uint64

// PageTableEntryFlag describes the bits of a page table entry.
type PageTableEntryFlag uint64

const (
	// FlagPresent marks the entry valid (bit 0 of every descriptor level).
	FlagPresent = PageTableEntryFlag(1 << 0)

	// FlagTable marks a level 0-2 descriptor as pointing to a next-level
	// table rather than a block. Always set for level 3 entries (there a
	// clear bit 1 would mean "reserved", not "block").
	FlagTable = PageTableEntryFlag(1 << 1)

	// FlagRW is a request-time flag consumed by leafAttrsForFlags; it has
	// no fixed hardware bit of its own because AArch64's AP[2] is
	// inverted (set means read-only) and must be translated, not copied,
	// into the raw descriptor. Chosen from the bits ARMv8-A leaves
	// entirely to software (58:55).
	FlagRW = PageTableEntryFlag(1 << 55)

	// FlagUserAccess maps to AP[1]; when set the page is accessible at
	// EL0, mirroring the teacher's FlagPresent/user-bit split.
	FlagUserAccess = PageTableEntryFlag(1 << 6)

	// FlagNoExecute maps to UXN (bit 54): execute-never at EL0.
	FlagNoExecute = PageTableEntryFlag(1 << 54)

	// FlagKernelNoExecute maps to PXN (bit 53): execute-never at EL1.
	FlagKernelNoExecute = PageTableEntryFlag(1 << 53)

	// FlagAccessed mirrors the hardware Access Flag (bit 10). The core
	// sets it eagerly at map time rather than relying on an AF fault,
	// since this kernel never enables hardware AF management.
	FlagAccessed = PageTableEntryFlag(1 << 10)

	// FlagNonGlobal marks a TLB entry as ASID-tagged (bit 11). Set on
	// every user mapping; clear on the always-global kernel half.
	FlagNonGlobal = PageTableEntryFlag(1 << 11)

	// FlagCopyOnWrite is a software-defined bit (58, part of the
	// ignored/software-use range) flagging a PTE that references a
	// CowFrame. It carries no hardware meaning; the fault handler
	// consults it directly instead of re-deriving COW state from AP.
	FlagCopyOnWrite = PageTableEntryFlag(1 << 58)

	// attrIndexShift/attrIndexMask select the MAIR_EL1 index (bits 4:2)
	// a leaf entry's memory type is drawn from.
	attrIndexShift = 2
	attrIndexMask  = PageTableEntryFlag(0x7 << attrIndexShift)

	// innerShareable sets SH[1:0] = 0b11, required for cacheable
	// normal-memory mappings shared across cores.
	flagInnerShareable = PageTableEntryFlag(0x3 << 8)

	frameAddrMask = uint64(0x0000FFFFFFFFF000)

	// apReadOnly is AP[2] (bit 7): set by hardware convention means the
	// mapping is read-only. Named separately from FlagRW because the two
	// are inverses of each other, not the same bit under two names.
	apReadOnly = PageTableEntryFlag(1 << 7)
)

// MairNormalIdx / MairDeviceIdx select MAIR_EL1 attribute indices; kept here
// rather than in the MMU bring-up file since every leaf PTE needs one.
const (
	MairNormalIdx = PageTableEntryFlag(0) << attrIndexShift
	MairDeviceIdx = PageTableEntryFlag(1) << attrIndexShift
)

// SetFlags sets the specified flags (leaving others unaffected).
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte |= pageTableEntry(flags)
}

// ClearFlags clears the specified flags (leaving others unaffected).
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte &^= pageTableEntry(flags)
}

// HasFlags returns true if all of the specified flags are set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (pte & pageTableEntry(flags)) == pageTableEntry(flags)
}

// HasAnyFlag returns true if at least one of the specified flags is set.
func (pte pageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return (pte & pageTableEntry(flags)) != 0
}

// SetFrame updates the output-address bits of the entry to point at frame.
func (pte *pageTableEntry) SetFrame(frame pmm.Frame) {
	*pte = (*pte &^ pageTableEntry(frameAddrMask)) | pageTableEntry(uint64(frame.Address())&frameAddrMask)
}

// Frame returns the physical frame this entry's output address points to.
func (pte pageTableEntry) Frame() pmm.Frame {
	return pmm.FrameFromAddress(uintptr(uint64(pte) & frameAddrMask))
}

// leafAttrsForFlags derives the low+high attribute bits a Map() request
// needs for a level-3 page descriptor from the caller-supplied
// PageTableEntryFlag set, inverting FlagRW's sense (hardware AP[2] is
// "read-only when set") and always marking the Access Flag since this core
// never takes an AF fault.
func leafAttrsForFlags(flags PageTableEntryFlag) pageTableEntry {
	var pte pageTableEntry
	pte.SetFlags(FlagPresent | FlagTable | FlagAccessed | flagInnerShareable)
	pte.SetFlags(MairNormalIdx)

	if flags.HasAnyFlag(FlagUserAccess) {
		pte.SetFlags(FlagUserAccess | FlagNonGlobal)
	}
	if !flags.HasAnyFlag(FlagRW) {
		pte.SetFlags(apReadOnly)
	}
	if flags.HasAnyFlag(FlagNoExecute) {
		pte.SetFlags(FlagNoExecute | FlagKernelNoExecute)
	}
	if flags.HasAnyFlag(FlagCopyOnWrite) {
		pte.SetFlags(FlagCopyOnWrite)
	}
	return pte
}
