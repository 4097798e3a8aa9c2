package vmm

import "github.com/byoboo/tiny-os-sub000/kernel/cpu"

// flushTLBEntry invalidates the TLB entry for virtAddr tagged with space's
// ASID. Kernel-space mappings (ASID 0, the boot identity map) use the
// all-ASID invalidation form since FlagNonGlobal is never set on them.
func flushTLBEntry(space *AddressSpace, virtAddr uintptr) {
	cpu.DSBISH()
	if space.asid == 0 {
		cpu.TLBIVMALLE1IS()
	} else {
		cpu.TLBIVAE1IS(virtAddr)
	}
	cpu.DSBISH()
	cpu.ISB()
}

// flushTLBForASID invalidates every TLB entry tagged with asid, used when an
// AddressSpace is destroyed and its ASID is recycled.
func flushTLBForASID(asid uint16) {
	cpu.DSBISH()
	cpu.TLBIASIDE1IS(asid)
	cpu.DSBISH()
	cpu.ISB()
}
