// +build arm64

package mem

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uintptr)). The pointer
	// size for this architecture is defined as (1 << PointerShift).
	PointerShift = 3

	// VirtAddrBits is the number of significant bits in an AArch64
	// virtual address under a 4KiB translation granule with 4 paging
	// levels (TnSZ=16).
	VirtAddrBits = 48

	// KernelVirtBase is the first virtual address of the upper half of
	// the address space (bit 63 set), used for every kernel mapping.
	// TTBR1_EL1 roots translations for addresses at or above this value.
	KernelVirtBase = uintptr(0xFFFF_0000_0000_0000)
)
