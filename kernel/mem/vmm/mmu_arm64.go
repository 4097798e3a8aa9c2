package vmm

import "github.com/byoboo/tiny-os-sub000/kernel/cpu"

// MAIR_EL1 attribute indices. Index 0 backs every normal cacheable mapping
// (MairNormalIdx in pte_arm64.go); index 1 backs MMIO/device mappings
// (MairDeviceIdx). A third, non-cacheable normal index is carried per the
// spec's "at least three indices" requirement even though no leaf currently
// requests it, for DMA buffers a future driver would need.
const (
	mairAttrDevicenGnRnE      = uint64(0x00)
	mairAttrNormalNonCache    = uint64(0x44)
	mairAttrNormalWriteBack   = uint64(0xff)
	mairIdxNormalWriteBack    = 0
	mairIdxDevicenGnRnE       = 1
	mairIdxNormalNonCacheable = 2
)

// mairValue packs the three attribute encodings into MAIR_EL1's 8
// bits-per-index layout.
func mairValue() uint64 {
	return mairAttrNormalWriteBack<<(8*mairIdxNormalWriteBack) |
		mairAttrDevicenGnRnE<<(8*mairIdxDevicenGnRnE) |
		mairAttrNormalNonCache<<(8*mairIdxNormalNonCacheable)
}

// TCR_EL1 field layout (ARMv8-A VMSAv8-64, 4KiB granule, two-range
// translation).
const (
	tcrT0SZShift  = 0
	tcrIRGN0Shift = 8
	tcrORGN0Shift = 10
	tcrSH0Shift   = 12
	tcrTG0Shift   = 14
	tcrT1SZShift  = 16
	tcrIRGN1Shift = 24
	tcrORGN1Shift = 26
	tcrSH1Shift   = 28
	tcrTG1Shift   = 30
	tcrIPSShift   = 32

	tcrRGNWriteBackRA = uint64(1) // IRGN/ORGN: Write-Back, Read-Allocate
	tcrSHInner        = uint64(3)
	tcrTG04KiB        = uint64(0) // TG0: 00 = 4KiB
	tcrTG14KiB        = uint64(2) // TG1: 10 = 4KiB (different encoding than TG0)

	// vaSizeBits is the address width both TTBR0 and TTBR1 cover; T0SZ/T1SZ
	// are each 64-vaSizeBits per the spec's "T0SZ=T1SZ=16" instruction.
	vaSizeBits = 48
	tcrTxSZ    = uint64(64 - vaSizeBits)
)

// ipsEncoding maps a detected physical address size in bits to the IPS
// field's 3-bit encoding.
func ipsEncoding(paBits uint) uint64 {
	switch {
	case paBits >= 48:
		return 0b101
	case paBits >= 44:
		return 0b100
	case paBits >= 42:
		return 0b011
	case paBits >= 40:
		return 0b010
	case paBits >= 36:
		return 0b001
	default:
		return 0b000 // 32-bit PA
	}
}

func tcrValue(paBits uint) uint64 {
	return tcrTxSZ<<tcrT0SZShift |
		tcrTxSZ<<tcrT1SZShift |
		tcrTG04KiB<<tcrTG0Shift |
		tcrTG14KiB<<tcrTG1Shift |
		tcrRGNWriteBackRA<<tcrIRGN0Shift |
		tcrRGNWriteBackRA<<tcrORGN0Shift |
		tcrRGNWriteBackRA<<tcrIRGN1Shift |
		tcrRGNWriteBackRA<<tcrORGN1Shift |
		tcrSHInner<<tcrSH0Shift |
		tcrSHInner<<tcrSH1Shift |
		ipsEncoding(paBits)<<tcrIPSShift
}

// EnableMMU runs §4.3's MMU bring-up sequence: program MAIR_EL1 and
// TCR_EL1, install the kernel and (initially identical) user root tables
// into TTBR1_EL1/TTBR0_EL1, and only then flip SCTLR_EL1.M. Every step
// before the final EnableMMU call must avoid touching any address whose
// caching behaviour depends on the mappings being activated — the whole
// sequence runs from the identity-mapped boot image, never from a location
// the new tables themselves describe differently.
func EnableMMU(kernelRoot, userRoot uintptr, paBits uint) {
	cpu.WriteMAIR(mairValue())
	cpu.WriteTCR(tcrValue(paBits))
	cpu.WriteTTBR1(kernelRoot)
	cpu.WriteTTBR0(userRoot, 0)
	cpu.DSB()
	cpu.ISB()
	cpu.EnableMMU()
}
