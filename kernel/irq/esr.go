package irq

// ESR wraps a raw ESR_EL1 value with typed accessors for the syndrome
// fields every handler needs. Generalizes the teacher's single numeric
// x86 "error code" (kernel/gate's Registers.Info) into AArch64's
// EC/IL/ISS-structured syndrome register.
type ESR uint64

// EC returns the 6-bit exception class (bits 31:26).
func (e ESR) EC() uint8 {
	return uint8((e >> 26) & 0x3f)
}

// IL returns the instruction-length bit (bit 25): set if the trapped
// instruction was 32 bits wide.
func (e ESR) IL() bool {
	return (e>>25)&1 == 1
}

// ISS returns the 25-bit instruction-specific syndrome (bits 24:0).
func (e ESR) ISS() uint32 {
	return uint32(e & 0x1ffffff)
}

// Exception classes dispatch_sync routes on, per the ESR_EL1.EC encoding.
const (
	ECUnknown        = 0b000000
	ECTrapFPSIMD     = 0b000111
	ECSVC64          = 0b010101
	ECInstrAbortLo   = 0b100000 // from a lower exception level
	ECInstrAbortSame = 0b100001 // from the same exception level
	ECDataAbortLo    = 0b100100
	ECDataAbortSame  = 0b100101
)

// DFSC returns the Data/Instruction Fault Status Code (ISS bits 5:0),
// valid for data- and instruction-abort exception classes.
func (e ESR) DFSC() uint8 {
	return uint8(e.ISS() & 0x3f)
}

// IFSC is an alias for DFSC; instruction aborts encode their fault status
// in the same ISS bit range as data aborts.
func (e ESR) IFSC() uint8 {
	return e.DFSC()
}

// WnR returns true if a data abort was caused by a write (ISS bit 6).
func (e ESR) WnR() bool {
	return (e.ISS()>>6)&1 == 1
}

// ISV returns true if the data abort's syndrome access-size/register
// fields (SAS/SRT) are valid (ISS bit 24).
func (e ESR) ISV() bool {
	return (e.ISS()>>24)&1 == 1
}

// SAS returns the syndrome access size (ISS bits 23:22): 0=byte, 1=half,
// 2=word, 3=doubleword. Only meaningful when ISV is true.
func (e ESR) SAS() uint8 {
	return uint8((e.ISS() >> 22) & 0x3)
}

// SRT returns the syndrome register transfer index (ISS bits 20:16): the
// GPR number involved in the faulting load/store. Only meaningful when
// ISV is true.
func (e ESR) SRT() uint8 {
	return uint8((e.ISS() >> 16) & 0x1f)
}

// SVCImmediate returns the 16-bit immediate encoded in an SVC instruction
// trap (ISS bits 15:0), valid for ECSVC64.
func (e ESR) SVCImmediate() uint16 {
	return uint16(e.ISS() & 0xffff)
}

// FaultStatusCode classifies the DFSC/IFSC field into the categories the
// memory fault handler must distinguish.
type FaultStatusCode uint8

const (
	FaultUnknown FaultStatusCode = iota
	FaultTranslation
	FaultAccessFlag
	FaultPermission
	FaultAlignment
	FaultSyncExternal
	FaultTLBConflict
	FaultImplDefined
)

// ClassifyFaultStatus maps a raw DFSC/IFSC value (as returned by
// ESR.DFSC/IFSC) to the category the fault handler branches on.
// Level-qualified codes (translation/access-flag/permission fault at
// L0..L3) collapse to a single category each; callers that need the
// faulting level can still recover it via fsc&0x3 for those classes.
func ClassifyFaultStatus(fsc uint8) FaultStatusCode {
	switch {
	case fsc&0x3c == 0x04: // 0b0001LL
		return FaultTranslation
	case fsc&0x3c == 0x08: // 0b0010LL
		return FaultAccessFlag
	case fsc&0x3c == 0x0c: // 0b0011LL
		return FaultPermission
	case fsc == 0x21:
		return FaultAlignment
	case fsc == 0x10:
		return FaultSyncExternal
	case fsc == 0x30:
		return FaultTLBConflict
	default:
		return FaultImplDefined
	}
}
