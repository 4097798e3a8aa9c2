package irq

import "github.com/byoboo/tiny-os-sub000/kernel/cpu"

// init registers the lazy FP/SIMD enable handler for ECTrapFPSIMD, mirroring
// kernel/deferred/compact.go's self-registration via init rather than an
// explicit Register call: unlike vmm's fault handlers, this wiring needs
// nothing from outside this package.
func init() {
	HandleException(ECTrapFPSIMD, handleFPSIMDTrap)
}

// handleFPSIMDTrap implements §4.1's dispatch_sync classification for EC
// 0b000111: the first FP/SIMD instruction after boot (or after a context
// switch that left CPACR_EL1.FPEN trapping) takes this exception instead of
// eagerly saving/restoring V0-V31 on every switch. Enabling access here and
// returning lets the faulting instruction re-execute via ERET, exactly as if
// FP/SIMD had been enabled all along.
func handleFPSIMDTrap(esr ESR, frame *Frame, regs *Regs) {
	cpu.EnableFPSIMD()
}
