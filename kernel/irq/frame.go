// Package irq implements the exception/interrupt core: the ESR_EL1
// syndrome decoder, the synchronous/IRQ dispatch classifiers and the
// per-CPU state machine, generalized from the teacher's x86 IDT-based
// handler (kernel/gate, kernel/irq) to AArch64's single-vector-table,
// syndrome-register model.
package irq

import "github.com/byoboo/tiny-os-sub000/kernel/kfmt"

// Regs is a snapshot of the 31 general purpose registers plus the thread
// pointer, saved by the vector table entry stub before dispatch.
type Regs struct {
	X     [31]uint64
	TPIDR uint64
}

// Print outputs a dump of the register values to the active console.
func (r *Regs) Print() {
	for i := 0; i < len(r.X); i += 2 {
		if i+1 < len(r.X) {
			kfmt.Printf("X%-2d = %16x  X%-2d = %16x\n", i, r.X[i], i+1, r.X[i+1])
		} else {
			kfmt.Printf("X%-2d = %16x\n", i, r.X[i])
		}
	}
	kfmt.Printf("TPIDR_EL0 = %16x\n", r.TPIDR)
}

// Frame describes the exception context captured in addition to the GPRs:
// the values an ERET needs to resume (or that a diagnostic dump reports).
type Frame struct {
	ELR  uint64 // return address
	SPSR uint64 // saved processor state
	ESR  uint64 // syndrome register at the time of the exception
	FAR  uint64 // fault address register
	SP   uint64 // stack pointer at exception entry
}

// Print outputs a dump of the exception frame to the active console.
func (f *Frame) Print() {
	kfmt.Printf("ELR  = %16x SPSR = %16x\n", f.ELR, f.SPSR)
	kfmt.Printf("ESR  = %16x FAR  = %16x\n", f.ESR, f.FAR)
	kfmt.Printf("SP   = %16x\n", f.SP)
}
