package sched

// switchRegisters performs the kernel-thread half of a context switch: save
// the callee-saved registers and stack pointer of the currently running
// PCB into prev, then restore the same from next and resume execution
// there. It is the low-level primitive under contextSwitch's four-step
// procedure — the caller-saved registers and any EL0 state a process was
// carrying are already resident in prev/next.Regs by the time this runs,
// captured by the exception trampoline (kernel/irq) at the syscall or
// interrupt boundary that invoked the scheduler in the first place.
//
// Declared here; its body is the arch-specific assembly in
// context_arm64.s.
func switchRegisters(prev, next *RegisterFile, prevSP *uintptr, nextSP uintptr)
