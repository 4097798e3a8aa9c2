package vmm

import (
	"github.com/byoboo/tiny-os-sub000/kernel/cpu"
	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/irq"
	"github.com/byoboo/tiny-os-sub000/kernel/kfmt"
)

// CurrentAddressSpace is overridden by the scheduler once it exists, so the
// fault handler can resolve "which process faulted" without this package
// importing kernel/sched. Defaults to KernelSpace, which is correct for any
// fault taken before the scheduler installs its own hook.
var CurrentAddressSpace = func() *AddressSpace { return KernelSpace }

// TerminateContext is overridden by the scheduler to kill the faulting
// process with the given reason (e.g. "StackOverflow") rather than halting
// the whole core. Defaults to a fatal halt, appropriate while no scheduler
// is running yet.
var TerminateContext = defaultTerminate

// CurrentTick is overridden by the scheduler to report the running tick
// counter, consulted by the growth-fault path when touching pages.
var CurrentTick = func() uint64 { return 0 }

// RegisterFaultHandlers wires this package's page fault handler into the
// exception dispatcher for both data- and instruction-abort classes, at
// both "same EL" (kernel) and "lower EL" (user) origins.
func RegisterFaultHandlers() {
	irq.HandleException(irq.ECDataAbortLo, handleAbort)
	irq.HandleException(irq.ECDataAbortSame, handleAbort)
	irq.HandleException(irq.ECInstrAbortLo, handleAbort)
	irq.HandleException(irq.ECInstrAbortSame, handleAbort)
}

// handleAbort implements §4.4's page fault handler: classify the fault
// status, then walk the branches in priority order — lazy region,
// copy-on-write permission fault, stack growth zone, guard page, and
// finally an unrecoverable access that terminates the owning context.
func handleAbort(esr irq.ESR, frame *irq.Frame, regs *irq.Regs) {
	addr := uintptr(frame.FAR)
	isWrite := esr.WnR()
	space := CurrentAddressSpace()

	if err := pageFault(space, addr, isWrite); err != nil {
		TerminateContext(err.Error())
	}
}

// pageFault is the branch dispatcher proper, factored out of handleAbort so
// tests can drive it directly without constructing an irq.Frame.
func pageFault(space *AddressSpace, addr uintptr, isWrite bool) error {
	page := PageFromAddress(addr)
	pte := pteForAddress(space.rootFrame, page.Address())

	// Branch 3/4: a write fault against an existing CoW mapping.
	if pte != nil && pte.HasFlags(FlagPresent) && pte.HasFlags(FlagCopyOnWrite) && isWrite {
		return cowFault(space, page, pte, frameAllocator)
	}

	// Branch 2: the fault lands inside a declared lazy region and no
	// mapping exists yet.
	if pte == nil || !pte.HasFlags(FlagPresent) {
		if region := space.lazyRegionFor(addr); region != nil {
			return lazyFault(space, region, page, isWrite, frameAllocator)
		}
	}

	// Branch 5/6: the fault lands within a stack's footprint — either a
	// growable access below the committed base, the guard page itself,
	// or past the configured maximum.
	if stack := space.stackRegionFor(addr); stack != nil {
		if stack.Contains(addr) {
			// Already committed; a present-but-faulting access here is
			// some other permission problem, not a growth case.
			return errUnhandledFault
		}
		return growthFault(space, stack, addr, CurrentTick(), frameAllocator)
	}

	// Branch 6: no declared region claims this address.
	return errUnhandledFault
}

var errUnhandledFault = errors.KernelError("access outside any mapped, lazy, or stack region")

func defaultTerminate(reason string) {
	kfmt.Printf("\nunrecoverable page fault: %s\n", reason)
	for {
		cpu.Halt()
	}
}
