package irq

import (
	"github.com/byoboo/tiny-os-sub000/kernel/cpu"
	"github.com/byoboo/tiny-os-sub000/kernel/deferred"
	"github.com/byoboo/tiny-os-sub000/kernel/hal/gic"
	"github.com/byoboo/tiny-os-sub000/kernel/kfmt"
)

// SyncHandler handles a synchronous exception classified by ESR_EL1.EC.
type SyncHandler func(esr ESR, frame *Frame, regs *Regs)

// IRQHandler handles a hardware interrupt identified by its controller id.
type IRQHandler func(id uint32)

var (
	syncHandlers [64]SyncHandler // indexed by ESR.EC
	irqHandlers  = map[uint32]IRQHandler{}

	// panicFn is overridden by tests; automatically inlined by the
	// compiler in the kernel build.
	panicFn = defaultFatal
)

// HandleException registers handler to run whenever a synchronous
// exception with the given EC class is taken. Registering for the same
// class twice replaces the previous handler.
func HandleException(ec uint8, handler SyncHandler) {
	syncHandlers[ec&0x3f] = handler
}

// HandleIRQ registers handler to run whenever the interrupt controller
// reports id as the highest-priority pending source.
func HandleIRQ(id uint32, handler IRQHandler) {
	irqHandlers[id] = handler
}

// dispatchSync is invoked by the vector table entry stub for every
// synchronous exception taken at EL1. It classifies ESR_EL1.EC and routes
// to the registered handler, or treats the exception as fatal if none is
// registered — mirroring the teacher's installIDT default of a
// non-present gate.
func dispatchSync(frame *Frame, regs *Regs) {
	esr := ESR(frame.ESR)
	ec := esr.EC()

	if handler := syncHandlers[ec]; handler != nil {
		handler(esr, frame, regs)
		deferred.Drain()
		return
	}

	kfmt.Printf("\nunhandled synchronous exception, EC=%#02x ISS=%#x\n", ec, esr.ISS())
	panicFn(frame, regs)
}

// dispatchIRQ is invoked by the vector table entry stub for every IRQ
// taken at EL1, after ackPendingIRQ has already queried the controller and
// stashed the acknowledged id in lastAckedID. The controller-specific EOI
// call happens here, once the registered handler (if any) returns, keeping
// kernel/hal/gic free of any dispatch-table knowledge.
func dispatchIRQ() {
	id := lastAckedID

	prev := State()
	if !EnterIRQ() {
		// The per-CPU IRQ stack is sized for maxIRQNesting levels; a
		// deeper nesting means a handler is itself taking faults or the
		// controller is re-raising before EOI, either way unrecoverable.
		EnterFaulted()
		kfmt.Printf("\nIRQ nesting exceeded maxIRQNesting=%d\n", maxIRQNesting)
		for {
			halt()
		}
	}

	if handler := irqHandlers[id]; handler != nil {
		handler(id)
	} else {
		kfmt.Printf("\nunhandled IRQ id=%d\n", id)
	}

	if gic.Active != nil {
		gic.Active.EOI(id)
	}

	deferred.Drain()
	ExitIRQ(prev)
}

func defaultFatal(frame *Frame, regs *Regs) {
	EnterFaulted()
	kfmt.Printf("\nRegisters:\n")
	regs.Print()
	frame.Print()
	for {
		halt()
	}
}

// halt parks the core; overridden in tests to avoid looping forever.
var halt = defaultHalt

func defaultHalt() {
	cpu.Halt()
}
