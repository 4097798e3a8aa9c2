// Package boot implements boot_entry(), §4.1's single entry point into Go
// code: initialise every core subsystem in dependency order (physical
// allocator, page tables, MMU, interrupt controller, scheduler) and enter
// the idle loop. Grounded on the teacher's kmain package, which plays the
// identical role for the x86/multiboot target — this package keeps its
// "one noinline Go symbol called from the assembly stub, never returns"
// shape while replacing every multiboot-era subsystem with its AArch64
// equivalent.
package boot

import (
	"github.com/byoboo/tiny-os-sub000/kernel"
	"github.com/byoboo/tiny-os-sub000/kernel/cpu"
	_ "github.com/byoboo/tiny-os-sub000/kernel/goruntime" // wires the Go allocator's sysReserve/sysMap/sysAlloc via linkname
	"github.com/byoboo/tiny-os-sub000/kernel/hal"
	"github.com/byoboo/tiny-os-sub000/kernel/hal/dtb"
	"github.com/byoboo/tiny-os-sub000/kernel/hal/gic"
	"github.com/byoboo/tiny-os-sub000/kernel/hal/timer"
	"github.com/byoboo/tiny-os-sub000/kernel/irq"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/vmm"
	"github.com/byoboo/tiny-os-sub000/kernel/sched"
)

// Platform-specific MMIO bases. The Pi 4/5's GICv2 distributor/CPU-interface
// and UART bases are used by default; Entry selects the Pi 3 legacy
// controller instead only when platformIsLegacy reports true. The device
// tree's compatible string is not parsed here (peripheral matter this core
// excludes), so platformIsLegacy is a boot-time override point rather than
// a real FDT walk.
const (
	uartBase      = 0xFE201000
	gicDistBase   = 0xFF841000
	gicCPUBase    = 0xFF842000
	legacyICBase  = 0x40000000
	physPoolStart = 0x0050_0000
	physPoolEnd   = 0x3000_0000 // 763MiB pool, within the 1GiB compile-time bitmap cap
)

// platformIsLegacy selects the Pi 3 BCM2835 local interrupt controller
// instead of GICv2. It always reports false; nothing derives it from the
// device tree's root compatible string.
var platformIsLegacy = func() bool { return false }

var physAllocator pmm.Allocator

var errKmainReturned = &kernel.Error{Module: "boot", Message: "boot_entry returned"}

// Entry is the only Go symbol visible to the assembly stub. x0 at entry
// carries the device-tree-blob pointer, per §4.1's boot_entry(dtb_ptr)
// contract. Never returns: either it reaches the idle loop, which itself
// never returns, or an unrecoverable init failure routes through
// kernel.Panic.
//
//go:noinline
func Entry(dtbPtr uintptr) {
	dtb.SetInfoPtr(dtbPtr)
	hal.InitConsole(uartBase)

	if err := physAllocator.Init(physPoolStart, physPoolEnd); err != nil {
		kernel.Panic(err)
	}
	vmm.SetFrameAllocator(physAllocator.AllocFrame)

	kernelRoot, err := physAllocator.AllocFrame()
	if err != nil {
		kernel.Panic(err)
	}
	if err := vmm.Init(kernelRoot); err != nil {
		kernel.Panic(err)
	}
	vmm.RegisterFaultHandlers()

	paBits := uint(40) // BCM2711/2712 implement a 40-bit physical address space
	vmm.EnableMMU(kernelRoot.Address(), kernelRoot.Address(), paBits)

	irq.InstallVectors()

	if platformIsLegacy() {
		gic.Active = gic.NewLegacy(legacyICBase)
	} else {
		gic.Active = gic.NewV2(gicDistBase, gicCPUBase)
	}

	timer.Init()

	s := sched.Init()
	irq.HandleIRQ(timerIRQID, func(uint32) {
		s.Tick()
		timer.SetNext(schedulerTickMicros)
	})
	gic.Active.Enable(timerIRQID)
	gic.Active.SetPriority(timerIRQID, 0)
	gic.Active.SetTarget(timerIRQID, 1)
	timer.SetNext(schedulerTickMicros)

	cpu.EnableInterrupts()

	irq.EnterKernel()
	idleLoop()

	kernel.Panic(errKmainReturned)
}

// timerIRQID is the GIC interrupt ID wired to the ARM generic physical
// timer (PPI 30). Neither backend's constructor touches it; Entry enables
// it, sets its priority and targets it on whichever controller is active.
const timerIRQID = 30

// schedulerTickMicros is the tick period the scheduler reprograms on every
// timer IRQ, matching the quantum table's 1-8 tick granularity at a
// millisecond-scale tick.
const schedulerTickMicros = 1000

// idleLoop parks the core via cpu.Halt (WFI) between interrupts, the state
// boot_entry hands off to once every subsystem is live. Scheduler
// preemption and fault handling run entirely from interrupt/exception
// context from this point on.
func idleLoop() {
	for {
		cpu.Halt()
	}
}
