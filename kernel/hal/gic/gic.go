// Package gic implements the programming and runtime-handshake surface
// §4.10 requires of an interrupt controller. Two concrete backends satisfy
// the Controller interface: GICv2 (distributor + CPU interface MMIO, used
// on BCM2711/2712 — Pi 4/5) and the simpler BCM2835 "local/legacy"
// controller used on the Pi 3. Dispatch code in kernel/irq only ever talks
// to the Controller interface, so swapping backends never touches the
// classifier or scheduler.
package gic

// Controller is the minimal interrupt-controller contract the kernel core
// consumes. id 0 is reserved/invalid.
type Controller interface {
	Enable(id uint32)
	Disable(id uint32)
	SetPriority(id uint32, prio uint8)
	SetTarget(id uint32, cpuMask uint8)
	// Ack returns the highest-priority pending interrupt id and its
	// running priority, blocking the caller from observing a
	// lower-priority one until EOI.
	Ack() (id uint32, runningPriority uint8)
	EOI(id uint32)
	// MaskBelow raises the priority mask so only interrupts strictly
	// higher than prio can preempt; Unmask restores full priority range.
	MaskBelow(prio uint8)
	Unmask()
}

// Active is the controller instance selected for the running platform.
// boot_entry constructs it itself, choosing the GICv2 or legacy backend
// from a boot-time platform switch; the device tree's compatible string is
// not parsed by this core.
var Active Controller
