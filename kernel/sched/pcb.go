// Package sched implements the single-core preemptive scheduler of §4.8: a
// priority-queue dispatcher over per-process control blocks, ASID
// management (§4.9) and the timeout delta-queue referenced by §5's
// cancellation model.
//
// Grounded on the teacher's absence of a scheduler (gopher-os never grew
// past its memory-management milestones) combined with the teacher's
// spinlock/yield-hook wiring (kernel/sync) and register-frame idiom
// (kernel/irq.Regs); the PCB/queue/dispatch shape itself follows the
// spec's §4.8 contract directly.
package sched

import "github.com/byoboo/tiny-os-sub000/kernel/mem/vmm"

// State names where a PCB sits in the process lifecycle.
type State uint8

const (
	Ready State = iota
	Running
	Blocked
	Zombie
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Zombie:
		return "zombie"
	default:
		return "unknown"
	}
}

// NumPriorities is the number of ready-queue priority levels, 0 (highest)
// through 7 (lowest).
const NumPriorities = 8

// RegisterFile is the saved CPU context restored on dispatch: the 31 GPRs
// plus the AArch64-specific registers a context switch must preserve beyond
// what a synchronous exception frame already captures.
type RegisterFile struct {
	X       [31]uint64
	SPEL0   uint64
	ELREL1  uint64
	SPSREL1 uint64
	TPIDR   uint64
}

// PCB is a process control block: the scheduler's unit of dispatch.
type PCB struct {
	ID       uint64
	State    State
	Priority uint8 // 0 (highest) .. 7 (lowest)

	Space    *vmm.AddressSpace
	KernelSP uintptr
	Regs     RegisterFile

	quantumLeft uint32
	asid        uint16
	asidGen     uint32

	killPending bool
	deadline    uint64 // valid only while Blocked with a timeout
	hasDeadline bool

	next *PCB // intrusive ready-queue / delta-queue link
}

// KillPending reports whether this PCB has been marked for termination.
func (p *PCB) KillPending() bool { return p.killPending }

// MarkKillPending implements the two-step cancellation protocol's first
// step: set the flag; the scheduler routes the PCB to exit at its next
// observable scheduling point.
func (p *PCB) MarkKillPending() { p.killPending = true }
