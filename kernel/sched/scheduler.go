package sched

import (
	"github.com/byoboo/tiny-os-sub000/kernel/cpu"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/vmm"
	"github.com/byoboo/tiny-os-sub000/kernel/sync"
)

// Scheduler is the single-core dispatcher: one set of priority ready queues,
// one ASID allocator, one timeout delta-queue, and the currently running
// PCB. There is exactly one instance, Global, initialized by Init.
type Scheduler struct {
	ready   readyQueues
	asids   *asidAllocator
	timeout deltaQueue

	running *PCB
	idle    *PCB
	tick    uint64

	nextID uint64
}

// Global is the scheduler instance wired into kernel/mem/vmm's fault hooks
// and kernel/sync's lock hooks once Init runs. Nil beforehand; every
// subsystem that runs before Init (the boot path's own page faults, for
// instance) is served by vmm's package-level defaults instead.
var Global *Scheduler

// Init constructs the scheduler, installs an idle PCB running in
// KernelSpace, and wires this package into kernel/sync's yield/boost hooks
// and kernel/mem/vmm's fault-handling hooks. Called once from the boot path
// after the MMU and interrupt controller are live.
func Init() *Scheduler {
	s := &Scheduler{asids: newASIDAllocator(), nextID: 1}

	s.idle = &PCB{ID: 0, State: Running, Priority: NumPriorities - 1, Space: vmm.KernelSpace}
	s.running = s.idle

	sync.SetYieldFn(s.Yield)
	sync.SetBoostFn(s.boost)

	vmm.CurrentAddressSpace = func() *vmm.AddressSpace {
		return s.running.Space
	}
	vmm.TerminateContext = func(reason string) {
		s.terminateRunning(reason)
	}
	vmm.CurrentTick = func() uint64 { return s.tick }

	Global = s
	return s
}

// Spawn allocates a PCB bound to space, ready to run at prio, and enqueues
// it. The caller supplies an already-populated register file (the entry
// point in ELREL1, initial SP in SPEL0, and so on).
func (s *Scheduler) Spawn(space *vmm.AddressSpace, prio uint8, regs RegisterFile) *PCB {
	id := s.nextID
	s.nextID++

	p := &PCB{
		ID:       id,
		State:    Ready,
		Priority: prio,
		Space:    space,
		Regs:     regs,
	}
	p.asid, p.asidGen = s.asids.allocate()
	s.ready.push(p)
	return p
}

// Exit tears p down: marks it a zombie, releases its ASID, and removes it
// from scheduling consideration. The caller is responsible for reclaiming
// p.Space separately (address space teardown is outside the scheduler's
// remit).
func (s *Scheduler) Exit(p *PCB) {
	p.State = Zombie
	s.asids.release(p.asid)
}

// terminateRunning implements the kill side of the cancellation protocol
// for a process that just faulted fatally: mark it pending-kill and force
// an immediate reschedule rather than returning to its faulting context.
func (s *Scheduler) terminateRunning(reason string) {
	s.running.MarkKillPending()
	s.reapIfKilled(s.running)
	s.Dispatch()
}

// reapIfKilled exits p if it has been marked for termination, the single
// routing point every observable scheduling event (quantum expiry, a
// syscall return, a fault) checks before resuming or switching away from a
// PCB, per §5's two-step cancellation protocol.
func (s *Scheduler) reapIfKilled(p *PCB) {
	if p.KillPending() && p.State != Zombie {
		s.Exit(p)
	}
}

// stackShrinkPeriodTicks throttles how often Tick applies the stack shrink
// policy: the policy only ever reclaims pages idle for stackIdleTicks or
// more, so scanning every single tick would just repeat the same no-op scan.
const stackShrinkPeriodTicks = 64

// stackIdleTicks is the idleTicks argument to vmm.ShrinkStacks: a committed
// stack page not touched in this many ticks is eligible for reclaim.
const stackIdleTicks = 256

// Tick advances the scheduler's notion of time by one timer interrupt:
// expires any deadlines due, decrements the running process's quantum, and
// dispatches a new process if the quantum is spent or the running process
// has been reaped.
func (s *Scheduler) Tick() {
	s.tick++

	if s.running != s.idle && s.tick%stackShrinkPeriodTicks == 0 {
		// Best-effort reclaim: a failure here (e.g. corrupt page table
		// state) is no worse than not having shrunk this tick, so it is
		// not escalated to a fault.
		_ = vmm.ShrinkStacks(s.running.Space, s.tick, stackIdleTicks, uintptr(s.running.Regs.SPEL0))
	}

	for _, p := range s.timeout.expire(s.tick) {
		p.State = Ready
		s.ready.push(p)
	}

	if s.running.quantumLeft > 0 {
		s.running.quantumLeft--
	}

	if s.running.KillPending() {
		s.reapIfKilled(s.running)
		s.Dispatch()
		return
	}

	if s.running.quantumLeft == 0 && s.running != s.idle {
		s.running.State = Ready
		s.ready.push(s.running)
		s.Dispatch()
		return
	}

	// A process became Ready since the last dispatch that outranks the
	// one currently running — strictly higher priority for a real
	// process, or anything at all when the idle process is running —
	// e.g. woken by the timeout expiry above, or by an interrupt handler
	// elsewhere on this same tick. Preempt immediately rather than
	// waiting for the running process's quantum to expire, per Property
	// 9's one-tick preemption latency bound.
	threshold := s.running.Priority
	if s.running == s.idle {
		threshold = NumPriorities
	}
	if s.ready.higherPriorityPending(threshold) {
		if s.running != s.idle {
			s.running.State = Ready
			s.ready.push(s.running)
		}
		s.Dispatch()
	}
}

// Yield voluntarily gives up the remainder of the running process's
// quantum, used both as a direct syscall and as sync.yieldFn, invoked by a
// spinning lock waiter.
func (s *Scheduler) Yield() {
	if s.running == s.idle {
		return
	}
	s.running.State = Ready
	s.ready.push(s.running)
	s.Dispatch()
}

// Block removes the running process from contention (it has parked itself
// on some wait primitive outside this package's view) and, if deadlineTicks
// is non-zero, arms a timeout that will return it to Ready regardless. It
// then dispatches a new process. Block returns no value, and the PCB keeps
// no record of whether it was made Ready by its deadline or by Wake.
func (s *Scheduler) Block(deadlineTicks uint64) {
	p := s.running
	p.State = Blocked
	if deadlineTicks > 0 {
		p.deadline = s.tick + deadlineTicks
		s.timeout.arm(p)
	}
	s.Dispatch()
}

// Wake returns a Blocked PCB to Ready, disarming any pending timeout. A
// no-op if p is not Blocked (it may already have been woken by its
// deadline).
func (s *Scheduler) Wake(p *PCB) {
	if p.State != Blocked {
		return
	}
	s.timeout.disarm(p)
	p.State = Ready
	s.ready.push(p)
}

// boost is sync's priority-inheritance hook: temporarily raise the running
// process's effective priority so it releases a contended lock sooner. The
// quantum table lookup always reflects the live Priority field, so this
// takes effect on the PCB's very next dispatch.
func (s *Scheduler) boost(prio uint8) {
	if s.running != s.idle && prio < s.running.Priority {
		s.running.Priority = prio
	}
}

// Dispatch picks the next PCB to run — the highest-priority ready process,
// or the idle PCB if none is ready — and context switches into it. If that
// PCB is the one already running, Dispatch returns at once; otherwise
// execution continues in the new PCB's saved context.
func (s *Scheduler) Dispatch() {
	next := s.ready.popHighest()
	if next == nil {
		next = s.idle
	}

	prev := s.running
	next.State = Running
	next.quantumLeft = quantumFor(next.Priority)
	s.asids.ensureCurrent(next)
	s.running = next

	if prev != next && prev != s.idle {
		vmm.TouchStack(prev.Space, uintptr(prev.Regs.SPEL0), s.tick)
	}
	contextSwitch(prev, next)
}

// writeTTBR0Fn and doSwitchRegisters are indirected through package vars so
// hosted tests can exercise Dispatch's bookkeeping (ready-queue transitions,
// ASID reassignment, quantum resets) without the real MMU/register-switch
// primitives, which only run on actual AArch64 hardware.
var (
	writeTTBR0Fn      = cpu.WriteTTBR0
	syncBarrierFn     = func() { cpu.DSBISH(); cpu.ISB() }
	doSwitchRegisters = switchRegisters
)

// contextSwitch saves prev's register file, installs next's address space
// and ASID, and restores next's register file, per §4.8's four-step
// procedure.
func contextSwitch(prev, next *PCB) {
	if prev == next {
		return
	}
	writeTTBR0Fn(next.Space.RootFrame().Address(), next.asid)
	syncBarrierFn()
	doSwitchRegisters(&prev.Regs, &next.Regs, &prev.KernelSP, next.KernelSP)
}
