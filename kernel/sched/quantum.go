package sched

// quantumTicks[prio] is the number of timer ticks a process at priority
// prio runs before being requeued, per §4.8's "higher priority → shorter
// quantum" rule: priority 0 gets 1 tick, priority 7 gets 8.
var quantumTicks = [NumPriorities]uint32{1, 2, 3, 4, 5, 6, 7, 8}

func quantumFor(prio uint8) uint32 {
	if int(prio) >= NumPriorities {
		prio = NumPriorities - 1
	}
	return quantumTicks[prio]
}
