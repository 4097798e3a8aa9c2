package sched

import "github.com/byoboo/tiny-os-sub000/kernel/sync"

// readyQueues holds one intrusive FIFO linked list per priority level,
// guarded by a single lock shared across all priorities — §5 accepts this
// as the scheduler's one point of contention at this stage.
type readyQueues struct {
	lock  sync.Spinlock
	heads [NumPriorities]*PCB
	tails [NumPriorities]*PCB
}

func (q *readyQueues) push(p *PCB) {
	q.lock.Acquire()
	defer q.lock.Release()

	p.next = nil
	prio := p.Priority
	if q.tails[prio] == nil {
		q.heads[prio] = p
	} else {
		q.tails[prio].next = p
	}
	q.tails[prio] = p
}

// popHighest removes and returns the PCB at the head of the highest
// non-empty priority queue, or nil if every queue is empty.
func (q *readyQueues) popHighest() *PCB {
	q.lock.Acquire()
	defer q.lock.Release()

	for prio := 0; prio < NumPriorities; prio++ {
		if head := q.heads[prio]; head != nil {
			q.heads[prio] = head.next
			if q.heads[prio] == nil {
				q.tails[prio] = nil
			}
			head.next = nil
			return head
		}
	}
	return nil
}

// higherPriorityPending reports whether some ready queue strictly above
// prio (a lower numeric value) holds a waiting PCB, used by Tick to decide
// whether the running process must be preempted this tick even though its
// own quantum has not yet expired (§8 Property 9's one-tick preemption
// latency bound).
func (q *readyQueues) higherPriorityPending(prio uint8) bool {
	q.lock.Acquire()
	defer q.lock.Release()

	for p := 0; p < int(prio); p++ {
		if q.heads[p] != nil {
			return true
		}
	}
	return false
}

// empty reports whether every priority queue is empty, used only by tests.
func (q *readyQueues) empty() bool {
	q.lock.Acquire()
	defer q.lock.Release()

	for i := range q.heads {
		if q.heads[i] != nil {
			return false
		}
	}
	return true
}
