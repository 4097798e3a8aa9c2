package sched

import "github.com/byoboo/tiny-os-sub000/kernel/sync"

// TimedOut is the wake code for a wait that ended by deadline expiry rather
// than by whatever it was waiting for. No function in this package returns
// or stores it: Block returns nothing, and Tick makes expired PCBs Ready
// without marking them.
const TimedOut = 1

// deltaQueue orders blocked PCBs by absolute deadline in a simple sorted
// singly-linked list: cheap to service (O(1) peek/pop of the earliest
// deadline) at the ready-queue's scale, and simple enough to hand-verify
// without a compiler.
type deltaQueue struct {
	lock sync.Spinlock
	head *PCB
}

// arm inserts p into the queue ordered by its deadline field (already set
// by the caller), linking through the same `next` field the ready queues
// use — a blocked PCB is on at most one of the two lists at a time.
func (q *deltaQueue) arm(p *PCB) {
	q.lock.Acquire()
	defer q.lock.Release()

	p.hasDeadline = true
	p.next = nil

	if q.head == nil || p.deadline < q.head.deadline {
		p.next = q.head
		q.head = p
		return
	}
	prev := q.head
	for prev.next != nil && prev.next.deadline <= p.deadline {
		prev = prev.next
	}
	p.next = prev.next
	prev.next = p
}

// disarm removes p from the queue before its deadline fires, used when the
// wait primitive it belongs to is satisfied by its normal wake condition
// first.
func (q *deltaQueue) disarm(p *PCB) {
	q.lock.Acquire()
	defer q.lock.Release()

	if !p.hasDeadline {
		return
	}
	p.hasDeadline = false

	if q.head == p {
		q.head = p.next
		p.next = nil
		return
	}
	for prev := q.head; prev != nil; prev = prev.next {
		if prev.next == p {
			prev.next = p.next
			p.next = nil
			return
		}
	}
}

// expire pops every PCB whose deadline is at or before now, returning them
// for the scheduler to mark Ready. Called once per timer tick.
func (q *deltaQueue) expire(now uint64) []*PCB {
	q.lock.Acquire()
	defer q.lock.Release()

	var expired []*PCB
	for q.head != nil && q.head.deadline <= now {
		p := q.head
		q.head = p.next
		p.next = nil
		p.hasDeadline = false
		expired = append(expired, p)
	}
	return expired
}
