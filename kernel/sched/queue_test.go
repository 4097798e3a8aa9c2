package sched

import "testing"

func TestReadyQueuesFIFOWithinPriority(t *testing.T) {
	var q readyQueues

	a := &PCB{ID: 1, Priority: 4}
	b := &PCB{ID: 2, Priority: 4}
	c := &PCB{ID: 3, Priority: 4}

	q.push(a)
	q.push(b)
	q.push(c)

	for _, want := range []*PCB{a, b, c} {
		if got := q.popHighest(); got != want {
			t.Fatalf("popHighest() = PCB %d, want PCB %d", got.ID, want.ID)
		}
	}
	if !q.empty() {
		t.Fatalf("expected queue empty after draining all pushed PCBs")
	}
}

func TestReadyQueuesHigherPriorityWinsOverFIFOOrder(t *testing.T) {
	var q readyQueues

	low := &PCB{ID: 1, Priority: 7}
	high := &PCB{ID: 2, Priority: 0}

	q.push(low) // pushed first but lower priority (higher numeric value)
	q.push(high)

	if got := q.popHighest(); got != high {
		t.Fatalf("popHighest() = PCB %d, want the priority-0 PCB", got.ID)
	}
	if got := q.popHighest(); got != low {
		t.Fatalf("popHighest() = PCB %d, want the priority-7 PCB", got.ID)
	}
}

func TestReadyQueuesPopHighestOnEmptyReturnsNil(t *testing.T) {
	var q readyQueues
	if got := q.popHighest(); got != nil {
		t.Fatalf("expected nil from an empty queue, got PCB %d", got.ID)
	}
}

func TestReadyQueuesPushAfterDrainResetsTail(t *testing.T) {
	var q readyQueues

	a := &PCB{ID: 1, Priority: 2}
	q.push(a)
	q.popHighest()

	b := &PCB{ID: 2, Priority: 2}
	q.push(b)

	if got := q.popHighest(); got != b {
		t.Fatalf("expected freshly pushed PCB after drain, got PCB %d", got.ID)
	}
}
