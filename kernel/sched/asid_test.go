package sched

import "testing"

// stubASIDHardware replaces the real AArch64 TLB/barrier primitives with
// no-ops and fixes the ASID width to 256 (the common Raspberry Pi
// configuration), returning a restore func.
func stubASIDHardware(t *testing.T) {
	t.Helper()
	prevRead, prevInv, prevDSB, prevISB := readASIDBitsFn, invalidateTLBFn, dsbishFn, isbFn
	readASIDBitsFn = func() bool { return false }
	invalidateTLBFn = func() {}
	dsbishFn = func() {}
	isbFn = func() {}
	t.Cleanup(func() {
		readASIDBitsFn, invalidateTLBFn, dsbishFn, isbFn = prevRead, prevInv, prevDSB, prevISB
	})
}

func TestASIDAllocateSkipsReservedZero(t *testing.T) {
	stubASIDHardware(t)
	a := newASIDAllocator()

	id, gen := a.allocate()
	if id == 0 {
		t.Fatalf("allocate() returned reserved ASID 0")
	}
	if gen != 1 {
		t.Fatalf("first generation should be 1, got %d", gen)
	}
}

func TestASIDReleaseThenAllocateRecycles(t *testing.T) {
	stubASIDHardware(t)
	a := newASIDAllocator()

	id, _ := a.allocate()
	a.release(id)

	next, _ := a.allocate()
	if next != id {
		t.Fatalf("expected recycled ASID %d, got %d", id, next)
	}
}

func TestASIDExhaustionBumpsGenerationAndFlushesTLB(t *testing.T) {
	stubASIDHardware(t)
	a := &asidAllocator{width: 4, next: 1, generation: 1} // tiny width to force exhaustion quickly

	var flushed, flushed2 bool
	invalidateTLBFn = func() { flushed = true }
	dsbishFn = func() { flushed2 = true }

	for i := 0; i < 3; i++ { // consume ASIDs 1, 2, 3 — next == width now
		if _, gen := a.allocate(); gen != 1 {
			t.Fatalf("expected generation 1 before exhaustion, got %d", gen)
		}
	}

	id, gen := a.allocate() // width reached: exhaustion protocol fires
	if gen != 2 {
		t.Fatalf("expected generation bumped to 2 on exhaustion, got %d", gen)
	}
	if id != 1 {
		t.Fatalf("expected first allocation of new generation to be ASID 1, got %d", id)
	}
	if !flushed || !flushed2 {
		t.Fatalf("expected exhaustion to invalidate the TLB and issue a barrier")
	}
}

func TestEnsureCurrentReassignsStalePCB(t *testing.T) {
	stubASIDHardware(t)
	a := newASIDAllocator()

	p := &PCB{}
	p.asid, p.asidGen = a.allocate()

	a.generation++ // simulate an exhaustion event the PCB hasn't observed yet
	a.ensureCurrent(p)

	if p.asidGen != a.generation {
		t.Fatalf("expected PCB reassigned to current generation %d, got %d", a.generation, p.asidGen)
	}
}

func TestEnsureCurrentNoopWhenGenerationCurrent(t *testing.T) {
	stubASIDHardware(t)
	a := newASIDAllocator()

	p := &PCB{}
	p.asid, p.asidGen = a.allocate()
	wantASID := p.asid

	a.ensureCurrent(p)

	if p.asid != wantASID {
		t.Fatalf("ensureCurrent reassigned an up-to-date PCB: got ASID %d, want %d", p.asid, wantASID)
	}
}
