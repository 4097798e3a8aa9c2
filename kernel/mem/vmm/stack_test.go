package vmm

import (
	"testing"

	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
)

// newTestStack mirrors S4's configuration: base=0x7000_0000, size=16KiB,
// guard=4KiB, max=64KiB, growth_window=4KiB.
func newTestStack() *StackRegion {
	const (
		base        = uintptr(0x7000_0000)
		initialSize = uintptr(16 * mem.Kb)
		maxSize     = uintptr(64 * mem.Kb)
		guard       = uintptr(4 * mem.Kb)
		window      = uintptr(4 * mem.Kb)
	)
	return NewStackRegion(base+maxSize, initialSize, maxSize, guard, window, 0, FlagRW|FlagUserAccess)
}

func TestStackRegionGrowthWithinWindowSucceeds(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}
	stack := newTestStack()

	faultAddr := stack.CommittedBase - 3072 // S4: SP-3072, within the 4KiB window
	if err := growthFault(space, stack, faultAddr, 1, tm.allocFrame); err != nil {
		t.Fatalf("growthFault: %v", err)
	}
	if !stack.Contains(faultAddr) {
		t.Errorf("expected the committed range to now cover the faulting address")
	}

	pte := pteForAddress(space.rootFrame, PageFromAddress(faultAddr).Address())
	if pte == nil || !pte.HasFlags(FlagPresent) {
		t.Errorf("expected the grown page to be mapped")
	}
}

func TestStackRegionOverflowPastMaxTerminates(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}
	stack := newTestStack()

	// S4: an access at (base - max_size - 1), i.e. well past Base, must
	// terminate the owning context with a stack overflow.
	faultAddr := stack.Base - uintptr(64*mem.Kb) - 1
	err := growthFault(space, stack, faultAddr, 1, tm.allocFrame)
	if err != errors.ErrStackOverflow {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}
}

func TestStackRegionAccessOutsideWindowTerminates(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}
	stack := newTestStack()

	// Far enough below the committed base to fall outside growth_window
	// but still above Base: still a fault, never a silent grow.
	faultAddr := stack.CommittedBase - 2*uintptr(mem.PageSize) - stack.GrowthWindow
	if faultAddr < stack.Base {
		t.Fatal("test setup: faultAddr must stay above Base")
	}
	err := growthFault(space, stack, faultAddr, 1, tm.allocFrame)
	if err != errors.ErrStackOverflow {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}
}

func TestStackRegionGuardNeverGrows(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}
	stack := newTestStack()
	stack.CommittedBase = stack.Base // fully grown already

	faultAddr := stack.Base - 1 // one byte into the guard page
	if !stack.InGuard(faultAddr) {
		t.Fatal("test setup: expected faultAddr to land in the guard page")
	}
	if err := growthFault(space, stack, faultAddr, 1, tm.allocFrame); err != errors.ErrStackOverflow {
		t.Fatalf("expected ErrStackOverflow for a guard page access, got %v", err)
	}
}

func TestStackRegionShrinkReclaimsIdlePages(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}
	stack := newTestStack()

	faultAddr := stack.CommittedBase - 3072
	if err := growthFault(space, stack, faultAddr, 1, tm.allocFrame); err != nil {
		t.Fatalf("growthFault: %v", err)
	}
	grownBase := stack.CommittedBase

	spHint := stack.Top - uintptr(mem.PageSize) // current stack pointer stays near the top
	if err := shrink(space, stack, 1000, 100, spHint); err != nil {
		t.Fatalf("shrink: %v", err)
	}
	if stack.CommittedBase == grownBase {
		t.Errorf("expected shrink to reclaim the idle grown page")
	}

	if _, err := Translate(space, PageFromAddress(faultAddr).Address()); err == nil {
		t.Errorf("expected the reclaimed page to no longer translate")
	}
}

func TestTouchStackRecordsAccessAgainstRegisteredRegion(t *testing.T) {
	space := &AddressSpace{}
	stack := newTestStack()
	space.AddStackRegion(stack)

	addr := stack.CommittedBase
	TouchStack(space, addr, 42)

	if got := stack.lastTouchTick[PageFromAddress(addr)]; got != 42 {
		t.Errorf("expected TouchStack to record tick 42, got %d", got)
	}
}

func TestTouchStackOutsideAnyRegionIsNoop(t *testing.T) {
	space := &AddressSpace{}

	// Must not panic even though no stack region is registered.
	TouchStack(space, 0x1234, 1)
}

func TestShrinkStacksAppliesPolicyToEveryRegisteredRegion(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}
	stack := newTestStack()
	space.AddStackRegion(stack)

	faultAddr := stack.CommittedBase - 3072
	if err := growthFault(space, stack, faultAddr, 1, tm.allocFrame); err != nil {
		t.Fatalf("growthFault: %v", err)
	}
	grownBase := stack.CommittedBase

	spHint := stack.Top - uintptr(mem.PageSize)
	if err := ShrinkStacks(space, 1000, 100, spHint); err != nil {
		t.Fatalf("ShrinkStacks: %v", err)
	}
	if stack.CommittedBase == grownBase {
		t.Errorf("expected ShrinkStacks to reclaim the idle grown page")
	}
}
