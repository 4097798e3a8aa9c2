package vmm

import (
	"testing"

	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
)

func TestPageFaultRoutesToLazyRegion(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}
	space.AddLazyRegion(&LazyRegion{Start: 0x4000_0000, End: 0x4000_1000, Policy: ZeroOnWrite, Flags: FlagUserAccess | FlagRW})

	prevAlloc := frameAllocator
	frameAllocator = tm.allocFrame
	defer func() { frameAllocator = prevAlloc }()

	if err := pageFault(space, 0x4000_0010, true); err != nil {
		t.Fatalf("pageFault: %v", err)
	}
	pte := pteForAddress(space.rootFrame, PageFromAddress(0x4000_0010).Address())
	if pte == nil || !pte.HasFlags(FlagPresent) {
		t.Errorf("expected the lazy region's page to now be mapped")
	}
}

func TestPageFaultRoutesToCow(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()
	defer func() { cowRefcounts = map[pmm.Frame]uint32{} }()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}

	prevAlloc := frameAllocator
	frameAllocator = tm.allocFrame
	defer func() { frameAllocator = prevAlloc }()

	dataFrame, _ := tm.allocFrame()
	page := PageFromAddress(0x3000_0000)
	if err := Map(space, page, dataFrame, FlagCopyOnWrite, tm.allocFrame); err != nil {
		t.Fatalf("Map: %v", err)
	}
	cowShare(dataFrame)
	cowShare(dataFrame)

	if err := pageFault(space, page.Address(), true); err != nil {
		t.Fatalf("pageFault: %v", err)
	}
	pte := pteForAddress(space.rootFrame, page.Address())
	if pte.Frame() == dataFrame {
		t.Errorf("expected the shared CoW page to be copied on write")
	}
}

func TestPageFaultRoutesToStackGrowth(t *testing.T) {
	tm := newTestMemory(32)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}
	stack := newTestStack()
	space.AddStackRegion(stack)

	prevAlloc := frameAllocator
	frameAllocator = tm.allocFrame
	defer func() { frameAllocator = prevAlloc }()

	faultAddr := stack.CommittedBase - 3072
	if err := pageFault(space, faultAddr, true); err != nil {
		t.Fatalf("pageFault: %v", err)
	}
	if !stack.Contains(faultAddr) {
		t.Errorf("expected the stack to have grown to cover the fault")
	}
}

func TestPageFaultUnclaimedAddressIsUnhandled(t *testing.T) {
	tm := newTestMemory(16)
	defer tm.install()()
	defer stubTLBFlush(t)()

	rootFrame, _ := tm.allocFrame()
	space := &AddressSpace{rootFrame: rootFrame}

	if err := pageFault(space, 0x9999_0000, false); err != errUnhandledFault {
		t.Fatalf("expected errUnhandledFault, got %v", err)
	}
}
