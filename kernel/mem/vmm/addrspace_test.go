package vmm

import "testing"

func TestNewAddressSpaceAllocatesZeroedRoot(t *testing.T) {
	tm := newTestMemory(16)
	defer tm.install()()

	space, err := New(3, tm.allocFrame)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if space.ASID() != 3 {
		t.Errorf("expected ASID 3, got %d", space.ASID())
	}
	if !space.RootFrame().IsValid() {
		t.Errorf("expected a valid root frame")
	}
}

func TestAddressSpaceLazyAndStackLookup(t *testing.T) {
	space := &AddressSpace{}
	lazy := &LazyRegion{Start: 0x1000, End: 0x2000}
	space.AddLazyRegion(lazy)

	if got := space.lazyRegionFor(0x1500); got != lazy {
		t.Errorf("expected lazyRegionFor to find the registered region")
	}
	if got := space.lazyRegionFor(0x3000); got != nil {
		t.Errorf("expected lazyRegionFor to return nil outside any region")
	}

	stack := newTestStack()
	space.AddStackRegion(stack)
	if got := space.stackRegionFor(stack.CommittedBase); got != stack {
		t.Errorf("expected stackRegionFor to find the registered stack")
	}
	if got := space.stackRegionFor(stack.Base - stack.Guard - 1); got != nil {
		t.Errorf("expected stackRegionFor to return nil below the guard page")
	}
}
