package vmm

import (
	"unsafe"

	"github.com/byoboo/tiny-os-sub000/kernel/mem"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
)

// testMemory backs every physical frame used by a table-walking test with a
// real, hosted byte slice, and installs a physToVirt override that maps
// frame N to that slice's Nth page. This lets Map/Unmap/Translate/the fault
// handlers dereference "physical" addresses the same way the freestanding
// kernel does through its boot-time identity map, without needing an actual
// MMU or the real mem.KernelVirtBase range to be addressable in a hosted
// test process.
type testMemory struct {
	buf        []byte
	frameAlloc uint64
}

func newTestMemory(frames int) *testMemory {
	return &testMemory{buf: make([]byte, frames*int(mem.PageSize))}
}

func (m *testMemory) install() func() {
	prev := physToVirt
	base := uintptr(unsafe.Pointer(&m.buf[0]))
	physToVirt = func(phys uintptr) uintptr { return base + phys }
	return func() { physToVirt = prev }
}

// allocFrame hands out successive page-sized frames from the backing
// buffer, zeroing each one before use exactly like a real frame allocator
// would for a freshly allocated page.
func (m *testMemory) allocFrame() (pmm.Frame, error) {
	frame := pmm.Frame(m.frameAlloc)
	m.frameAlloc++

	start := uintptr(frame) * uintptr(mem.PageSize)
	end := start + uintptr(mem.PageSize)
	if end > uintptr(len(m.buf)) {
		panic("vmm test: backing buffer exhausted")
	}
	for i := start; i < end; i++ {
		m.buf[i] = 0
	}
	return frame, nil
}
