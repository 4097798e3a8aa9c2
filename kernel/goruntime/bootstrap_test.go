package goruntime

import (
	"testing"
	"unsafe"

	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/vmm"
)

func TestSysReserve(t *testing.T) {
	defer func() { earlyReserveRegionFn = vmm.EarlyReserveRegion }()
	var reserved bool

	t.Run("success", func(t *testing.T) {
		specs := []struct {
			reqSize       mem.Size
			expRegionSize mem.Size
		}{
			{100 << mem.PageShift, 100 << mem.PageShift},
			{2*mem.PageSize - 1, 2 * mem.PageSize},
		}

		for specIndex, spec := range specs {
			earlyReserveRegionFn = func(rsvSize mem.Size) (uintptr, error) {
				if rsvSize != spec.expRegionSize {
					t.Errorf("[spec %d] expected reservation size %d, got %d", specIndex, spec.expRegionSize, rsvSize)
				}
				return 0xbadf00d, nil
			}

			if ptr := sysReserve(nil, uintptr(spec.reqSize), &reserved); uintptr(ptr) == 0 {
				t.Errorf("[spec %d] sysReserve returned 0", specIndex)
			}
		}
	})

	t.Run("fail", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected sysReserve to panic")
			}
		}()

		earlyReserveRegionFn = func(mem.Size) (uintptr, error) {
			return 0, errors.KernelError("consumed available address space")
		}

		sysReserve(nil, 0xf00, &reserved)
	})
}

func TestSysMap(t *testing.T) {
	defer func() {
		earlyReserveRegionFn = vmm.EarlyReserveRegion
		mapFn = vmm.Map
	}()

	t.Run("success", func(t *testing.T) {
		specs := []struct {
			reqAddr         uintptr
			reqSize         mem.Size
			expRsvAddr      uintptr
			expMapCallCount int
		}{
			{100 << mem.PageShift, 4 * mem.PageSize, 100 << mem.PageShift, 4},
			{(100 << mem.PageShift) + 1, 4 * mem.PageSize, 101 << mem.PageShift, 4},
			{1 << mem.PageShift, (4 * mem.PageSize) + 1, 1 << mem.PageShift, 5},
		}

		for specIndex, spec := range specs {
			var sysStat uint64
			var mapCallCount int

			mapFn = func(_ *vmm.AddressSpace, _ vmm.Page, _ pmm.Frame, flags vmm.PageTableEntryFlag, _ vmm.FrameAllocatorFn) error {
				if expFlags := vmm.FlagPresent | vmm.FlagCopyOnWrite | vmm.FlagNoExecute; flags != expFlags {
					t.Errorf("[spec %d] expected map flags %d, got %d", specIndex, expFlags, flags)
				}
				mapCallCount++
				return nil
			}

			got := sysMap(unsafe.Pointer(spec.reqAddr), uintptr(spec.reqSize), true, &sysStat)
			if uintptr(got) != spec.expRsvAddr {
				t.Errorf("[spec %d] expected mapped address 0x%x, got 0x%x", specIndex, spec.expRsvAddr, uintptr(got))
			}
			if mapCallCount != spec.expMapCallCount {
				t.Errorf("[spec %d] expected %d map calls, got %d", specIndex, spec.expMapCallCount, mapCallCount)
			}
			if exp := uint64(spec.expMapCallCount << mem.PageShift); sysStat != exp {
				t.Errorf("[spec %d] expected stat counter %d, got %d", specIndex, exp, sysStat)
			}
		}
	})

	t.Run("map fails", func(t *testing.T) {
		mapFn = func(_ *vmm.AddressSpace, _ vmm.Page, _ pmm.Frame, _ vmm.PageTableEntryFlag, _ vmm.FrameAllocatorFn) error {
			return errors.KernelError("map failed")
		}

		var sysStat uint64
		if got := sysMap(unsafe.Pointer(uintptr(0xbadf00d)), 1, true, &sysStat); got != unsafe.Pointer(uintptr(0)) {
			t.Fatalf("expected sysMap to return 0x0 on Map failure, got 0x%x", uintptr(got))
		}
	})

	t.Run("panic if not reserved", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected sysMap to panic")
			}
		}()
		sysMap(nil, 0, false, nil)
	})
}

func TestSysAlloc(t *testing.T) {
	defer func() {
		earlyReserveRegionFn = vmm.EarlyReserveRegion
		mapFn = vmm.Map
		frameAllocFn = vmm.AllocFrame
	}()

	t.Run("success", func(t *testing.T) {
		specs := []struct {
			reqSize         mem.Size
			expMapCallCount int
		}{
			{4 * mem.PageSize, 4},
			{(4 * mem.PageSize) + 1, 5},
		}

		expRegionStartAddr := uintptr(10 * mem.PageSize)
		earlyReserveRegionFn = func(mem.Size) (uintptr, error) { return expRegionStartAddr, nil }
		frameAllocFn = func() (pmm.Frame, error) { return pmm.Frame(0), nil }

		for specIndex, spec := range specs {
			var sysStat uint64
			var mapCallCount int

			mapFn = func(_ *vmm.AddressSpace, _ vmm.Page, _ pmm.Frame, flags vmm.PageTableEntryFlag, _ vmm.FrameAllocatorFn) error {
				if expFlags := vmm.FlagPresent | vmm.FlagNoExecute | vmm.FlagRW; flags != expFlags {
					t.Errorf("[spec %d] expected map flags %d, got %d", specIndex, expFlags, flags)
				}
				mapCallCount++
				return nil
			}

			got := sysAlloc(uintptr(spec.reqSize), &sysStat)
			if uintptr(got) != expRegionStartAddr {
				t.Errorf("[spec %d] expected address 0x%x, got 0x%x", specIndex, expRegionStartAddr, uintptr(got))
			}
			if mapCallCount != spec.expMapCallCount {
				t.Errorf("[spec %d] expected %d map calls, got %d", specIndex, spec.expMapCallCount, mapCallCount)
			}
			if exp := uint64(spec.expMapCallCount << mem.PageShift); sysStat != exp {
				t.Errorf("[spec %d] expected stat counter %d, got %d", specIndex, exp, sysStat)
			}
		}
	})

	t.Run("earlyReserveRegion fails", func(t *testing.T) {
		earlyReserveRegionFn = func(mem.Size) (uintptr, error) {
			return 0, errors.KernelError("consumed available address space")
		}

		var sysStat uint64
		if got := sysAlloc(1, &sysStat); got != unsafe.Pointer(uintptr(0)) {
			t.Fatalf("expected sysAlloc to return 0x0 on reservation failure, got 0x%x", uintptr(got))
		}
	})

	t.Run("frame allocation fails", func(t *testing.T) {
		expRegionStartAddr := uintptr(10 * mem.PageSize)
		earlyReserveRegionFn = func(mem.Size) (uintptr, error) { return expRegionStartAddr, nil }
		frameAllocFn = func() (pmm.Frame, error) { return pmm.InvalidFrame, errors.ErrOutOfMemory }

		var sysStat uint64
		if got := sysAlloc(1, &sysStat); got != unsafe.Pointer(uintptr(0)) {
			t.Fatalf("expected sysAlloc to return 0x0 on frame allocation failure, got 0x%x", uintptr(got))
		}
	})

	t.Run("map fails", func(t *testing.T) {
		expRegionStartAddr := uintptr(10 * mem.PageSize)
		earlyReserveRegionFn = func(mem.Size) (uintptr, error) { return expRegionStartAddr, nil }
		frameAllocFn = func() (pmm.Frame, error) { return pmm.Frame(0), nil }
		mapFn = func(_ *vmm.AddressSpace, _ vmm.Page, _ pmm.Frame, _ vmm.PageTableEntryFlag, _ vmm.FrameAllocatorFn) error {
			return errors.KernelError("map failed")
		}

		var sysStat uint64
		if got := sysAlloc(1, &sysStat); got != unsafe.Pointer(uintptr(0)) {
			t.Fatalf("expected sysAlloc to return 0x0 on map failure, got 0x%x", uintptr(got))
		}
	})
}
