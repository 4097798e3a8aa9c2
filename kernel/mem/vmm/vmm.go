// Package vmm implements the ARM64 4-level virtual memory core: address
// spaces, page table management, the MMU bring-up sequence, copy-on-write,
// lazy allocation and the page fault handler that ties them together.
//
// Grounded on the teacher's kernel/mem/vmm package, generalized from a
// 2-level x86 page directory/table scheme to AArch64's 4-level hierarchy
// and from a single page fault error code to ESR_EL1 syndrome decoding.
package vmm

import (
	"github.com/byoboo/tiny-os-sub000/kernel/errors"
	"github.com/byoboo/tiny-os-sub000/kernel/mem"
	"github.com/byoboo/tiny-os-sub000/kernel/mem/pmm"
)

var (
	// frameAllocator points to a frame allocator function registered
	// using SetFrameAllocator.
	frameAllocator FrameAllocatorFn

	// ReservedZeroedFrame is the shared, read-only, all-zero physical
	// frame mapped by ZeroOnRead lazy regions. Its refcount in the CoW
	// table grows without bound as more read-only mappings reference
	// it; a write fault against it always takes the "refcount > 1" copy
	// branch, which is exactly the behaviour wanted: the shared zero
	// frame itself must never become writable in place.
	ReservedZeroedFrame pmm.Frame

	errInvalidFillPolicy = errors.KernelError("lazy region has an unrecognized fill policy")
)

// SetFrameAllocator registers a frame allocator function that will be used
// by the vmm code when new physical frames need to be allocated.
func SetFrameAllocator(allocFn FrameAllocatorFn) {
	frameAllocator = allocFn
}

// AllocFrame allocates a single physical frame through the registered frame
// allocator, exposed so callers outside this package (kernel/goruntime's Go
// allocator bootstrap, in particular) don't need their own reference to
// whichever concrete pmm.Allocator the boot sequence constructed.
func AllocFrame() (pmm.Frame, error) {
	return frameAllocator()
}

// zeroFrame clears a full page at the given kernel virtual address.
func zeroFrame(virtAddr uintptr) {
	mem.Memset(virtAddr, 0, mem.PageSize)
}

// reserveZeroedFrame reserves the physical frame used for zero-page sharing
// and seeds its CoW refcount to 1, accounting for the kernel's own
// reference to it via ReservedZeroedFrame.
func reserveZeroedFrame() error {
	frame, err := frameAllocator()
	if err != nil {
		return err
	}

	tempPage, err := MapTemporary(frame, frameAllocator)
	if err != nil {
		return err
	}
	zeroFrame(tempPage.Address())
	_ = Unmap(KernelSpace, tempPage)

	ReservedZeroedFrame = frame
	cowShare(frame)
	return nil
}

// Init initializes the vmm subsystem: reserves the shared zero frame and
// establishes the kernel address space's own root table.
func Init(kernelRoot pmm.Frame) error {
	KernelSpace.rootFrame = kernelRoot

	if err := reserveZeroedFrame(); err != nil {
		return err
	}
	return nil
}
