// Package pmm contains code that manages physical memory frame allocations.
package pmm

import (
	"math"

	"github.com/byoboo/tiny-os-sub000/kernel/mem"
)

// Frame describes a physical memory page index. Unlike the teacher's frame
// number, this core has no huge-page/buddy concept (see ErrNoHugePageSupport
// in kernel/errors); every Frame is exactly one mem.PageSize region, so no
// page-order bits are stashed in the frame number.
type Frame uint64

// InvalidFrame is returned by the allocator when it fails to reserve the
// requested frame.
const InvalidFrame = Frame(math.MaxUint64)

// IsValid returns true if this is a valid frame.
func (f Frame) IsValid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the start of this frame.
func (f Frame) Address() uintptr {
	return uintptr(f << mem.PageShift)
}

// Size returns the size of a frame; always mem.PageSize for this core.
func (f Frame) Size() mem.Size {
	return mem.PageSize
}

// FrameFromAddress returns the frame containing the given physical address.
func FrameFromAddress(addr uintptr) Frame {
	return Frame(addr >> mem.PageShift)
}
